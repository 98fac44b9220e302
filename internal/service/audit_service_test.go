package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/talentflow/ats-offer-api/internal/models"
	"github.com/talentflow/ats-offer-api/pkg/config"
)

type mockAuditStore struct {
	entries   []models.AuditEntry
	appendErr error
	listErr   error
	searchErr error

	counts       map[models.AuditEventType]int
	dateRange    models.AuditDateRange
	aggregateErr error

	searchFilter models.AuditSearchFilter
}

func (m *mockAuditStore) Append(ctx context.Context, entry *models.AuditEntry) error {
	if m.appendErr != nil {
		return m.appendErr
	}
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *mockAuditStore) ListByApplication(ctx context.Context, applicationID string) ([]models.AuditEntry, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.entries, nil
}

func (m *mockAuditStore) Search(ctx context.Context, filter models.AuditSearchFilter) ([]models.AuditEntry, error) {
	m.searchFilter = filter
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	out := []models.AuditEntry{}
	for _, entry := range m.entries {
		for _, t := range filter.EventTypes {
			if entry.EventType == t {
				out = append(out, entry)
				break
			}
		}
	}
	return out, nil
}

func (m *mockAuditStore) Aggregate(ctx context.Context, applicationID string) (map[models.AuditEventType]int, models.AuditDateRange, error) {
	if m.aggregateErr != nil {
		return nil, models.AuditDateRange{}, m.aggregateErr
	}
	return m.counts, m.dateRange, nil
}

func enabledAuditConfig() config.AuditConfig {
	return config.AuditConfig{Enabled: true, RetentionDays: 365, LogLevel: "detailed", IncludeMetadata: true}
}

func newTestAuditService(store *mockAuditStore, apps applicationReader) *AuditService {
	return NewAuditService(store, apps, enabledAuditConfig(), nil, zap.NewNop())
}

func TestLogStateChangeAppendsTaggedEntry(t *testing.T) {
	store := &mockAuditStore{}
	svc := newTestAuditService(store, &stubApplicationReader{})

	ctx := models.WithActor(context.Background(), models.ActorMetadata{IPAddress: "10.0.0.8", UserAgent: "agent"})
	err := svc.LogStateChange(ctx, "app-1", models.StatusOfferPending, models.StatusOfferAccepted, "oferta aceptada")
	require.NoError(t, err)

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, models.EventStatusChanged, entry.EventType)
	require.NotNil(t, entry.Details.StatusChanged)
	assert.Equal(t, models.StatusOfferPending, entry.Details.StatusChanged.FromState)
	assert.Equal(t, models.StatusOfferAccepted, entry.Details.StatusChanged.ToState)
	assert.Equal(t, "oferta aceptada", entry.Details.StatusChanged.Reason)
	require.NotNil(t, entry.Reason)
	assert.Equal(t, "oferta aceptada", *entry.Reason)
	assert.Equal(t, "10.0.0.8", entry.IPAddress)
}

func TestLogOfferAcceptanceDetailsRoundTrip(t *testing.T) {
	store := &mockAuditStore{}
	svc := newTestAuditService(store, &stubApplicationReader{})

	salary := 90000.0
	acceptedAt := time.Now().UTC()
	err := svc.LogOfferAcceptance(context.Background(), models.OfferAcceptanceAudit{
		ApplicationID:   "app-1",
		AcceptanceID:    "acc-1",
		AcceptedAt:      acceptedAt,
		Salary:          85000,
		Currency:        "EUR",
		NegotiatedTerms: &models.NegotiatedTerms{Salary: &salary},
	})
	require.NoError(t, err)

	require.Len(t, store.entries, 1)
	// the details column survives a marshal/scan cycle intact
	raw, err := store.entries[0].Details.Value()
	require.NoError(t, err)
	var restored models.AuditDetails
	require.NoError(t, restored.Scan(raw))
	require.NotNil(t, restored.OfferAccepted)
	assert.Equal(t, "acc-1", restored.OfferAccepted.AcceptanceID)
	assert.Equal(t, "candidate", restored.OfferAccepted.TriggeredBy)
	require.NotNil(t, restored.OfferAccepted.NegotiatedTerms)
	assert.Equal(t, salary, *restored.OfferAccepted.NegotiatedTerms.Salary)
	assert.Nil(t, restored.StatusChanged)
	assert.Nil(t, restored.Withdrawal)
}

func TestLogWithdrawalLinksAcceptance(t *testing.T) {
	store := &mockAuditStore{}
	svc := newTestAuditService(store, &stubApplicationReader{})

	err := svc.LogWithdrawal(context.Background(), "app-2", models.WithdrawalDetails{
		PreviousStatus:        models.StatusOfferPending,
		Reason:                "Retirada automática por aceptación de otra oferta",
		TriggeredBy:           "system",
		TriggeredByAcceptance: true,
		AcceptanceID:          "acc-1",
	})
	require.NoError(t, err)

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	assert.Equal(t, models.EventApplicationWithdrawn, entry.EventType)
	require.NotNil(t, entry.Details.Withdrawal)
	assert.True(t, entry.Details.Withdrawal.TriggeredByAcceptance)
	assert.Equal(t, "acc-1", entry.Details.Withdrawal.AcceptanceID)
	require.NotNil(t, entry.Reason)
}

func TestAuditDisabledSkipsWrites(t *testing.T) {
	store := &mockAuditStore{appendErr: assert.AnError}
	svc := NewAuditService(store, &stubApplicationReader{}, config.AuditConfig{Enabled: false}, nil, zap.NewNop())

	require.NoError(t, svc.LogStateChange(context.Background(), "app-1", models.StatusActive, models.StatusScreening, ""))
	require.NoError(t, svc.LogOfferAcceptance(context.Background(), models.OfferAcceptanceAudit{ApplicationID: "app-1"}))
	require.NoError(t, svc.LogWithdrawal(context.Background(), "app-1", models.WithdrawalDetails{}))
	require.NoError(t, svc.LogValidationFailure(context.Background(), "app-1", nil, nil))
	assert.Empty(t, store.entries)
}

func TestAuditWriteFailurePropagates(t *testing.T) {
	store := &mockAuditStore{appendErr: assert.AnError}
	svc := newTestAuditService(store, &stubApplicationReader{})

	err := svc.LogStateChange(context.Background(), "app-1", models.StatusActive, models.StatusScreening, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to append audit entry")
}

func TestGetAuditTrailDegradesToEmpty(t *testing.T) {
	store := &mockAuditStore{listErr: assert.AnError}
	svc := newTestAuditService(store, &stubApplicationReader{})

	entries := svc.GetAuditTrail(context.Background(), "app-1")
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestSummaryCollectsCriticalEvents(t *testing.T) {
	now := time.Now()
	store := &mockAuditStore{
		entries: []models.AuditEntry{
			{ID: "e-1", ApplicationID: "app-1", EventType: models.EventOfferAccepted, Timestamp: now},
			{ID: "e-2", ApplicationID: "app-1", EventType: models.EventStatusChanged, Timestamp: now.Add(-time.Hour)},
		},
		counts: map[models.AuditEventType]int{
			models.EventOfferAccepted: 1,
			models.EventStatusChanged: 3,
		},
		dateRange: models.AuditDateRange{From: &now},
	}
	svc := newTestAuditService(store, &stubApplicationReader{})

	summary, err := svc.Summary(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, 4, summary.TotalEntries)
	assert.Equal(t, 1, summary.EntriesByType[models.EventOfferAccepted])
	require.Len(t, summary.CriticalEvents, 1)
	assert.Equal(t, "e-1", summary.CriticalEvents[0].ID)
	assert.ElementsMatch(t, store.searchFilter.EventTypes,
		[]models.AuditEventType{models.EventOfferAccepted, models.EventApplicationWithdrawn})
}

func TestVerifyIntegrityDetectsMissingAcceptanceEntry(t *testing.T) {
	app := validApplication()
	app.Status = models.StatusOfferAccepted
	store := &mockAuditStore{
		entries: []models.AuditEntry{
			{ID: "e-1", ApplicationID: "app-1", EventType: models.EventStatusChanged, Timestamp: time.Now()},
		},
	}
	svc := newTestAuditService(store, &stubApplicationReader{app: &app})

	result, err := svc.VerifyIntegrity(context.Background(), "app-1")
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Issues, "Falta entrada de auditoría para aceptación de oferta")
	assert.Equal(t, 1, result.Summary.MissingEntries)
	assert.Equal(t, 1, result.Summary.TotalEntries)
	require.NotNil(t, result.Summary.LastEntry)
}

func TestVerifyIntegrityCleanTrail(t *testing.T) {
	app := validApplication()
	app.Status = models.StatusOfferAccepted
	store := &mockAuditStore{
		entries: []models.AuditEntry{
			{ID: "e-1", ApplicationID: "app-1", EventType: models.EventOfferAccepted, Timestamp: time.Now()},
		},
	}
	svc := newTestAuditService(store, &stubApplicationReader{app: &app})

	result, err := svc.VerifyIntegrity(context.Background(), "app-1")
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Issues)
	assert.Zero(t, result.Summary.MissingEntries)
}

func TestVerifyIntegrityUnknownApplication(t *testing.T) {
	svc := newTestAuditService(&mockAuditStore{}, &stubApplicationReader{})

	result, err := svc.VerifyIntegrity(context.Background(), "app-404")
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Issues, "La aplicación no existe en el sistema")
}

func TestExportEnvelope(t *testing.T) {
	now := time.Now().UTC()
	store := &mockAuditStore{
		entries: []models.AuditEntry{
			{ID: "e-1", ApplicationID: "app-1", EventType: models.EventOfferAccepted, Timestamp: now},
		},
		counts: map[models.AuditEventType]int{models.EventOfferAccepted: 1},
	}
	svc := newTestAuditService(store, &stubApplicationReader{})

	payload, err := svc.Export(context.Background(), "app-1")
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
	assert.Equal(t, "app-1", decoded["applicationId"])
	assert.NotEmpty(t, decoded["exportedAt"])
	require.Contains(t, decoded, "auditTrail")
	require.Contains(t, decoded, "summary")
	metadata, ok := decoded["metadata"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "365", metadata["retentionDays"])
}

func TestExportDatasetShapesRows(t *testing.T) {
	reason := "oferta aceptada"
	now := time.Now().UTC()
	store := &mockAuditStore{
		entries: []models.AuditEntry{
			{ID: "e-1", ApplicationID: "app-1", EventType: models.EventOfferAccepted, Timestamp: now, Reason: &reason, IPAddress: "10.0.0.8"},
		},
	}
	svc := newTestAuditService(store, &stubApplicationReader{})

	dataset, err := svc.ExportDataset(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Timestamp", "Event", "Reason", "IP Address"}, dataset.Headers)
	require.Len(t, dataset.Rows, 1)
	assert.Equal(t, "offer_accepted", dataset.Rows[0]["Event"])
	assert.Equal(t, reason, dataset.Rows[0]["Reason"])
	assert.Equal(t, now.Format(time.RFC3339), dataset.Rows[0]["Timestamp"])
}
