package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/talentflow/ats-offer-api/internal/lifecycle"
	"github.com/talentflow/ats-offer-api/internal/models"
	"github.com/talentflow/ats-offer-api/pkg/config"
	appErrors "github.com/talentflow/ats-offer-api/pkg/errors"
	"github.com/talentflow/ats-offer-api/pkg/export"
)

// Integrity issue strings surfaced to operators.
const (
	IssueMissingAcceptanceEntry = "Falta entrada de auditoría para aceptación de oferta"
	IssueMissingWithdrawalEntry = "Falta entrada de auditoría para el retiro de la aplicación"
	IssueApplicationNotFound    = "La aplicación no existe en el sistema"
)

type auditStore interface {
	Append(ctx context.Context, entry *models.AuditEntry) error
	ListByApplication(ctx context.Context, applicationID string) ([]models.AuditEntry, error)
	Search(ctx context.Context, filter models.AuditSearchFilter) ([]models.AuditEntry, error)
	Aggregate(ctx context.Context, applicationID string) (map[models.AuditEventType]int, models.AuditDateRange, error)
}

type applicationReader interface {
	GetByID(ctx context.Context, id string) (*models.Application, error)
}

// AuditService is the append-only compliance trail over application state
// changes. Writes are strict: a state change without its audit entry is a
// worse outcome than a failed operation, so write errors always propagate.
// Reads are best-effort for display.
type AuditService struct {
	store   auditStore
	apps    applicationReader
	cfg     config.AuditConfig
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAuditService constructs the service.
func NewAuditService(store auditStore, apps applicationReader, cfg config.AuditConfig, metrics *MetricsService, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{store: store, apps: apps, cfg: cfg, metrics: metrics, logger: logger}
}

// LogStateChange appends one status_changed entry. Propagates sink failures;
// the enclosing transaction must treat them as hard failures.
func (s *AuditService) LogStateChange(ctx context.Context, applicationID string, from, to models.ApplicationStatus, reason string) error {
	if !s.cfg.Enabled {
		return nil
	}
	entry := &models.AuditEntry{
		ApplicationID: applicationID,
		EventType:     models.EventStatusChanged,
		Details: models.AuditDetails{
			StatusChanged: &models.StatusChangedDetails{FromState: from, ToState: to, Reason: reason},
		},
	}
	if reason != "" {
		entry.Reason = &reason
	}
	s.attachActor(ctx, entry)
	return s.append(ctx, entry)
}

// LogOfferAcceptance appends one offer_accepted entry carrying the accepted
// terms and requester metadata for non-repudiation.
func (s *AuditService) LogOfferAcceptance(ctx context.Context, audit models.OfferAcceptanceAudit) error {
	if !s.cfg.Enabled {
		return nil
	}
	entry := &models.AuditEntry{
		ApplicationID: audit.ApplicationID,
		EventType:     models.EventOfferAccepted,
		Details: models.AuditDetails{
			OfferAccepted: &models.OfferAcceptedDetails{
				AcceptanceID:    audit.AcceptanceID,
				AcceptedAt:      audit.AcceptedAt,
				Salary:          audit.Salary,
				Currency:        audit.Currency,
				NegotiatedTerms: audit.NegotiatedTerms,
				TriggeredBy:     "candidate",
			},
		},
	}
	if s.cfg.IncludeMetadata {
		entry.IPAddress = audit.Actor.IPAddress
		entry.UserAgent = audit.Actor.UserAgent
	}
	return s.append(ctx, entry)
}

// LogWithdrawal appends one application_withdrawn entry linked back to the
// acceptance that triggered the cascade.
func (s *AuditService) LogWithdrawal(ctx context.Context, applicationID string, details models.WithdrawalDetails) error {
	if !s.cfg.Enabled {
		return nil
	}
	entry := &models.AuditEntry{
		ApplicationID: applicationID,
		EventType:     models.EventApplicationWithdrawn,
		Details:       models.AuditDetails{Withdrawal: &details},
	}
	if details.Reason != "" {
		reason := details.Reason
		entry.Reason = &reason
	}
	s.attachActor(ctx, entry)
	return s.append(ctx, entry)
}

// LogValidationFailure records a rejected persist attempt. Callers treat this
// as best-effort; validation must never crash the write path.
func (s *AuditService) LogValidationFailure(ctx context.Context, applicationID string, codes, fields []string) error {
	if !s.cfg.Enabled {
		return nil
	}
	entry := &models.AuditEntry{
		ApplicationID: applicationID,
		EventType:     models.EventValidationFailed,
		Details: models.AuditDetails{
			ValidationFailed: &models.ValidationFailedDetails{Codes: codes, Fields: fields},
		},
	}
	s.attachActor(ctx, entry)
	return s.append(ctx, entry)
}

// GetAuditTrail returns the trail newest-first. Read failures degrade to an
// empty slice so the UI keeps functioning; losing a read is recoverable,
// losing a write is not.
func (s *AuditService) GetAuditTrail(ctx context.Context, applicationID string) []models.AuditEntry {
	entries, err := s.store.ListByApplication(ctx, applicationID)
	if err != nil {
		s.metrics.RecordAuditRead(false)
		s.logger.Warn("audit trail read failed",
			zap.String("application_id", applicationID), zap.Error(err))
		return []models.AuditEntry{}
	}
	s.metrics.RecordAuditRead(true)
	return entries
}

// SearchEntries filters and paginates the whole trail.
func (s *AuditService) SearchEntries(ctx context.Context, filter models.AuditSearchFilter) ([]models.AuditEntry, error) {
	entries, err := s.store.Search(ctx, filter)
	if err != nil {
		s.metrics.RecordAuditRead(false)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search audit entries")
	}
	s.metrics.RecordAuditRead(true)
	return entries, nil
}

// Summary aggregates counts per event type. CriticalEvents is the subset of
// inherently critical event types; event criticality is about the event kind,
// not the application's status value.
func (s *AuditService) Summary(ctx context.Context, applicationID string) (*models.AuditSummary, error) {
	counts, dateRange, err := s.store.Aggregate(ctx, applicationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate audit entries")
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	criticalTypes := make([]models.AuditEventType, 0, len(models.CriticalEventTypes))
	for t := range models.CriticalEventTypes {
		criticalTypes = append(criticalTypes, t)
	}
	critical, err := s.store.Search(ctx, models.AuditSearchFilter{
		ApplicationID: applicationID,
		EventTypes:    criticalTypes,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load critical audit events")
	}

	return &models.AuditSummary{
		TotalEntries:   total,
		EntriesByType:  counts,
		DateRange:      dateRange,
		CriticalEvents: critical,
	}, nil
}

// VerifyIntegrity cross-checks the trail against the live application record.
// A non-existent application reports IsValid=false with a specific issue
// rather than an error.
func (s *AuditService) VerifyIntegrity(ctx context.Context, applicationID string) (*models.IntegrityResult, error) {
	result := &models.IntegrityResult{IsValid: true, Issues: []string{}}

	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			result.IsValid = false
			result.Issues = append(result.Issues, IssueApplicationNotFound)
			return result, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}

	entries, err := s.store.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit trail")
	}

	result.Summary.TotalEntries = len(entries)
	if len(entries) > 0 {
		ts := entries[0].Timestamp
		result.Summary.LastEntry = &ts
	}

	if lifecycle.IsExclusive(app.Status) && countByType(entries, models.EventOfferAccepted) == 0 {
		result.IsValid = false
		result.Issues = append(result.Issues, IssueMissingAcceptanceEntry)
		result.Summary.MissingEntries++
	}
	if app.Status == models.StatusWithdrawn && app.ExclusivityStatus == models.ExclusivityWithdrawn &&
		countByType(entries, models.EventApplicationWithdrawn) == 0 {
		result.IsValid = false
		result.Issues = append(result.Issues, IssueMissingWithdrawalEntry)
		result.Summary.MissingEntries++
	}

	return result, nil
}

// auditExport is the compliance export envelope.
type auditExport struct {
	ApplicationID string               `json:"applicationId"`
	ExportedAt    time.Time            `json:"exportedAt"`
	Summary       *models.AuditSummary `json:"summary"`
	AuditTrail    []models.AuditEntry  `json:"auditTrail"`
	Metadata      map[string]string    `json:"metadata"`
}

// Export serialises the full trail for compliance. Read errors propagate,
// unlike GetAuditTrail: a silently truncated export is worse than a failed one.
func (s *AuditService) Export(ctx context.Context, applicationID string) (string, error) {
	entries, err := s.store.ListByApplication(ctx, applicationID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit trail for export")
	}
	summary, err := s.Summary(ctx, applicationID)
	if err != nil {
		return "", err
	}

	payload := auditExport{
		ApplicationID: applicationID,
		ExportedAt:    time.Now().UTC(),
		Summary:       summary,
		AuditTrail:    entries,
		Metadata: map[string]string{
			"retentionDays": fmt.Sprintf("%d", s.cfg.RetentionDays),
			"logLevel":      s.cfg.LogLevel,
		},
	}
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to serialise audit export")
	}
	return string(raw), nil
}

// ExportDataset shapes the trail for tabular renderers (CSV, PDF).
func (s *AuditService) ExportDataset(ctx context.Context, applicationID string) (export.Dataset, error) {
	entries, err := s.store.ListByApplication(ctx, applicationID)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load audit trail for export")
	}
	dataset := export.Dataset{
		Headers: []string{"Timestamp", "Event", "Reason", "IP Address"},
		Rows:    make([]map[string]string, 0, len(entries)),
	}
	for _, entry := range entries {
		reason := ""
		if entry.Reason != nil {
			reason = *entry.Reason
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Timestamp":  entry.Timestamp.UTC().Format(time.RFC3339),
			"Event":      string(entry.EventType),
			"Reason":     reason,
			"IP Address": entry.IPAddress,
		})
	}
	return dataset, nil
}

func (s *AuditService) append(ctx context.Context, entry *models.AuditEntry) error {
	if err := s.store.Append(ctx, entry); err != nil {
		s.metrics.RecordAuditWrite(false)
		return appErrors.Wrap(err, appErrors.ErrAuditWrite.Code, appErrors.ErrAuditWrite.Status, "failed to append audit entry")
	}
	s.metrics.RecordAuditWrite(true)
	if s.cfg.EnableRealTimeAlerts && models.CriticalEventTypes[entry.EventType] {
		s.logger.Info("critical audit event",
			zap.String("application_id", entry.ApplicationID),
			zap.String("event_type", string(entry.EventType)))
	}
	return nil
}

func (s *AuditService) attachActor(ctx context.Context, entry *models.AuditEntry) {
	if !s.cfg.IncludeMetadata {
		return
	}
	actor := models.ActorFromContext(ctx)
	entry.IPAddress = actor.IPAddress
	entry.UserAgent = actor.UserAgent
}

func countByType(entries []models.AuditEntry, eventType models.AuditEventType) int {
	count := 0
	for _, entry := range entries {
		if entry.EventType == eventType {
			count++
		}
	}
	return count
}
