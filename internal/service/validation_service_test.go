package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/talentflow/ats-offer-api/internal/models"
	"github.com/talentflow/ats-offer-api/pkg/config"
)

type stubApplicationReader struct {
	app *models.Application
	err error
}

func (s *stubApplicationReader) GetByID(ctx context.Context, id string) (*models.Application, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.app == nil || s.app.ID != id {
		return nil, sql.ErrNoRows
	}
	app := *s.app
	return &app, nil
}

type stubValidationAudit struct {
	trail         []models.AuditEntry
	failureCodes  []string
	failureFields []string
	failureCalls  int
}

func (s *stubValidationAudit) GetAuditTrail(ctx context.Context, applicationID string) []models.AuditEntry {
	return s.trail
}

func (s *stubValidationAudit) LogValidationFailure(ctx context.Context, applicationID string, codes, fields []string) error {
	s.failureCalls++
	s.failureCodes = codes
	s.failureFields = fields
	return nil
}

func validApplication() models.Application {
	applied := time.Now().Add(-30 * 24 * time.Hour)
	return models.Application{
		ID:          "app-1",
		CandidateID: "cand-1",
		JobID:       "job-1",
		Status:      models.StatusOfferPending,
		OfferDetails: &models.OfferDetails{
			OfferedAt: time.Now().Add(-48 * time.Hour),
			ExpiresAt: time.Now().Add(48 * time.Hour),
			Salary:    70000,
			Currency:  "EUR",
		},
		AppliedDate: applied,
		LastUpdate:  time.Now().Add(-time.Hour),
	}
}

func newTestValidationService(reader applicationReader, audit validationAuditLogger) *ValidationService {
	return NewValidationService(reader, audit, config.ValidationConfig{MaxNoteLength: 1000}, zap.NewNop())
}

func TestValidateBeforePersistCleanRecord(t *testing.T) {
	svc := newTestValidationService(&stubApplicationReader{}, nil)

	result := svc.ValidateBeforePersist(context.Background(), validApplication())
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
}

func TestValidateBeforePersistCollectsAllRuleFailures(t *testing.T) {
	app := validApplication()
	app.Status = "limbo"
	app.LastUpdate = app.AppliedDate.Add(-time.Hour)
	audit := &stubValidationAudit{}
	svc := newTestValidationService(&stubApplicationReader{}, audit)

	result := svc.ValidateBeforePersist(context.Background(), app)
	require.False(t, result.IsValid)
	assert.GreaterOrEqual(t, len(result.Errors), 2)
	assert.Equal(t, 1, audit.failureCalls)
	assert.Contains(t, audit.failureCodes, "INVALID_STATUS")
	assert.Contains(t, audit.failureCodes, "INCONSISTENT_DATES")
}

func TestValidateBeforePersistExclusivityMismatchOnlyWarns(t *testing.T) {
	app := validApplication()
	app.Status = models.StatusOfferAccepted
	app.ExclusivityStatus = models.ExclusivityNone
	svc := newTestValidationService(&stubApplicationReader{}, nil)

	result := svc.ValidateBeforePersist(context.Background(), app)
	assert.True(t, result.IsValid)
	require.NotEmpty(t, result.Warnings)
	assert.Equal(t, "EXCLUSIVITY_MISMATCH", result.Warnings[0].Code)
}

func TestValidateBeforePersistRecoversPanickingRule(t *testing.T) {
	svc := newTestValidationService(&stubApplicationReader{}, nil)
	svc.RegisterRule(Rule{
		Name:     "explode",
		Severity: models.SeverityCritical,
		Check: func(models.Application) models.ValidationResult {
			panic("boom")
		},
	})

	result := svc.ValidateBeforePersist(context.Background(), validApplication())
	require.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "VALIDATION_ERROR", result.Errors[0].Code)
	assert.Contains(t, result.Errors[0].Message, "explode")
}

func TestValidateProposalAcceptanceHappyPath(t *testing.T) {
	app := validApplication()
	svc := newTestValidationService(&stubApplicationReader{app: &app}, nil)

	result, err := svc.ValidateProposalAcceptance(context.Background(), "app-1", models.AcceptanceData{AcceptedAt: time.Now()})
	require.NoError(t, err)
	assert.True(t, result.IsValid)
}

func TestValidateProposalAcceptanceUnknownApplication(t *testing.T) {
	svc := newTestValidationService(&stubApplicationReader{}, nil)

	result, err := svc.ValidateProposalAcceptance(context.Background(), "app-404", models.AcceptanceData{AcceptedAt: time.Now()})
	require.NoError(t, err)
	require.False(t, result.IsValid)
	assert.Equal(t, "La aplicación no existe", result.Errors[0].Message)
}

func TestValidateProposalAcceptanceWrongStatus(t *testing.T) {
	app := validApplication()
	app.Status = models.StatusNegotiating
	svc := newTestValidationService(&stubApplicationReader{app: &app}, nil)

	result, err := svc.ValidateProposalAcceptance(context.Background(), "app-1", models.AcceptanceData{AcceptedAt: time.Now()})
	require.NoError(t, err)
	require.False(t, result.IsValid)
	assert.Contains(t, result.ErrorMessages(), "Solo se puede aceptar una oferta en estado pendiente")
}

func TestValidateProposalAcceptanceExpiryBoundary(t *testing.T) {
	acceptedAt := time.Now()

	app := validApplication()
	app.OfferDetails.ExpiresAt = acceptedAt
	svc := newTestValidationService(&stubApplicationReader{app: &app}, nil)

	// expiry exactly at the acceptance instant is still valid
	result, err := svc.ValidateProposalAcceptance(context.Background(), "app-1", models.AcceptanceData{AcceptedAt: acceptedAt})
	require.NoError(t, err)
	assert.True(t, result.IsValid)

	app.OfferDetails.ExpiresAt = acceptedAt.Add(-time.Second)
	result, err = svc.ValidateProposalAcceptance(context.Background(), "app-1", models.AcceptanceData{AcceptedAt: acceptedAt})
	require.NoError(t, err)
	require.False(t, result.IsValid)
	assert.Contains(t, result.ErrorMessages(), "La oferta ha expirado y no puede ser aceptada")
}

func TestValidateProposalAcceptanceRejectsFutureDate(t *testing.T) {
	app := validApplication()
	svc := newTestValidationService(&stubApplicationReader{app: &app}, nil)

	result, err := svc.ValidateProposalAcceptance(context.Background(), "app-1", models.AcceptanceData{AcceptedAt: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	require.False(t, result.IsValid)
	assert.Equal(t, "ACCEPTED_AT_FUTURE", result.Errors[0].Code)
}

func TestValidateProposalAcceptanceNotesAndTerms(t *testing.T) {
	app := validApplication()
	svc := newTestValidationService(&stubApplicationReader{app: &app}, nil)

	badSalary := 0.0
	pastStart := time.Now().Add(-24 * time.Hour)
	result, err := svc.ValidateProposalAcceptance(context.Background(), "app-1", models.AcceptanceData{
		AcceptedAt:     time.Now(),
		CandidateNotes: strings.Repeat("x", 1001),
		NegotiatedTerms: &models.NegotiatedTerms{
			Salary:    &badSalary,
			StartDate: &pastStart,
		},
	})
	require.NoError(t, err)
	require.False(t, result.IsValid)
	assert.Equal(t, "NEGOTIATED_SALARY_INVALID", result.Errors[0].Code)

	codes := make([]string, 0, len(result.Warnings))
	for _, w := range result.Warnings {
		codes = append(codes, w.Code)
	}
	assert.Contains(t, codes, "NOTES_TOO_LONG")
	assert.Contains(t, codes, "NEGOTIATED_START_PAST")
}

func statusChangeEntry(from, to models.ApplicationStatus, ts time.Time) models.AuditEntry {
	return models.AuditEntry{
		ID:            "entry-" + string(to),
		ApplicationID: "app-1",
		EventType:     models.EventStatusChanged,
		Timestamp:     ts,
		Details: models.AuditDetails{
			StatusChanged: &models.StatusChangedDetails{FromState: from, ToState: to},
		},
	}
}

func TestDetectInconsistenciesReplaysTransitions(t *testing.T) {
	app := validApplication()
	app.Status = models.StatusOfferPending
	now := time.Now()
	audit := &stubValidationAudit{
		// newest first, as the trail is served
		trail: []models.AuditEntry{
			statusChangeEntry(models.StatusHired, models.StatusOfferPending, now),
			statusChangeEntry(models.StatusScreening, models.StatusHired, now.Add(-time.Hour)),
		},
	}
	svc := newTestValidationService(&stubApplicationReader{app: &app}, audit)

	issues, err := svc.DetectInconsistencies(context.Background(), "app-1")
	require.NoError(t, err)
	require.NotEmpty(t, issues)
	assert.Contains(t, issues[0], "Transición de estado inválida registrada")
}

func TestDetectInconsistenciesMissingOfferAndTracking(t *testing.T) {
	app := validApplication()
	app.Status = models.StatusOfferAccepted
	app.OfferDetails = nil
	app.LastTrackingUpdate = nil
	svc := newTestValidationService(&stubApplicationReader{app: &app}, &stubValidationAudit{})

	issues, err := svc.DetectInconsistencies(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Contains(t, issues, "Falta información de la oferta para el estado actual")
	assert.Contains(t, issues, "No hay actualización de seguimiento registrada para la oferta aceptada")
}

func TestDetectInconsistenciesUnknownApplication(t *testing.T) {
	svc := newTestValidationService(&stubApplicationReader{}, &stubValidationAudit{})

	issues, err := svc.DetectInconsistencies(context.Background(), "app-404")
	require.NoError(t, err)
	assert.Equal(t, []string{"La aplicación no existe en el sistema"}, issues)
}

func TestGenerateIntegrityReport(t *testing.T) {
	app := validApplication()
	app.LastUpdate = app.AppliedDate.Add(-time.Hour)
	svc := newTestValidationService(&stubApplicationReader{app: &app}, nil)

	report, err := svc.GenerateIntegrityReport(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, models.IntegrityStatusErrors, report.OverallStatus)
	assert.Equal(t, 1, report.ChecksFailed)
	assert.Len(t, report.RuleOutcomes, 4)
	require.NotEmpty(t, report.Recommendations)
	assert.Contains(t, report.Recommendations[0], "consistent_dates")
}

func TestGenerateIntegrityReportAllClean(t *testing.T) {
	app := validApplication()
	svc := newTestValidationService(&stubApplicationReader{app: &app}, nil)

	report, err := svc.GenerateIntegrityReport(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Equal(t, models.IntegrityStatusValid, report.OverallStatus)
	assert.Equal(t, 4, report.ChecksPassed)
	assert.Contains(t, report.Recommendations, "Todos los datos de la aplicación son consistentes")
}

func TestGenerateIntegrityReportUnknownApplication(t *testing.T) {
	svc := newTestValidationService(&stubApplicationReader{}, nil)

	_, err := svc.GenerateIntegrityReport(context.Background(), "app-404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "application not found")
}
