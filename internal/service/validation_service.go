package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/talentflow/ats-offer-api/internal/lifecycle"
	"github.com/talentflow/ats-offer-api/internal/models"
	"github.com/talentflow/ats-offer-api/pkg/config"
	appErrors "github.com/talentflow/ats-offer-api/pkg/errors"
)

// Rule is a named, independent check against one application record.
// Severity is metadata on the rule, not on its result.
type Rule struct {
	Name        string
	Description string
	Severity    models.RuleSeverity
	Check       func(models.Application) models.ValidationResult
}

type validationAuditLogger interface {
	GetAuditTrail(ctx context.Context, applicationID string) []models.AuditEntry
	LogValidationFailure(ctx context.Context, applicationID string, codes, fields []string) error
}

// ValidationService runs a registry of declarative rules against application
// records. The registry is constructed explicitly and injected so tests can
// instantiate isolated instances; there is no package-level rule map.
type ValidationService struct {
	rules         []Rule
	apps          applicationReader
	audit         validationAuditLogger
	validate      *validator.Validate
	maxNoteLength int
	logger        *zap.Logger
}

// NewValidationService constructs the service with the built-in rules
// registered.
func NewValidationService(apps applicationReader, audit validationAuditLogger, cfg config.ValidationConfig, logger *zap.Logger) *ValidationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxNote := cfg.MaxNoteLength
	if maxNote <= 0 {
		maxNote = 1000
	}
	s := &ValidationService{
		apps:          apps,
		audit:         audit,
		validate:      validator.New(),
		maxNoteLength: maxNote,
		logger:        logger,
	}
	s.RegisterRule(Rule{
		Name:        "valid_status",
		Description: "el estado debe ser uno de los valores conocidos",
		Severity:    models.SeverityCritical,
		Check:       checkValidStatus,
	})
	s.RegisterRule(Rule{
		Name:        "consistent_dates",
		Description: "las fechas del registro deben estar ordenadas",
		Severity:    models.SeverityCritical,
		Check:       checkConsistentDates,
	})
	s.RegisterRule(Rule{
		Name:        "valid_exclusivity",
		Description: "el estado de exclusividad debe coincidir con el estado",
		Severity:    models.SeverityWarning,
		Check:       checkValidExclusivity,
	})
	s.RegisterRule(Rule{
		Name:        "valid_offer",
		Description: "los detalles de la oferta deben ser coherentes",
		Severity:    models.SeverityCritical,
		Check:       checkValidOffer,
	})
	return s
}

// RegisterRule appends a rule to the registry.
func (s *ValidationService) RegisterRule(rule Rule) {
	s.rules = append(s.rules, rule)
}

// Rules returns the registered rules in order.
func (s *ValidationService) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// ValidateBeforePersist runs every registered rule and merges the results. A
// rule's own panic is recovered into a single VALIDATION_ERROR entry;
// validation must never crash the write path. An invalid outcome is recorded
// on the audit trail best-effort.
func (s *ValidationService) ValidateBeforePersist(ctx context.Context, app models.Application) models.ValidationResult {
	result := models.NewValidationResult()
	for _, rule := range s.rules {
		result.Merge(s.runRule(rule, app))
	}

	if !result.IsValid && s.audit != nil {
		codes := make([]string, 0, len(result.Errors))
		fields := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			codes = append(codes, e.Code)
			fields = append(fields, e.Field)
		}
		if err := s.audit.LogValidationFailure(ctx, app.ID, codes, fields); err != nil {
			s.logger.Warn("failed to audit validation failure",
				zap.String("application_id", app.ID), zap.Error(err))
		}
	}
	return result
}

// ValidateProposalAcceptance runs the composite checks specific to the
// acceptance path. Domain rejections land in the result; only infrastructure
// failures return an error.
func (s *ValidationService) ValidateProposalAcceptance(ctx context.Context, applicationID string, data models.AcceptanceData) (models.ValidationResult, error) {
	result := models.NewValidationResult()

	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			result.AddError("applicationId", appErrors.ErrApplicationMissing.Code, "La aplicación no existe")
			return result, nil
		}
		return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}

	if err := s.validate.Struct(data); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate acceptance data")
		}
		for _, fe := range fieldErrs {
			switch fe.Namespace() {
			case "AcceptanceData.AcceptedAt":
				result.AddError("acceptedAt", "ACCEPTED_AT_REQUIRED", "La fecha de aceptación es obligatoria")
			case "AcceptanceData.NegotiatedTerms.Salary":
				result.AddError("negotiatedTerms.salary", "NEGOTIATED_SALARY_INVALID", "El salario negociado debe ser mayor que cero")
			}
		}
	}
	if !data.AcceptedAt.IsZero() && data.AcceptedAt.After(time.Now().Add(time.Minute)) {
		result.AddError("acceptedAt", "ACCEPTED_AT_FUTURE", "La fecha de aceptación no puede estar en el futuro")
	}

	if app.Status != models.StatusOfferPending {
		result.AddError("status", appErrors.ErrInvalidStatus.Code, "Solo se puede aceptar una oferta en estado pendiente")
	}

	if app.OfferDetails == nil {
		result.AddError("offerDetails", "OFFER_DETAILS_MISSING", "La aplicación no tiene detalles de oferta")
	} else if !data.AcceptedAt.IsZero() && app.OfferDetails.ExpiresAt.Before(data.AcceptedAt) {
		// expiry exactly at acceptedAt is still acceptable
		result.AddError("offerDetails.expiresAt", appErrors.ErrOfferExpired.Code, MsgOfferExpired)
	}

	if len(data.CandidateNotes) > s.maxNoteLength {
		result.AddWarning("candidateNotes", "NOTES_TOO_LONG",
			fmt.Sprintf("Las notas exceden los %d caracteres recomendados", s.maxNoteLength))
	}

	if terms := data.NegotiatedTerms; terms != nil {
		if terms.StartDate != nil && terms.StartDate.Before(time.Now()) {
			result.AddWarning("negotiatedTerms.startDate", "NEGOTIATED_START_PAST", "La fecha de inicio negociada está en el pasado")
		}
	}

	return result, nil
}

// DetectInconsistencies sweeps one application for cross-cutting problems:
// illegal recorded transitions, date ordering, offer presence, and missing
// tracking updates. Diagnostic output, not gating; returns readable strings.
func (s *ValidationService) DetectInconsistencies(ctx context.Context, applicationID string) ([]string, error) {
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []string{"La aplicación no existe en el sistema"}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}

	issues := []string{}

	if s.audit != nil {
		trail := s.audit.GetAuditTrail(ctx, applicationID)
		changes := make([]models.StatusChangedDetails, 0, len(trail))
		for _, entry := range trail {
			if entry.EventType == models.EventStatusChanged && entry.Details.StatusChanged != nil {
				changes = append(changes, *entry.Details.StatusChanged)
			}
		}
		// trail is newest-first; replay oldest-first
		for i, j := 0, len(changes)-1; i < j; i, j = i+1, j-1 {
			changes[i], changes[j] = changes[j], changes[i]
		}
		for _, change := range changes {
			if !lifecycle.CanTransition(change.FromState, change.ToState) {
				issues = append(issues, fmt.Sprintf("Transición de estado inválida registrada: %s → %s", change.FromState, change.ToState))
			}
		}
		if len(changes) > 0 {
			last := changes[len(changes)-1]
			if last.ToState != app.Status {
				issues = append(issues, fmt.Sprintf("El estado actual (%s) no coincide con el último cambio registrado (%s)", app.Status, last.ToState))
			}
		}
	}

	if app.LastUpdate.Before(app.AppliedDate) {
		issues = append(issues, "La fecha de última actualización es anterior a la fecha de aplicación")
	}
	if app.InterviewDate != nil && app.InterviewDate.Before(app.AppliedDate) {
		issues = append(issues, "La fecha de entrevista es anterior a la fecha de aplicación")
	}

	if (app.Status == models.StatusOfferPending || app.Status == models.StatusOfferAccepted) && app.OfferDetails == nil {
		issues = append(issues, "Falta información de la oferta para el estado actual")
	}

	if lifecycle.IsExclusive(app.Status) && app.LastTrackingUpdate == nil {
		issues = append(issues, "No hay actualización de seguimiento registrada para la oferta aceptada")
	}

	return issues, nil
}

// GenerateIntegrityReport runs all registered rules against one application
// and tallies the outcome.
func (s *ValidationService) GenerateIntegrityReport(ctx context.Context, applicationID string) (*models.DataIntegrityReport, error) {
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrApplicationMissing
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}

	report := &models.DataIntegrityReport{
		ApplicationID:   applicationID,
		GeneratedAt:     time.Now().UTC(),
		RuleOutcomes:    make([]models.RuleOutcome, 0, len(s.rules)),
		Recommendations: []string{},
	}

	for _, rule := range s.rules {
		result := s.runRule(rule, *app)
		outcome := models.RuleOutcome{
			Rule:        rule.Name,
			Description: rule.Description,
			Severity:    rule.Severity,
			Passed:      result.IsValid,
			Result:      result,
		}
		report.RuleOutcomes = append(report.RuleOutcomes, outcome)

		switch {
		case !result.IsValid:
			report.ChecksFailed++
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("Corregir regla '%s': %s", rule.Name, result.Errors[0].Message))
		case len(result.Warnings) > 0:
			report.ChecksWarned++
			report.Recommendations = append(report.Recommendations,
				fmt.Sprintf("Revisar regla '%s': %s", rule.Name, result.Warnings[0].Message))
		default:
			report.ChecksPassed++
		}
	}

	switch {
	case report.ChecksFailed > 0:
		report.OverallStatus = models.IntegrityStatusErrors
	case report.ChecksWarned > 0:
		report.OverallStatus = models.IntegrityStatusWarnings
	default:
		report.OverallStatus = models.IntegrityStatusValid
		report.Recommendations = append(report.Recommendations, "Todos los datos de la aplicación son consistentes")
	}

	return report, nil
}

// runRule executes one rule, converting a panic inside the rule into a single
// VALIDATION_ERROR result.
func (s *ValidationService) runRule(rule Rule, app models.Application) (result models.ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("validation rule panicked",
				zap.String("rule", rule.Name), zap.Any("panic", r))
			result = models.NewValidationResult()
			result.AddError("", appErrors.ErrValidation.Code,
				fmt.Sprintf("La regla '%s' falló internamente", rule.Name))
		}
	}()
	return rule.Check(app)
}

func checkValidStatus(app models.Application) models.ValidationResult {
	result := models.NewValidationResult()
	if !lifecycle.IsKnown(app.Status) {
		result.AddError("status", "INVALID_STATUS", fmt.Sprintf("Estado de aplicación desconocido: %s", app.Status))
	}
	return result
}

func checkConsistentDates(app models.Application) models.ValidationResult {
	result := models.NewValidationResult()
	if app.LastUpdate.Before(app.AppliedDate) {
		result.AddError("lastUpdate", "INCONSISTENT_DATES", "La última actualización no puede ser anterior a la fecha de aplicación")
	}
	if app.InterviewDate != nil && app.InterviewDate.Before(app.AppliedDate) {
		result.AddError("interviewDate", "INCONSISTENT_DATES", "La fecha de entrevista no puede ser anterior a la fecha de aplicación")
	}
	return result
}

// checkValidExclusivity warns instead of failing: source data may lag behind
// the status value.
func checkValidExclusivity(app models.Application) models.ValidationResult {
	result := models.NewValidationResult()
	exclusive := lifecycle.IsExclusive(app.Status)
	marked := app.ExclusivityStatus == models.ExclusivityExclusive
	if exclusive && !marked {
		result.AddWarning("exclusivityStatus", "EXCLUSIVITY_MISMATCH",
			"El estado es exclusivo pero la aplicación no está marcada como exclusiva")
	}
	if !exclusive && marked {
		result.AddWarning("exclusivityStatus", "EXCLUSIVITY_MISMATCH",
			"La aplicación está marcada como exclusiva pero su estado no lo es")
	}
	return result
}

func checkValidOffer(app models.Application) models.ValidationResult {
	result := models.NewValidationResult()
	if app.Status != models.StatusOfferPending && app.Status != models.StatusOfferAccepted {
		return result
	}
	if app.OfferDetails == nil {
		result.AddError("offerDetails", "OFFER_DETAILS_MISSING", "Los detalles de la oferta son obligatorios para este estado")
		return result
	}
	if app.OfferDetails.Salary <= 0 {
		result.AddError("offerDetails.salary", "OFFER_SALARY_INVALID", "El salario de la oferta debe ser mayor que cero")
	}
	if !app.OfferDetails.ExpiresAt.After(app.OfferDetails.OfferedAt) {
		result.AddError("offerDetails.expiresAt", "OFFER_WINDOW_INVALID", "La oferta debe expirar después de su emisión")
	}
	return result
}
