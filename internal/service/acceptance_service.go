package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talentflow/ats-offer-api/internal/lifecycle"
	"github.com/talentflow/ats-offer-api/internal/models"
	"github.com/talentflow/ats-offer-api/internal/repository"
	appErrors "github.com/talentflow/ats-offer-api/pkg/errors"
)

// User-facing rejection messages.
const (
	MsgOfferExpired       = "La oferta ha expirado y no puede ser aceptada"
	MsgAlreadyAccepted    = "Ya tienes una oferta aceptada. No puedes aceptar múltiples ofertas simultáneamente"
	MsgProposalNotFound   = "La propuesta no fue encontrada"
	MsgPendingWithdrawals = "Tienes %d ofertas pendientes que serán automáticamente retiradas"
	MsgInternalError      = "Error interno: %s"
)

type applicationStore interface {
	applicationReader
	GetByCandidate(ctx context.Context, candidateID string) ([]models.Application, error)
	MarkExclusive(ctx context.Context, params repository.MarkExclusiveParams) error
	WithdrawCompetitors(ctx context.Context, candidateID, exceptID string, now time.Time) ([]string, error)
	SetExclusivityStatus(ctx context.Context, id string, status models.ExclusivityStatus) error
	TouchTrackingUpdate(ctx context.Context, id string, ts time.Time) error
}

type acceptanceAuditLogger interface {
	LogOfferAcceptance(ctx context.Context, audit models.OfferAcceptanceAudit) error
	LogWithdrawal(ctx context.Context, applicationID string, details models.WithdrawalDetails) error
}

type acceptanceValidator interface {
	ValidateProposalAcceptance(ctx context.Context, applicationID string, data models.AcceptanceData) (models.ValidationResult, error)
}

type exclusivityCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type notificationDispatcher interface {
	DispatchOfferAcceptance(ctx context.Context, data models.OfferAcceptanceNotificationData)
	DispatchStatusChange(ctx context.Context, data models.StatusChangeNotificationData)
}

// AcceptanceService coordinates the offer-acceptance transaction:
// validate → mark exclusive → withdraw competitors → audit. There is no
// compensating rollback once the mark-exclusive write lands, so later
// failures are surfaced in AcceptanceResult.Errors for the caller to
// reconcile instead of being presented as all-or-nothing.
type AcceptanceService struct {
	apps      applicationStore
	audit     acceptanceAuditLogger
	validator acceptanceValidator
	cache     exclusivityCache
	notifier  notificationDispatcher
	metrics   *MetricsService
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// AcceptanceServiceOption configures the service.
type AcceptanceServiceOption func(*AcceptanceService)

// WithExclusivityCache enables the candidate exclusivity snapshot cache.
func WithExclusivityCache(cache exclusivityCache, ttl time.Duration) AcceptanceServiceOption {
	return func(s *AcceptanceService) {
		s.cache = cache
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithNotificationDispatcher sets the fire-and-forget notifier.
func WithNotificationDispatcher(notifier notificationDispatcher) AcceptanceServiceOption {
	return func(s *AcceptanceService) {
		s.notifier = notifier
	}
}

// WithAcceptanceMetrics attaches Prometheus instrumentation.
func WithAcceptanceMetrics(metrics *MetricsService) AcceptanceServiceOption {
	return func(s *AcceptanceService) {
		s.metrics = metrics
	}
}

// NewAcceptanceService constructs the coordinator.
func NewAcceptanceService(apps applicationStore, audit acceptanceAuditLogger, validator acceptanceValidator, logger *zap.Logger, opts ...AcceptanceServiceOption) *AcceptanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AcceptanceService{
		apps:      apps,
		audit:     audit,
		validator: validator,
		cacheTTL:  5 * time.Minute,
		logger:    logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// ValidateAcceptance checks whether the candidate may accept the proposal.
// Exclusivity is re-read here as the first step so a duplicate concurrent
// call observes the first call's effect and is rejected. The candidate's
// application set is returned so the transaction reads it exactly once.
func (s *AcceptanceService) ValidateAcceptance(ctx context.Context, proposalID, candidateID string, data models.AcceptanceData) (models.ValidationResult, []models.Application, error) {
	result := models.NewValidationResult()

	applications, err := s.apps.GetByCandidate(ctx, candidateID)
	if err != nil {
		return result, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load candidate applications")
	}

	var target *models.Application
	pendingOthers := 0
	for i := range applications {
		app := &applications[i]
		if app.ID == proposalID {
			target = app
			continue
		}
		if lifecycle.IsExclusive(app.Status) {
			result.AddError("candidateId", appErrors.ErrAlreadyExclusive.Code, MsgAlreadyAccepted)
		}
		if app.Status == models.StatusOfferPending {
			pendingOthers++
		}
	}

	if target == nil {
		result.AddError("proposalId", appErrors.ErrApplicationMissing.Code, MsgProposalNotFound)
		return result, applications, nil
	}

	// A repeated press on an already accepted offer must read as a duplicate
	// acceptance, not as a generic wrong-status rejection.
	if lifecycle.IsExclusive(target.Status) {
		result.AddError("proposalId", appErrors.ErrAlreadyExclusive.Code, MsgAlreadyAccepted)
	}

	if target.OfferDetails != nil && target.OfferDetails.ExpiresAt.Before(time.Now()) {
		result.AddError("offerDetails.expiresAt", appErrors.ErrOfferExpired.Code, MsgOfferExpired)
	}

	if pendingOthers > 0 {
		result.AddWarning("candidateId", "PENDING_WITHDRAWALS",
			fmt.Sprintf(MsgPendingWithdrawals, pendingOthers))
	}

	dataResult, err := s.validator.ValidateProposalAcceptance(ctx, proposalID, data)
	if err != nil {
		return result, applications, err
	}
	result.Merge(dedupeAgainst(result, dataResult))

	return result, applications, nil
}

// AcceptProposal runs the full acceptance transaction. Terminal outcomes only:
// infrastructure failures are converted to errors inside the result, never
// propagated as Go errors to the HTTP layer.
func (s *AcceptanceService) AcceptProposal(ctx context.Context, proposalID, candidateID string, data models.AcceptanceData) models.AcceptanceResult {
	result := models.AcceptanceResult{Errors: []string{}}

	validation, applications, err := s.ValidateAcceptance(ctx, proposalID, candidateID, data)
	if err != nil {
		s.metrics.RecordAcceptance("error")
		result.Errors = append(result.Errors, fmt.Sprintf(MsgInternalError, err.Error()))
		return result
	}
	result.Warnings = validation.WarningMessages()
	if !validation.IsValid {
		s.metrics.RecordAcceptance("rejected")
		result.Errors = validation.ErrorMessages()
		return result
	}

	previousStatus := make(map[string]models.ApplicationStatus, len(applications))
	var target models.Application
	for _, app := range applications {
		previousStatus[app.ID] = app.Status
		if app.ID == proposalID {
			target = app
		}
	}

	if target.OfferDetails == nil {
		// the validator reads its own snapshot; never trust the two reads to agree
		s.metrics.RecordAcceptance("error")
		result.Errors = append(result.Errors, fmt.Sprintf(MsgInternalError, "missing offer details for application "+proposalID))
		return result
	}

	acceptanceID := uuid.NewString()
	acceptedAt := data.AcceptedAt
	offer := *target.OfferDetails
	offer.AcceptedAt = &acceptedAt
	if data.NegotiatedTerms != nil {
		offer.NegotiatedTerms = data.NegotiatedTerms
	}

	if err := s.apps.MarkExclusive(ctx, repository.MarkExclusiveParams{
		ApplicationID: proposalID,
		AcceptedAt:    acceptedAt,
		OfferDetails:  &offer,
	}); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// a concurrent acceptance won the conditional update
			s.metrics.RecordAcceptance("conflict")
			result.Errors = append(result.Errors, MsgAlreadyAccepted)
			return result
		}
		s.metrics.RecordAcceptance("error")
		result.Errors = append(result.Errors, fmt.Sprintf(MsgInternalError, err.Error()))
		return result
	}

	// From here on completed writes cannot be undone; collect every failure
	// so the caller can reconcile.
	now := time.Now().UTC()
	withdrawn, err := s.apps.WithdrawCompetitors(ctx, candidateID, proposalID, now)
	if err != nil {
		s.metrics.RecordAcceptance("error")
		result.Errors = append(result.Errors, fmt.Sprintf(MsgInternalError, err.Error()))
		return result
	}

	if err := s.audit.LogOfferAcceptance(ctx, models.OfferAcceptanceAudit{
		ApplicationID:   proposalID,
		AcceptanceID:    acceptanceID,
		AcceptedAt:      acceptedAt,
		Salary:          offer.Salary,
		Currency:        offer.Currency,
		NegotiatedTerms: offer.NegotiatedTerms,
		Actor:           models.ActorFromContext(ctx),
	}); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf(MsgInternalError, err.Error()))
	}

	for _, id := range withdrawn {
		if err := s.audit.LogWithdrawal(ctx, id, models.WithdrawalDetails{
			PreviousStatus:        previousStatus[id],
			Reason:                "Retirada automática por aceptación de otra oferta",
			TriggeredBy:           "system",
			TriggeredByAcceptance: true,
			AcceptanceID:          acceptanceID,
		}); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf(MsgInternalError, err.Error()))
		}
	}

	if err := s.apps.TouchTrackingUpdate(ctx, proposalID, now); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf(MsgInternalError, err.Error()))
	}

	if len(result.Errors) > 0 {
		s.metrics.RecordAcceptance("partial_failure")
		return result
	}

	s.invalidateExclusivity(ctx, candidateID)

	if s.notifier != nil {
		s.notifier.DispatchOfferAcceptance(ctx, models.OfferAcceptanceNotificationData{
			AcceptanceDate: acceptedAt,
			NextSteps:      []string{"Firma del contrato", "Documentación de incorporación"},
			OfferDetails:   &offer,
		})
		s.dispatchCriticalStatusChanges(ctx, candidateID, proposalID, withdrawn, now)
	}

	s.metrics.RecordAcceptance("success")
	s.metrics.RecordWithdrawals(len(withdrawn))
	s.logger.Info("offer accepted",
		zap.String("application_id", proposalID),
		zap.String("candidate_id", candidateID),
		zap.String("acceptance_id", acceptanceID),
		zap.Int("withdrawn", len(withdrawn)))

	result.Success = true
	result.AcceptanceID = acceptanceID
	return result
}

// ValidateExclusivityStatus reports whether the candidate is blocked from
// accepting further offers. Read-only; served from cache when warm.
func (s *AcceptanceService) ValidateExclusivityStatus(ctx context.Context, candidateID string) (*models.ExclusivitySnapshot, error) {
	key := repository.ExclusivityKey(candidateID)
	if s.cache != nil {
		var cached models.ExclusivitySnapshot
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("exclusivity cache read failed", zap.String("candidate_id", candidateID), zap.Error(err))
		}
	}

	applications, err := s.apps.GetByCandidate(ctx, candidateID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load candidate applications")
	}

	snapshot := &models.ExclusivitySnapshot{
		CanAcceptOffers:     true,
		PendingApplications: []models.Application{},
	}
	for i := range applications {
		app := applications[i]
		if lifecycle.IsExclusive(app.Status) {
			snapshot.CanAcceptOffers = false
			if snapshot.ExclusiveApplication == nil {
				exclusive := app
				snapshot.ExclusiveApplication = &exclusive
			}
		}
		if app.Status == models.StatusOfferPending {
			snapshot.PendingApplications = append(snapshot.PendingApplications, app)
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, snapshot, s.cacheTTL); err != nil {
			s.logger.Warn("exclusivity cache write failed", zap.String("candidate_id", candidateID), zap.Error(err))
		}
	}
	return snapshot, nil
}

// MarkApplicationAsExclusive flags exclusivity without the full acceptance
// flow. Persistence errors propagate unchanged; callers must know if this
// failed.
func (s *AcceptanceService) MarkApplicationAsExclusive(ctx context.Context, applicationID string) error {
	app, err := s.apps.GetByID(ctx, applicationID)
	if err != nil {
		return err
	}
	if err := s.apps.SetExclusivityStatus(ctx, applicationID, models.ExclusivityExclusive); err != nil {
		return err
	}
	s.invalidateExclusivity(ctx, app.CandidateID)
	return nil
}

// dispatchCriticalStatusChanges notifies only transitions into statuses that
// require immediate attention. The withdrawal cascade lands in a final status
// and stays silent here; it is still on the audit trail.
func (s *AcceptanceService) dispatchCriticalStatusChanges(ctx context.Context, candidateID, proposalID string, withdrawn []string, changedAt time.Time) {
	changes := make([]models.StatusChangeNotificationData, 0, len(withdrawn)+1)
	changes = append(changes, models.StatusChangeNotificationData{
		ApplicationID: proposalID,
		CandidateID:   candidateID,
		NewStatus:     models.StatusOfferAccepted,
		ChangedAt:     changedAt,
	})
	for _, id := range withdrawn {
		changes = append(changes, models.StatusChangeNotificationData{
			ApplicationID: id,
			CandidateID:   candidateID,
			NewStatus:     models.StatusWithdrawn,
			ChangedAt:     changedAt,
		})
	}
	for _, change := range changes {
		if lifecycle.IsCritical(change.NewStatus) {
			s.notifier.DispatchStatusChange(ctx, change)
		}
	}
}

func (s *AcceptanceService) invalidateExclusivity(ctx context.Context, candidateID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, repository.ExclusivityKey(candidateID)); err != nil {
		s.logger.Warn("exclusivity cache invalidation failed",
			zap.String("candidate_id", candidateID), zap.Error(err))
	}
}

// dedupeAgainst drops entries from extra that already exist in base so merged
// results do not repeat the same code for the same field.
func dedupeAgainst(base models.ValidationResult, extra models.ValidationResult) models.ValidationResult {
	out := models.NewValidationResult()
	seenErr := make(map[string]bool, len(base.Errors))
	for _, e := range base.Errors {
		seenErr[e.Code+"|"+e.Field] = true
	}
	for _, e := range extra.Errors {
		if !seenErr[e.Code+"|"+e.Field] {
			out.AddError(e.Field, e.Code, e.Message)
		}
	}
	seenWarn := make(map[string]bool, len(base.Warnings))
	for _, w := range base.Warnings {
		seenWarn[w.Code+"|"+w.Field] = true
	}
	for _, w := range extra.Warnings {
		if !seenWarn[w.Code+"|"+w.Field] {
			out.AddWarning(w.Field, w.Code, w.Message)
		}
	}
	return out
}
