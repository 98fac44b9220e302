package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/talentflow/ats-offer-api/internal/models"
	"github.com/talentflow/ats-offer-api/pkg/config"
	"github.com/talentflow/ats-offer-api/pkg/jobs"
)

const (
	jobTypeOfferAcceptance = "offer_acceptance_notification"
	jobTypeStatusChange    = "status_change_notification"
)

// NotificationService dispatches out-of-band messages after successful
// acceptance transactions. Dispatch is fire-and-forget: the transaction never
// blocks on delivery, and delivery failures only surface in logs and retries.
type NotificationService struct {
	queue   *jobs.Queue
	logger  *zap.Logger
	enabled bool
}

// NewNotificationService constructs the dispatcher with its worker queue.
func NewNotificationService(cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{logger: logger, enabled: cfg.Enabled}
	s.queue = jobs.NewQueue("notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers.
func (s *NotificationService) Start(ctx context.Context) {
	if !s.enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *NotificationService) Stop() {
	if !s.enabled {
		return
	}
	s.queue.Stop()
}

// DispatchOfferAcceptance enqueues one acceptance notification.
func (s *NotificationService) DispatchOfferAcceptance(ctx context.Context, data models.OfferAcceptanceNotificationData) {
	if !s.enabled {
		return
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeOfferAcceptance,
		Payload: data,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue acceptance notification", zap.Error(err))
	}
}

// DispatchStatusChange enqueues one status alert.
func (s *NotificationService) DispatchStatusChange(ctx context.Context, data models.StatusChangeNotificationData) {
	if !s.enabled {
		return
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobTypeStatusChange,
		Payload: data,
	}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue status change notification", zap.Error(err))
	}
}

// handle delivers one notification. Actual channels (email, push, SMS) live
// outside this service; this logs the dispatch for the delivery collaborator
// to pick up.
func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	switch data := job.Payload.(type) {
	case models.OfferAcceptanceNotificationData:
		s.logger.Info("offer acceptance notification dispatched",
			zap.String("job_id", job.ID),
			zap.Time("acceptance_date", data.AcceptanceDate),
			zap.Strings("next_steps", data.NextSteps))
	case models.StatusChangeNotificationData:
		s.logger.Info("status change notification dispatched",
			zap.String("job_id", job.ID),
			zap.String("application_id", data.ApplicationID),
			zap.String("new_status", string(data.NewStatus)))
	default:
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
	}
	return nil
}
