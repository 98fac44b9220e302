package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ApplicationStatus enumerates the lifecycle states of a job application.
type ApplicationStatus string

// Initial-process phase.
const (
	StatusActive               ApplicationStatus = "active"
	StatusScreening            ApplicationStatus = "screening"
	StatusDocumentationPending ApplicationStatus = "documentation_pending"
	StatusAssessmentPending    ApplicationStatus = "assessment_pending"
)

// Pre-offer phase.
const (
	StatusInterviewScheduled ApplicationStatus = "interview_scheduled"
	StatusInterviewCompleted ApplicationStatus = "interview_completed"
	StatusTechnicalTest      ApplicationStatus = "technical_test"
	StatusReferenceCheck     ApplicationStatus = "reference_check"
	StatusBackgroundCheck    ApplicationStatus = "background_check"
)

// Offer phase.
const (
	StatusNegotiating   ApplicationStatus = "negotiating"
	StatusOfferPending  ApplicationStatus = "offer_pending"
	StatusOfferAccepted ApplicationStatus = "offer_accepted"
	StatusOfferDeclined ApplicationStatus = "offer_declined"
)

// Final phase.
const (
	StatusApproved  ApplicationStatus = "approved"
	StatusHired     ApplicationStatus = "hired"
	StatusRejected  ApplicationStatus = "rejected"
	StatusWithdrawn ApplicationStatus = "withdrawn"
	StatusExpired   ApplicationStatus = "expired"
)

// KnownStatuses lists every valid ApplicationStatus value.
var KnownStatuses = []ApplicationStatus{
	StatusActive, StatusScreening, StatusDocumentationPending, StatusAssessmentPending,
	StatusInterviewScheduled, StatusInterviewCompleted, StatusTechnicalTest,
	StatusReferenceCheck, StatusBackgroundCheck,
	StatusNegotiating, StatusOfferPending, StatusOfferAccepted, StatusOfferDeclined,
	StatusApproved, StatusHired, StatusRejected, StatusWithdrawn, StatusExpired,
}

// ExclusivityStatus reflects whether an application blocks the candidate's
// other applications.
type ExclusivityStatus string

const (
	ExclusivityNone      ExclusivityStatus = "none"
	ExclusivityExclusive ExclusivityStatus = "exclusive"
	ExclusivityWithdrawn ExclusivityStatus = "withdrawn"
)

// Stage is one step of the hiring pipeline for an application.
type Stage struct {
	ID            string     `db:"id" json:"id"`
	ApplicationID string     `db:"application_id" json:"applicationId"`
	Name          string     `db:"name" json:"name"`
	Status        string     `db:"status" json:"status"`
	Position      int        `db:"position" json:"position"`
	StartedAt     *time.Time `db:"started_at" json:"startedAt,omitempty"`
	CompletedAt   *time.Time `db:"completed_at" json:"completedAt,omitempty"`
}

// NegotiatedTerms carries the candidate's counter-offer on acceptance. Both
// fields are optional; nil means the original offer term stands.
type NegotiatedTerms struct {
	Salary    *float64   `json:"salary,omitempty" validate:"omitnil,gt=0"`
	StartDate *time.Time `json:"startDate,omitempty"`
}

// OfferDetails is present from the offer phase onward.
type OfferDetails struct {
	OfferedAt  time.Time  `json:"offeredAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	Salary     float64    `json:"salary"`
	Currency   string     `json:"currency"`
	Benefits   []string   `json:"benefits,omitempty"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty"`
	DeclinedAt *time.Time `json:"declinedAt,omitempty"`

	NegotiatedTerms *NegotiatedTerms `json:"negotiatedTerms,omitempty"`
}

// Value implements driver.Valuer so offer details persist as one JSONB column.
func (o OfferDetails) Value() (driver.Value, error) {
	return json.Marshal(o)
}

// Scan implements sql.Scanner.
func (o *OfferDetails) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, o)
	case string:
		return json.Unmarshal([]byte(v), o)
	default:
		return fmt.Errorf("unsupported offer details type %T", src)
	}
}

// Application is a candidate's pursuit of one position.
type Application struct {
	ID                 string            `db:"id" json:"id"`
	CandidateID        string            `db:"candidate_id" json:"candidateId"`
	JobID              string            `db:"job_id" json:"jobId"`
	Status             ApplicationStatus `db:"status" json:"status"`
	ExclusivityStatus  ExclusivityStatus `db:"exclusivity_status" json:"exclusivityStatus"`
	CurrentStageID     *string           `db:"current_stage_id" json:"currentStageId,omitempty"`
	OfferDetails       *OfferDetails     `db:"offer_details" json:"offerDetails,omitempty"`
	AppliedDate        time.Time         `db:"applied_date" json:"appliedDate"`
	LastUpdate         time.Time         `db:"last_update" json:"lastUpdate"`
	InterviewDate      *time.Time        `db:"interview_date" json:"interviewDate,omitempty"`
	LastTrackingUpdate *time.Time        `db:"last_tracking_update" json:"lastTrackingUpdate,omitempty"`

	Stages []Stage `db:"-" json:"stages,omitempty"`
}

// AcceptanceData is the candidate-supplied input to the acceptance transaction.
type AcceptanceData struct {
	AcceptedAt      time.Time        `json:"acceptedAt" validate:"required"`
	CandidateNotes  string           `json:"candidateNotes,omitempty"`
	NegotiatedTerms *NegotiatedTerms `json:"negotiatedTerms,omitempty" validate:"omitempty"`
}

// AcceptanceResult is the terminal outcome of one acceptance transaction.
// Failures after the mark-exclusive phase cannot be rolled back, so they are
// surfaced in Errors for the caller to reconcile.
type AcceptanceResult struct {
	Success      bool     `json:"success"`
	AcceptanceID string   `json:"acceptanceId,omitempty"`
	Errors       []string `json:"errors"`
	Warnings     []string `json:"warnings,omitempty"`
}

// ExclusivitySnapshot reports whether a candidate may accept further offers.
type ExclusivitySnapshot struct {
	CanAcceptOffers      bool          `json:"canAcceptOffers"`
	ExclusiveApplication *Application  `json:"exclusiveApplication,omitempty"`
	PendingApplications  []Application `json:"pendingApplications"`
}
