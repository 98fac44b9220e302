package models

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// AuditEventType classifies audited events.
type AuditEventType string

const (
	EventStatusChanged        AuditEventType = "status_changed"
	EventOfferAccepted        AuditEventType = "offer_accepted"
	EventApplicationWithdrawn AuditEventType = "application_withdrawn"
	EventValidationFailed     AuditEventType = "validation_failed"
)

// CriticalEventTypes are inherently critical regardless of application state.
var CriticalEventTypes = map[AuditEventType]bool{
	EventOfferAccepted:        true,
	EventApplicationWithdrawn: true,
}

// StatusChangedDetails records one status transition.
type StatusChangedDetails struct {
	FromState ApplicationStatus `json:"fromState"`
	ToState   ApplicationStatus `json:"toState"`
	Reason    string            `json:"reason,omitempty"`
}

// OfferAcceptedDetails records the accepted terms for non-repudiation.
type OfferAcceptedDetails struct {
	AcceptanceID    string           `json:"acceptanceId"`
	AcceptedAt      time.Time        `json:"acceptedAt"`
	Salary          float64          `json:"salary"`
	Currency        string           `json:"currency"`
	NegotiatedTerms *NegotiatedTerms `json:"negotiatedTerms,omitempty"`
	TriggeredBy     string           `json:"triggeredBy"`
}

// WithdrawalDetails records a cascade withdrawal tied to an acceptance.
type WithdrawalDetails struct {
	PreviousStatus        ApplicationStatus `json:"previousStatus"`
	Reason                string            `json:"reason,omitempty"`
	TriggeredBy           string            `json:"triggeredBy"`
	TriggeredByAcceptance bool              `json:"triggeredByAcceptance"`
	AcceptanceID          string            `json:"acceptanceId,omitempty"`
}

// ValidationFailedDetails records which rules rejected a write.
type ValidationFailedDetails struct {
	Codes  []string `json:"codes"`
	Fields []string `json:"fields,omitempty"`
}

// AuditDetails is a tagged union: exactly one variant is set, selected by the
// entry's EventType. Stored as a single JSON column so every entry keeps one
// shape on disk.
type AuditDetails struct {
	StatusChanged    *StatusChangedDetails    `json:"statusChanged,omitempty"`
	OfferAccepted    *OfferAcceptedDetails    `json:"offerAccepted,omitempty"`
	Withdrawal       *WithdrawalDetails       `json:"withdrawal,omitempty"`
	ValidationFailed *ValidationFailedDetails `json:"validationFailed,omitempty"`
}

// Value implements driver.Valuer.
func (d AuditDetails) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner.
func (d *AuditDetails) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported audit details type %T", src)
	}
}

// AuditEntry is an immutable record of one state-affecting event. Entries are
// only appended, never mutated or deleted by normal operation.
type AuditEntry struct {
	ID            string         `db:"id" json:"id"`
	ApplicationID string         `db:"application_id" json:"applicationId"`
	EventType     AuditEventType `db:"event_type" json:"eventType"`
	Timestamp     time.Time      `db:"timestamp" json:"timestamp"`
	Details       AuditDetails   `db:"details" json:"details"`
	Reason        *string        `db:"reason" json:"reason,omitempty"`
	IPAddress     string         `db:"ip_address" json:"ipAddress,omitempty"`
	UserAgent     string         `db:"user_agent" json:"userAgent,omitempty"`
}

// AuditSearchFilter constrains audit listing queries.
type AuditSearchFilter struct {
	ApplicationID string
	EventTypes    []AuditEventType
	DateFrom      *time.Time
	DateTo        *time.Time
	Limit         int
	Offset        int
}

// AuditDateRange bounds the oldest and newest entries of a summary.
type AuditDateRange struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// AuditSummary aggregates the trail for display and export.
type AuditSummary struct {
	TotalEntries   int                    `json:"totalEntries"`
	EntriesByType  map[AuditEventType]int `json:"entriesByType"`
	DateRange      AuditDateRange         `json:"dateRange"`
	CriticalEvents []AuditEntry           `json:"criticalEvents"`
}

// IntegritySummary quantifies the integrity verification outcome.
type IntegritySummary struct {
	TotalEntries   int        `json:"totalEntries"`
	MissingEntries int        `json:"missingEntries"`
	LastEntry      *time.Time `json:"lastEntry,omitempty"`
}

// IntegrityResult is the outcome of cross-checking the trail against the live
// application record.
type IntegrityResult struct {
	IsValid bool             `json:"isValid"`
	Issues  []string         `json:"issues"`
	Summary IntegritySummary `json:"summary"`
}

// OfferAcceptanceAudit is the payload for logging an accepted offer.
type OfferAcceptanceAudit struct {
	ApplicationID   string
	AcceptanceID    string
	AcceptedAt      time.Time
	Salary          float64
	Currency        string
	NegotiatedTerms *NegotiatedTerms
	Actor           ActorMetadata
}

// ActorMetadata identifies the requesting client for non-repudiation.
type ActorMetadata struct {
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

type actorContextKey struct{}

// WithActor stores actor metadata on the context.
func WithActor(ctx context.Context, actor ActorMetadata) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor metadata stored on the context, if any.
func ActorFromContext(ctx context.Context) ActorMetadata {
	if actor, ok := ctx.Value(actorContextKey{}).(ActorMetadata); ok {
		return actor
	}
	return ActorMetadata{}
}
