// Package lifecycle classifies application statuses and transition legality.
//
// All functions are pure and never return errors: ambiguous transitions
// default to allowed so legitimate workflow variance is not blocked.
package lifecycle

import "github.com/talentflow/ats-offer-api/internal/models"

// exclusiveStatuses legally permit only one such application per candidate.
var exclusiveStatuses = map[models.ApplicationStatus]bool{
	models.StatusOfferAccepted: true,
	models.StatusApproved:      true,
	models.StatusHired:         true,
}

// finalStatuses expect no further transitions.
var finalStatuses = map[models.ApplicationStatus]bool{
	models.StatusHired:         true,
	models.StatusRejected:      true,
	models.StatusWithdrawn:     true,
	models.StatusExpired:       true,
	models.StatusOfferDeclined: true,
}

// transitions encodes the phases where sequence matters. A from-state absent
// from this map places no restriction on its outgoing transitions; the table
// captures known illegal reversals, not an exhaustive whitelist.
var transitions = map[models.ApplicationStatus][]models.ApplicationStatus{
	models.StatusNegotiating:   {models.StatusOfferPending, models.StatusOfferDeclined, models.StatusWithdrawn, models.StatusExpired},
	models.StatusOfferPending:  {models.StatusOfferAccepted, models.StatusOfferDeclined, models.StatusExpired, models.StatusWithdrawn, models.StatusNegotiating},
	models.StatusOfferAccepted: {models.StatusApproved, models.StatusHired, models.StatusWithdrawn},
	models.StatusApproved:      {models.StatusHired, models.StatusWithdrawn},
	models.StatusHired:         {},
	models.StatusRejected:      {},
	models.StatusWithdrawn:     {},
	models.StatusExpired:       {},
	models.StatusOfferDeclined: {},
}

// IsExclusive reports whether the status blocks the candidate's other
// applications.
func IsExclusive(status models.ApplicationStatus) bool {
	return exclusiveStatuses[status]
}

// IsFinal reports whether the status is terminal.
func IsFinal(status models.ApplicationStatus) bool {
	return finalStatuses[status]
}

// IsCritical reports whether the status requires immediate notification.
func IsCritical(status models.ApplicationStatus) bool {
	return status == models.StatusOfferPending || IsExclusive(status)
}

// IsKnown reports whether the status is one of the enumerated values.
func IsKnown(status models.ApplicationStatus) bool {
	for _, s := range models.KnownStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// CanHoldMultiple reports whether the candidate may keep every application in
// the set active at once. False as soon as any application is exclusive.
func CanHoldMultiple(applications []models.Application) bool {
	for _, app := range applications {
		if IsExclusive(app.Status) {
			return false
		}
	}
	return true
}

// CanTransition reports whether moving from → to is legal. From-states not
// covered by the table are permitted by default.
func CanTransition(from, to models.ApplicationStatus) bool {
	allowed, ok := transitions[from]
	if !ok {
		return true
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the restricted to-states for a from-state and
// whether the from-state is restricted at all.
func AllowedTransitions(from models.ApplicationStatus) ([]models.ApplicationStatus, bool) {
	allowed, ok := transitions[from]
	if !ok {
		return nil, false
	}
	out := make([]models.ApplicationStatus, len(allowed))
	copy(out, allowed)
	return out, true
}
