package models

import "time"

// OfferAcceptanceNotificationData is handed to the notification dispatcher
// after a successful acceptance. Delivery is fire-and-forget; the transaction
// never blocks on it.
type OfferAcceptanceNotificationData struct {
	CandidateName  string        `json:"candidateName"`
	CompanyName    string        `json:"companyName"`
	PositionTitle  string        `json:"positionTitle"`
	AcceptanceDate time.Time     `json:"acceptanceDate"`
	NextSteps      []string      `json:"nextSteps"`
	OfferDetails   *OfferDetails `json:"offerDetails,omitempty"`
}

// StatusChangeNotificationData announces one application entering a status
// that warrants immediate attention.
type StatusChangeNotificationData struct {
	ApplicationID string            `json:"applicationId"`
	CandidateID   string            `json:"candidateId"`
	NewStatus     ApplicationStatus `json:"newStatus"`
	ChangedAt     time.Time         `json:"changedAt"`
}
