package dto

import (
	"time"

	"github.com/talentflow/ats-offer-api/internal/models"
)

// AcceptProposalRequest is the payload for accepting a pending offer.
type AcceptProposalRequest struct {
	CandidateID     string                  `json:"candidateId" binding:"required"`
	AcceptedAt      time.Time               `json:"acceptedAt" binding:"required"`
	CandidateNotes  string                  `json:"candidateNotes"`
	NegotiatedTerms *models.NegotiatedTerms `json:"negotiatedTerms"`
}

// ToAcceptanceData maps the request onto the domain input.
func (r AcceptProposalRequest) ToAcceptanceData() models.AcceptanceData {
	return models.AcceptanceData{
		AcceptedAt:      r.AcceptedAt,
		CandidateNotes:  r.CandidateNotes,
		NegotiatedTerms: r.NegotiatedTerms,
	}
}

// ValidateAcceptanceRequest is the payload for the dry-run validation of an
// acceptance, without executing the transaction.
type ValidateAcceptanceRequest struct {
	AcceptedAt      time.Time               `json:"acceptedAt"`
	CandidateNotes  string                  `json:"candidateNotes"`
	NegotiatedTerms *models.NegotiatedTerms `json:"negotiatedTerms"`
}

// ToAcceptanceData maps the request onto the domain input.
func (r ValidateAcceptanceRequest) ToAcceptanceData() models.AcceptanceData {
	return models.AcceptanceData{
		AcceptedAt:      r.AcceptedAt,
		CandidateNotes:  r.CandidateNotes,
		NegotiatedTerms: r.NegotiatedTerms,
	}
}
