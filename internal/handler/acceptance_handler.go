package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/talentflow/ats-offer-api/internal/dto"
	"github.com/talentflow/ats-offer-api/internal/models"
	appErrors "github.com/talentflow/ats-offer-api/pkg/errors"
	"github.com/talentflow/ats-offer-api/pkg/response"
)

type acceptanceService interface {
	AcceptProposal(ctx context.Context, proposalID, candidateID string, data models.AcceptanceData) models.AcceptanceResult
	ValidateExclusivityStatus(ctx context.Context, candidateID string) (*models.ExclusivitySnapshot, error)
	MarkApplicationAsExclusive(ctx context.Context, applicationID string) error
}

// AcceptanceHandler exposes the offer-acceptance transaction endpoints.
type AcceptanceHandler struct {
	service acceptanceService
}

// NewAcceptanceHandler constructs the handler.
func NewAcceptanceHandler(service acceptanceService) *AcceptanceHandler {
	return &AcceptanceHandler{service: service}
}

// Accept godoc
// @Summary Accept a pending offer
// @Tags Acceptance
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.AcceptProposalRequest true "Acceptance payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications/{id}/accept [post]
func (h *AcceptanceHandler) Accept(c *gin.Context) {
	var req dto.AcceptProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid acceptance payload"))
		return
	}

	result := h.service.AcceptProposal(c.Request.Context(), c.Param("id"), req.CandidateID, req.ToAcceptanceData())
	status := http.StatusOK
	if !result.Success {
		status = http.StatusConflict
	}
	response.JSON(c, status, result, nil)
}

// Exclusivity godoc
// @Summary Report whether a candidate can accept further offers
// @Tags Acceptance
// @Produce json
// @Param id path string true "Candidate ID"
// @Success 200 {object} response.Envelope
// @Router /candidates/{id}/exclusivity [get]
func (h *AcceptanceHandler) Exclusivity(c *gin.Context) {
	snapshot, err := h.service.ValidateExclusivityStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// MarkExclusive godoc
// @Summary Flag an application as exclusive without the full acceptance flow
// @Tags Acceptance
// @Param id path string true "Application ID"
// @Success 204
// @Router /applications/{id}/exclusive [post]
func (h *AcceptanceHandler) MarkExclusive(c *gin.Context) {
	if err := h.service.MarkApplicationAsExclusive(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			response.Error(c, appErrors.ErrApplicationMissing)
			return
		}
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
