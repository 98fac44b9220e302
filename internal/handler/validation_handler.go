package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/talentflow/ats-offer-api/internal/dto"
	"github.com/talentflow/ats-offer-api/internal/models"
	appErrors "github.com/talentflow/ats-offer-api/pkg/errors"
	"github.com/talentflow/ats-offer-api/pkg/response"
)

type validationService interface {
	ValidateBeforePersist(ctx context.Context, app models.Application) models.ValidationResult
	ValidateProposalAcceptance(ctx context.Context, applicationID string, data models.AcceptanceData) (models.ValidationResult, error)
	DetectInconsistencies(ctx context.Context, applicationID string) ([]string, error)
	GenerateIntegrityReport(ctx context.Context, applicationID string) (*models.DataIntegrityReport, error)
}

// ValidationHandler exposes the rule engine over HTTP.
type ValidationHandler struct {
	service validationService
}

// NewValidationHandler constructs the handler.
func NewValidationHandler(service validationService) *ValidationHandler {
	return &ValidationHandler{service: service}
}

// Validate godoc
// @Summary Run the registered validation rules against an application payload
// @Tags Validation
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body models.Application true "Application state to validate"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /applications/{id}/validate [post]
func (h *ValidationHandler) Validate(c *gin.Context) {
	var app models.Application
	if err := c.ShouldBindJSON(&app); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid application payload"))
		return
	}
	app.ID = c.Param("id")

	result := h.service.ValidateBeforePersist(c.Request.Context(), app)
	response.JSON(c, http.StatusOK, result, nil)
}

// ValidateAcceptance godoc
// @Summary Dry-run the acceptance checks without mutating anything
// @Tags Validation
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.ValidateAcceptanceRequest true "Acceptance data"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /applications/{id}/validate-acceptance [post]
func (h *ValidationHandler) ValidateAcceptance(c *gin.Context) {
	var req dto.ValidateAcceptanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid acceptance payload"))
		return
	}

	result, err := h.service.ValidateProposalAcceptance(c.Request.Context(), c.Param("id"), req.ToAcceptanceData())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Inconsistencies godoc
// @Summary List detected inconsistencies between application state and history
// @Tags Validation
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/inconsistencies [get]
func (h *ValidationHandler) Inconsistencies(c *gin.Context) {
	issues, err := h.service.DetectInconsistencies(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if issues == nil {
		issues = []string{}
	}
	response.JSON(c, http.StatusOK, gin.H{"issues": issues, "count": len(issues)}, nil)
}

// IntegrityReport godoc
// @Summary Full consistency report with recommendations
// @Tags Validation
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/{id}/integrity-report [get]
func (h *ValidationHandler) IntegrityReport(c *gin.Context) {
	report, err := h.service.GenerateIntegrityReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
