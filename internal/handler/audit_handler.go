package handler

import (
	"context"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/talentflow/ats-offer-api/internal/models"
	"github.com/talentflow/ats-offer-api/internal/service"
	appErrors "github.com/talentflow/ats-offer-api/pkg/errors"
	"github.com/talentflow/ats-offer-api/pkg/export"
	"github.com/talentflow/ats-offer-api/pkg/response"
)

type auditService interface {
	GetAuditTrail(ctx context.Context, applicationID string) []models.AuditEntry
	SearchEntries(ctx context.Context, filter models.AuditSearchFilter) ([]models.AuditEntry, error)
	Summary(ctx context.Context, applicationID string) (*models.AuditSummary, error)
	VerifyIntegrity(ctx context.Context, applicationID string) (*models.IntegrityResult, error)
	Export(ctx context.Context, applicationID string) (string, error)
	ExportDataset(ctx context.Context, applicationID string) (export.Dataset, error)
}

// AuditHandler exposes the compliance trail endpoints.
type AuditHandler struct {
	service auditService
	archive *service.ExportArchiveService
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
}

// NewAuditHandler constructs the handler. The archive may be nil; inline
// exports keep working without it.
func NewAuditHandler(svc auditService, archive *service.ExportArchiveService) *AuditHandler {
	return &AuditHandler{
		service: svc,
		archive: archive,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
	}
}

// Trail godoc
// @Summary Full audit trail for one application, newest first
// @Tags Audit
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/audit [get]
func (h *AuditHandler) Trail(c *gin.Context) {
	entries := h.service.GetAuditTrail(c.Request.Context(), c.Param("id"))
	response.JSON(c, http.StatusOK, entries, nil)
}

// Search godoc
// @Summary Search audit entries
// @Tags Audit
// @Produce json
// @Param applicationId query string false "Application ID"
// @Param eventTypes query string false "Comma separated event types"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} response.Envelope
// @Router /audit/search [get]
func (h *AuditHandler) Search(c *gin.Context) {
	filter := models.AuditSearchFilter{
		ApplicationID: strings.TrimSpace(c.Query("applicationId")),
	}
	if raw := c.Query("eventTypes"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				filter.EventTypes = append(filter.EventTypes, models.AuditEventType(part))
			}
		}
	}
	if raw := c.Query("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid 'from' timestamp"))
			return
		}
		filter.DateFrom = &ts
	}
	if raw := c.Query("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid 'to' timestamp"))
			return
		}
		filter.DateTo = &ts
	}
	filter.Limit, _ = strconv.Atoi(c.Query("limit"))
	filter.Offset, _ = strconv.Atoi(c.Query("offset"))

	entries, err := h.service.SearchEntries(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Summary godoc
// @Summary Aggregate audit counts per event type
// @Tags Audit
// @Produce json
// @Param applicationId query string false "Application ID"
// @Success 200 {object} response.Envelope
// @Router /audit/summary [get]
func (h *AuditHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), strings.TrimSpace(c.Query("applicationId")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Integrity godoc
// @Summary Cross-check the audit trail against the live application
// @Tags Audit
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/audit/integrity [get]
func (h *AuditHandler) Integrity(c *gin.Context) {
	result, err := h.service.VerifyIntegrity(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Export godoc
// @Summary Export the audit trail for compliance
// @Tags Audit
// @Produce json
// @Param id path string true "Application ID"
// @Param format query string false "json (default), csv or pdf"
// @Param archive query bool false "Store the export and return a signed download token"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/audit/export [get]
func (h *AuditHandler) Export(c *gin.Context) {
	applicationID := c.Param("id")
	format := strings.ToLower(c.DefaultQuery("format", "json"))

	if c.Query("archive") == "true" {
		if h.archive == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "export archiving is not configured"))
			return
		}
		archived, err := h.archive.Archive(c.Request.Context(), applicationID, format)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Created(c, archived)
		return
	}

	switch format {
	case "json":
		payload, err := h.service.Export(c.Request.Context(), applicationID)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "application/json", []byte(payload))
	case "csv":
		dataset, err := h.service.ExportDataset(c.Request.Context(), applicationID)
		if err != nil {
			response.Error(c, err)
			return
		}
		raw, err := h.csv.Render(dataset)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="audit-trail.csv"`)
		c.Data(http.StatusOK, "text/csv", raw)
	case "pdf":
		dataset, err := h.service.ExportDataset(c.Request.Context(), applicationID)
		if err != nil {
			response.Error(c, err)
			return
		}
		raw, err := h.pdf.Render(dataset, "Audit Trail "+applicationID)
		if err != nil {
			response.Error(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="audit-trail.pdf"`)
		c.Data(http.StatusOK, "application/pdf", raw)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unsupported export format"))
	}
}

// Download godoc
// @Summary Download an archived export with a signed token
// @Tags Audit
// @Param token query string true "Signed download token"
// @Success 200
// @Failure 400 {object} response.Envelope
// @Router /audit/exports/download [get]
func (h *AuditHandler) Download(c *gin.Context) {
	if h.archive == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "export archiving is not configured"))
		return
	}
	file, name, err := h.archive.Open(c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "failed to read export"))
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), contentTypeFor(name), file, map[string]string{
		"Content-Disposition": `attachment; filename="` + path.Base(name) + `"`,
	})
}

func contentTypeFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".csv"):
		return "text/csv"
	case strings.HasSuffix(name, ".pdf"):
		return "application/pdf"
	default:
		return "application/json"
	}
}
