package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentflow/ats-offer-api/internal/models"
	"github.com/talentflow/ats-offer-api/pkg/response"
)

type stubAcceptanceService struct {
	result       models.AcceptanceResult
	snapshot     *models.ExclusivitySnapshot
	snapshotErr  error
	markErr      error
	lastProposal string
	lastData     models.AcceptanceData
}

func (s *stubAcceptanceService) AcceptProposal(ctx context.Context, proposalID, candidateID string, data models.AcceptanceData) models.AcceptanceResult {
	s.lastProposal = proposalID
	s.lastData = data
	return s.result
}

func (s *stubAcceptanceService) ValidateExclusivityStatus(ctx context.Context, candidateID string) (*models.ExclusivitySnapshot, error) {
	return s.snapshot, s.snapshotErr
}

func (s *stubAcceptanceService) MarkApplicationAsExclusive(ctx context.Context, applicationID string) error {
	return s.markErr
}

func buildAcceptanceRouter(svc *stubAcceptanceService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAcceptanceHandler(svc)
	r.POST("/applications/:id/accept", h.Accept)
	r.POST("/applications/:id/exclusive", h.MarkExclusive)
	r.GET("/candidates/:id/exclusivity", h.Exclusivity)
	return r
}

func performRequest(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestAcceptEndpointSuccess(t *testing.T) {
	svc := &stubAcceptanceService{
		result: models.AcceptanceResult{Success: true, AcceptanceID: "acc-1", Errors: []string{}},
	}
	router := buildAcceptanceRouter(svc)

	payload, _ := json.Marshal(map[string]interface{}{
		"candidateId": "cand-1",
		"acceptedAt":  time.Now().Format(time.RFC3339),
	})
	req, _ := http.NewRequest(http.MethodPost, "/applications/app-1/accept", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "app-1", svc.lastProposal)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["success"])
	assert.Equal(t, "acc-1", data["acceptanceId"])
}

func TestAcceptEndpointRejectionReturnsConflict(t *testing.T) {
	svc := &stubAcceptanceService{
		result: models.AcceptanceResult{Errors: []string{"La oferta ha expirado y no puede ser aceptada"}},
	}
	router := buildAcceptanceRouter(svc)

	payload, _ := json.Marshal(map[string]interface{}{
		"candidateId": "cand-1",
		"acceptedAt":  time.Now().Format(time.RFC3339),
	})
	req, _ := http.NewRequest(http.MethodPost, "/applications/app-1/accept", bytes.NewBuffer(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusConflict, resp.Code)
	assert.Contains(t, resp.Body.String(), "La oferta ha expirado")
}

func TestAcceptEndpointRejectsMissingFields(t *testing.T) {
	router := buildAcceptanceRouter(&stubAcceptanceService{})

	req, _ := http.NewRequest(http.MethodPost, "/applications/app-1/accept", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp := performRequest(router, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "VALIDATION_ERROR")
}

func TestExclusivityEndpoint(t *testing.T) {
	svc := &stubAcceptanceService{
		snapshot: &models.ExclusivitySnapshot{CanAcceptOffers: false, PendingApplications: []models.Application{}},
	}
	router := buildAcceptanceRouter(svc)

	req, _ := http.NewRequest(http.MethodGet, "/candidates/cand-1/exclusivity", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"canAcceptOffers":false`)
}

func TestMarkExclusiveEndpointNotFound(t *testing.T) {
	svc := &stubAcceptanceService{markErr: sql.ErrNoRows}
	router := buildAcceptanceRouter(svc)

	req, _ := http.NewRequest(http.MethodPost, "/applications/missing/exclusive", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Contains(t, resp.Body.String(), "APPLICATION_NOT_FOUND")
}

func TestMarkExclusiveEndpointNoContent(t *testing.T) {
	router := buildAcceptanceRouter(&stubAcceptanceService{})

	req, _ := http.NewRequest(http.MethodPost, "/applications/app-1/exclusive", nil)
	resp := performRequest(router, req)

	require.Equal(t, http.StatusNoContent, resp.Code)
}
