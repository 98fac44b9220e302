package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the acceptance
// pipeline and the HTTP surface.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	acceptanceTotal  *prometheus.CounterVec
	withdrawalsBatch prometheus.Histogram
	auditWrites      *prometheus.CounterVec
	auditReads       *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	acceptanceTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "offer_acceptance_total",
		Help: "Acceptance transactions by terminal outcome",
	}, []string{"result"})

	withdrawalsBatch := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "offer_acceptance_withdrawals",
		Help:    "Competing applications withdrawn per acceptance",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
	})

	auditWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_writes_total",
		Help: "Audit entry writes by status",
	}, []string{"status"})

	auditReads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "audit_reads_total",
		Help: "Audit trail reads by status",
	}, []string{"status"})

	registry.MustRegister(requestDuration, requestTotal, acceptanceTotal, withdrawalsBatch, auditWrites, auditReads)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		acceptanceTotal:  acceptanceTotal,
		withdrawalsBatch: withdrawalsBatch,
		auditWrites:      auditWrites,
		auditReads:       auditReads,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one served request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// RecordAcceptance tallies a terminal transaction outcome.
func (s *MetricsService) RecordAcceptance(result string) {
	if s == nil {
		return
	}
	s.acceptanceTotal.WithLabelValues(result).Inc()
}

// RecordWithdrawals observes the cascade size of one acceptance.
func (s *MetricsService) RecordWithdrawals(count int) {
	if s == nil {
		return
	}
	s.withdrawalsBatch.Observe(float64(count))
}

// RecordAuditWrite tallies one audit append.
func (s *MetricsService) RecordAuditWrite(ok bool) {
	if s == nil {
		return
	}
	s.auditWrites.WithLabelValues(outcomeLabel(ok)).Inc()
}

// RecordAuditRead tallies one audit retrieval.
func (s *MetricsService) RecordAuditRead(ok bool) {
	if s == nil {
		return
	}
	s.auditReads.WithLabelValues(outcomeLabel(ok)).Inc()
}

func outcomeLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
