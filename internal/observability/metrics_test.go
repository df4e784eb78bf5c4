package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/results")

	req := httptest.NewRequest(http.MethodGet, "/results", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	assert.Contains(t, body, `ledger_http_requests_total{code="418",route="/results"} 1`)
	assert.Contains(t, body, `ledger_http_request_duration_seconds_bucket{route="/results"`)
}

func TestObserveExtractionAndUploads(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveExtraction("structured")
	metrics.ObserveExtraction("freeform")
	metrics.ObserveExtraction("freeform")
	metrics.ObserveUploadedFiles(3)
	metrics.ObserveUploadedFiles(0)

	body := scrape(t, metrics)
	assert.Contains(t, body, `ledger_extractions_total{outcome="structured"} 1`)
	assert.Contains(t, body, `ledger_extractions_total{outcome="freeform"} 2`)
	assert.Contains(t, body, `ledger_uploaded_files_total 3`)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveExtraction("structured")
	metrics.ObserveUploadedFiles(1)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
