package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
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
		w.WriteHeader(http.StatusConflict)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/admins/{id}/user")
	req := httptest.NewRequest(http.MethodPut, "/admins/a1/user", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusConflict, rr.Code)

	body := scrape(t, metrics)
	require.Contains(t, body, `odyssey_http_requests_total{code="409",route="/admins/{id}/user"} 1`)
	require.Contains(t, body, `odyssey_http_request_duration_seconds_bucket{route="/admins/{id}/user"`)
}

func TestObserveLinkOperation(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveLinkOperation("link", "linked")
	metrics.ObserveLinkOperation("link", "linked")
	metrics.ObserveLinkOperation("unlink", "busy")

	body := scrape(t, metrics)
	require.Contains(t, body, `odyssey_admin_link_operations_total{op="link",outcome="linked"} 2`)
	require.Contains(t, body, `odyssey_admin_link_operations_total{op="unlink",outcome="busy"} 1`)
}

func TestSetHalfLinksReplacesPreviousRun(t *testing.T) {
	metrics := NewMetrics()
	metrics.SetHalfLinks(map[string]int{"admin_one_sided": 2, "mismatch": 1}, time.Unix(100, 0))
	metrics.SetHalfLinks(map[string]int{"user_dangling": 1}, time.Unix(200, 0))

	body := scrape(t, metrics)
	require.Contains(t, body, `odyssey_admin_half_links{kind="user_dangling"} 1`)
	require.NotContains(t, body, `kind="admin_one_sided"`)
	require.Contains(t, body, "odyssey_admin_link_audit_last_run_timestamp_seconds 200")
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveLinkOperation("link", "linked")
	metrics.SetHalfLinks(nil, time.Now())

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	require.NotNil(t, metrics.Middleware(next))

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
