// AngelaMos | 2026
// metrics_test.go

package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New("test")

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/users/{userID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, id := range []string{"a", "b", "c"} {
		req := httptest.NewRequest(http.MethodGet, "/users/"+id, nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	got := testutil.ToFloat64(
		m.httpRequests.WithLabelValues(http.MethodGet, "/users/{userID}", "418"),
	)
	assert.Equal(t, float64(3), got)
}

func TestDomainCounters(t *testing.T) {
	m := New("test")

	m.AuthEvent("login", "success")
	m.AuthEvent("login", "success")
	m.CodeIssued()
	m.CodeDeliveryFailed()
	m.CodeConsumed("expired")
	m.RateLimited("strict")
	m.JobRun("ad_sweep", time.Millisecond, nil)
	m.JobRun("ad_sweep", time.Millisecond, errors.New("boom"))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.authEvents.WithLabelValues("login", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.codesIssued))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.codeDeliveryFailed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.codesConsumed.WithLabelValues("expired")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.rateLimited.WithLabelValues("strict")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.jobRuns.WithLabelValues("ad_sweep", "error")))
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New("test")
	m.CodeIssued()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_verification_codes_issued_total 1")
}
