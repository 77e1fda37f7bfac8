package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveLookup(t *testing.T) {
	before := testutil.ToFloat64(RegisterLookups.WithLabelValues(OutcomeError))

	ObserveLookup(OutcomeError, 250*time.Millisecond)

	assert.Equal(t, before+1, testutil.ToFloat64(RegisterLookups.WithLabelValues(OutcomeError)))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(RegisterLookupDuration), 1)
}

func TestMetricsMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := HTTPRequestTotals.WithLabelValues(http.MethodGet, "/health", "418")
	before := testutil.ToFloat64(counter)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
	assert.Equal(t, float64(0), testutil.ToFloat64(HTTPRequestInFlight))
}

func TestMetricsMiddlewareUnmatchedRoute(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/health", func(http.ResponseWriter, *http.Request) {})

	counter := HTTPRequestTotals.WithLabelValues(http.MethodGet, "unmatched", "404")
	before := testutil.ToFloat64(counter)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/does-not-exist", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
