package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agrotrade/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.RFQTransition("AWARDED")
	m.QuoteSubmitted()
	m.OrderTransition("PAID")
	m.ExplanationFailed()
	m.ObserveRank(time.Second)
}

func TestCountersAndMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "test")

	m.RFQTransition("AWARDED")
	m.RFQTransition("AWARDED")
	m.QuoteSubmitted()
	require.Equal(t, 2.0, testutil.ToFloat64(m.RFQTransitions.WithLabelValues("AWARDED")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.QuotesSubmitted))

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/orders/{orderId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/orders/abc", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/orders/{orderId}", "418")))
}
