package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service collectors. A nil *Metrics is valid and records
// nothing, so library users and tests do not need a registry.
type Metrics struct {
	RFQTransitions      *prometheus.CounterVec
	QuotesSubmitted     prometheus.Counter
	OrderTransitions    *prometheus.CounterVec
	ExplanationFailures prometheus.Counter
	RankDuration        prometheus.Histogram
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
}

// New creates the collectors with the given name prefix and registers them.
func New(reg prometheus.Registerer, prefix string) *Metrics {
	m := &Metrics{
		RFQTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_rfq_transitions_total",
				Help: "RFQ state transitions by target state",
			},
			[]string{"to"},
		),
		QuotesSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_quotes_submitted_total",
			Help: "Quotes created or replaced",
		}),
		OrderTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_order_transitions_total",
				Help: "Order fulfillment transitions by target state",
			},
			[]string{"to"},
		),
		ExplanationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_explanation_failures_total",
			Help: "Explanation oracle calls that failed or timed out",
		}),
		RankDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    prefix + "_rank_duration_seconds",
			Help:    "Duration of supplier ranking including explanations",
			Buckets: prometheus.DefBuckets,
		}),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
	reg.MustRegister(
		m.RFQTransitions,
		m.QuotesSubmitted,
		m.OrderTransitions,
		m.ExplanationFailures,
		m.RankDuration,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

func (m *Metrics) RFQTransition(to string) {
	if m != nil {
		m.RFQTransitions.WithLabelValues(to).Inc()
	}
}

func (m *Metrics) QuoteSubmitted() {
	if m != nil {
		m.QuotesSubmitted.Inc()
	}
}

func (m *Metrics) OrderTransition(to string) {
	if m != nil {
		m.OrderTransitions.WithLabelValues(to).Inc()
	}
}

func (m *Metrics) ExplanationFailed() {
	if m != nil {
		m.ExplanationFailures.Inc()
	}
}

func (m *Metrics) ObserveRank(d time.Duration) {
	if m != nil {
		m.RankDuration.Observe(d.Seconds())
	}
}

// Middleware records request count and latency labelled by the chi route
// pattern, so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := strconv.Itoa(ww.Status())
		m.HTTPRequests.WithLabelValues(r.Method, route, status).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
	})
}
