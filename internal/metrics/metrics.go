// Package metrics exposes the service's Prometheus instrumentation.
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/raffaelramalhorosa/feed-digest/internal/models"
)

const namespace = "feed_digest"

// Upstream targets.
const (
	TargetFeed = "feed"
	TargetLLM  = "llm"
)

// Metrics holds the service's collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	UpstreamCalls   *prometheus.CounterVec
	SummaryDuration prometheus.Histogram
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

// StatsFunc reports cumulative cache hits and misses.
type StatsFunc func() (hits, misses uint64)

// New creates the collectors on a fresh registry, so several instances can
// coexist in one process (tests).
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		UpstreamCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_calls_total",
			Help:      "Calls to the feed and LLM upstreams by outcome",
		}, []string{"target", "result"}),
		SummaryDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "summary_duration_seconds",
			Help:      "Time spent generating one summary, LLM call included",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// RegisterCache exposes a cache's hit and miss counters under name.
func (m *Metrics) RegisterCache(name string, stats StatsFunc) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{"cache": name}
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "cache_hits_total",
			Help:        "Lookups served from a fresh cache entry",
			ConstLabels: labels,
		}, func() float64 {
			hits, _ := stats()
			return float64(hits)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "cache_misses_total",
			Help:        "Lookups that triggered a reload",
			ConstLabels: labels,
		}, func() float64 {
			_, misses := stats()
			return float64(misses)
		}),
	)
}

// ObserveUpstream counts one upstream call, classified by its error.
func (m *Metrics) ObserveUpstream(target string, err error) {
	if m == nil {
		return
	}
	m.UpstreamCalls.WithLabelValues(target, Result(err)).Inc()
}

// ObserveSummary records how long one summary took.
func (m *Metrics) ObserveSummary(d time.Duration) {
	if m == nil {
		return
	}
	m.SummaryDuration.Observe(d.Seconds())
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Result maps an error onto a low-cardinality label value.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrMalformedFeed):
		return "malformed_feed"
	case errors.Is(err, models.ErrUnexpectedResponseShape):
		return "unexpected_shape"
	case errors.Is(err, models.ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, models.ErrUpstreamUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
