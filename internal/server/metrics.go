package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records pipeline, cache and HTTP events as Prometheus series. It
// implements the observability hook interfaces.
type Metrics struct {
	gatherer prometheus.Gatherer

	analyses         *prometheus.CounterVec
	analyzeDuration  prometheus.Histogram
	pairs            prometheus.Histogram
	degenerate       prometheus.Counter
	renders          *prometheus.CounterVec
	renderDuration   prometheus.Histogram
	cacheEvents      *prometheus.CounterVec
	cacheBytes       *prometheus.CounterVec
	requestsInFlight prometheus.Gauge
	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
}

var durationBuckets = []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000}

// NewMetrics creates the series and registers them with reg. Passing a
// fresh [prometheus.Registry] keeps tests independent of the global one.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		gatherer: reg,
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geoadjacency_analyses_total",
			Help: "Total analyses by outcome",
		}, []string{"status"}),
		analyzeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "geoadjacency_analyze_duration_ms",
			Help:    "Analysis duration in milliseconds, cached or not",
			Buckets: durationBuckets,
		}),
		pairs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "geoadjacency_pairs",
			Help:    "Adjacent pairs per analysis",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		degenerate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "geoadjacency_degenerate_total",
			Help: "Analyses with too few distinct vertices for a partition",
		}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geoadjacency_renders_total",
			Help: "Total rendered formats by outcome",
		}, []string{"format", "status"}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "geoadjacency_render_duration_ms",
			Help:    "Render duration in milliseconds",
			Buckets: durationBuckets,
		}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geoadjacency_cache_events_total",
			Help: "Cache hits, misses and writes by key type",
		}, []string{"type", "event"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geoadjacency_cache_written_bytes_total",
			Help: "Bytes written to the cache by key type",
		}, []string{"type"}),
		requestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "geoadjacency_http_requests_in_flight",
			Help: "HTTP requests being served",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "geoadjacency_http_requests_total",
			Help: "Total HTTP requests by route and status",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "geoadjacency_http_request_duration_ms",
			Help:    "HTTP request duration in milliseconds",
			Buckets: durationBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		m.analyses, m.analyzeDuration, m.pairs, m.degenerate,
		m.renders, m.renderDuration,
		m.cacheEvents, m.cacheBytes,
		m.requestsInFlight, m.requests, m.requestDuration,
	)
	return m
}

// Handler serves the registered series in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// OnAnalyzeStart implements observability.PipelineHooks.
func (m *Metrics) OnAnalyzeStart(context.Context, int) {}

// OnAnalyzeComplete implements observability.PipelineHooks.
func (m *Metrics) OnAnalyzeComplete(_ context.Context, pairs int, degenerate bool, d time.Duration, err error) {
	m.analyses.WithLabelValues(status(err)).Inc()
	if err != nil {
		return
	}
	m.analyzeDuration.Observe(ms(d))
	m.pairs.Observe(float64(pairs))
	if degenerate {
		m.degenerate.Inc()
	}
}

// OnRenderStart implements observability.PipelineHooks.
func (m *Metrics) OnRenderStart(context.Context, []string) {}

// OnRenderComplete implements observability.PipelineHooks.
func (m *Metrics) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	for _, f := range formats {
		m.renders.WithLabelValues(f, status(err)).Inc()
	}
	if err == nil {
		m.renderDuration.Observe(ms(d))
	}
}

// OnCacheHit implements observability.CacheHooks.
func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

// OnCacheMiss implements observability.CacheHooks.
func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

// OnCacheSet implements observability.CacheHooks.
func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheEvents.WithLabelValues(keyType, "set").Inc()
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

// OnRequest implements observability.HTTPHooks.
func (m *Metrics) OnRequest(context.Context, string, string) {
	m.requestsInFlight.Inc()
}

// OnResponse implements observability.HTTPHooks.
func (m *Metrics) OnResponse(_ context.Context, method, route string, code int, d time.Duration) {
	m.requestsInFlight.Dec()
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(ms(d))
}
