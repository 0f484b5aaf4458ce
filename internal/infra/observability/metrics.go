package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/boddenberg/insurance-crm-web/internal/domain"
)

// Metrics holds all Prometheus metrics for the CRM web client.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	backendDuration *prometheus.HistogramVec
	backendCalls    *prometheus.CounterVec
	backendErrors   *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	logins          *prometheus.CounterVec
	pageRenders     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		backendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crmweb_backend_request_duration_seconds",
				Help:    "Duration of backend API calls by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		backendCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crmweb_backend_requests_total",
				Help: "Total backend API calls by resource.",
			},
			[]string{"resource"},
		),
		backendErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crmweb_backend_errors_total",
				Help: "Total failed backend API calls by resource.",
			},
			[]string{"resource"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crmweb_query_cache_hits_total",
				Help: "Total query cache hits.",
			},
			[]string{"resource"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crmweb_query_cache_misses_total",
				Help: "Total query cache misses.",
			},
			[]string{"resource"},
		),
		logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crmweb_logins_total",
				Help: "Login attempts by outcome.",
			},
			[]string{"outcome"},
		),
		pageRenders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crmweb_page_renders_total",
				Help: "Rendered pages by page and outcome.",
			},
			[]string{"page", "outcome"},
		),
	}
}

// RecordBackendCall records the duration and outcome of one backend call.
func (m *Metrics) RecordBackendCall(resource, operation string, d time.Duration, err error) {
	m.backendDuration.WithLabelValues(operation).Observe(d.Seconds())
	m.backendCalls.WithLabelValues(resource).Inc()
	if err != nil {
		m.backendErrors.WithLabelValues(resource).Inc()
	}
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(resource string) {
	m.cacheHits.WithLabelValues(resource).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(resource string) {
	m.cacheMisses.WithLabelValues(resource).Inc()
}

// IncrLogin counts a login attempt: "success", "failure" or "throttled".
func (m *Metrics) IncrLogin(outcome string) {
	m.logins.WithLabelValues(outcome).Inc()
}

// IncrPageRender counts a rendered page: outcome is "ok" or "error".
func (m *Metrics) IncrPageRender(page, outcome string) {
	m.pageRenders.WithLabelValues(page, outcome).Inc()
}

// Snapshot summarises the client counters for the admin dashboard.
func (m *Metrics) Snapshot() *domain.ClientMetrics {
	calls := sumCounterVec(m.Registry, "crmweb_backend_requests_total")
	errs := sumCounterVec(m.Registry, "crmweb_backend_errors_total")
	hits := sumCounterVec(m.Registry, "crmweb_query_cache_hits_total")
	misses := sumCounterVec(m.Registry, "crmweb_query_cache_misses_total")

	snap := &domain.ClientMetrics{
		BackendCalls:  int64(calls),
		BackendErrors: int64(errs),
		CacheHits:     int64(hits),
		CacheMisses:   int64(misses),
		LoginSuccess:  int64(getCounterValue(m.logins, "success")),
		LoginFailure:  int64(getCounterValue(m.logins, "failure")),
	}
	if calls > 0 {
		snap.ErrorRate = errs / calls
	}
	if hits+misses > 0 {
		snap.CacheHitRate = hits / (hits + misses)
	}
	return snap
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounterVec adds up every series of the named counter family.
func sumCounterVec(reg *prometheus.Registry, name string) float64 {
	families, err := reg.Gather()
	if err != nil {
		return 0
	}
	var total float64
	for _, mf := range families {
		if mf.GetName() != name || mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		for _, metric := range mf.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}
