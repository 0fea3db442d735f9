package metrics

import (
	"strconv"
	"strings"
	"time"

	"crm-access-be/pkg/access"

	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	ServiceName string
	Environment string
}

// AccessMetrics counts access decisions and cache behaviour.
type AccessMetrics struct {
	decisions     *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
	invalidations *prometheus.CounterVec
	guardRuns     *prometheus.CounterVec
}

func NewAccessMetrics(registerer prometheus.Registerer, cfg Config) *AccessMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "crm-access"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &AccessMetrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "crm_access_decisions_total",
			Help:        "Feature access decisions by reason.",
			ConstLabels: constLabels,
		}, []string{"reason", "allowed"}),
		checkDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "crm_access_check_duration_seconds",
			Help:        "Latency of authoritative feature checks.",
			Buckets:     []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			ConstLabels: constLabels,
		}, []string{"cached"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "crm_access_cache_lookups_total",
			Help:        "Decision and effective-feature cache lookups.",
			ConstLabels: constLabels,
		}, []string{"cache", "result"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "crm_access_cache_invalidations_total",
			Help:        "Cache invalidations by scope and origin.",
			ConstLabels: constLabels,
		}, []string{"scope", "origin"}),
		guardRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "crm_access_guard_results_total",
			Help:        "Route guard outcomes.",
			ConstLabels: constLabels,
		}, []string{"state"}),
	}

	registerer.MustRegister(
		m.decisions,
		m.checkDuration,
		m.cacheLookups,
		m.invalidations,
		m.guardRuns,
	)
	return m
}

func (m *AccessMetrics) ObserveDecision(d access.Decision, cached bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(string(d.Reason), strconv.FormatBool(d.Allowed)).Inc()
	m.checkDuration.WithLabelValues(strconv.FormatBool(cached)).Observe(elapsed.Seconds())
}

func (m *AccessMetrics) CacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(cache, result).Inc()
}

func (m *AccessMetrics) Invalidated(scope, origin string) {
	if m == nil {
		return
	}
	m.invalidations.WithLabelValues(scope, origin).Inc()
}

func (m *AccessMetrics) GuardResult(state access.GuardState) {
	if m == nil {
		return
	}
	m.guardRuns.WithLabelValues(string(state)).Inc()
}
