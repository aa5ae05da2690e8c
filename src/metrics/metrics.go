package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "linked_friend"

// Metrics is safe to use through a nil pointer, which records nothing.
type Metrics struct {
	cacheRequests      *prometheus.CounterVec
	cacheInvalidations *prometheus.CounterVec
	networkResolve     prometheus.Histogram
	networkCandidates  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Cache lookups by key namespace and result (hit, miss, error).",
		}, []string{"namespace", "result"}),
		cacheInvalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Cache invalidation attempts by result.",
		}, []string{"result"}),
		networkResolve: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "network_resolve_seconds",
			Help:      "Latency of friends-of-friends resolution.",
			Buckets:   prometheus.DefBuckets,
		}),
		networkCandidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "network_candidates_total",
			Help:      "Network candidates returned to callers.",
		}),
	}
	reg.MustRegister(m.cacheRequests, m.cacheInvalidations, m.networkResolve, m.networkCandidates)
	return m
}

func (m *Metrics) CacheResult(keyNamespace, result string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(keyNamespace, result).Inc()
}

func (m *Metrics) Invalidation(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.cacheInvalidations.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveResolve(elapsed time.Duration, candidates int) {
	if m == nil {
		return
	}
	m.networkResolve.Observe(elapsed.Seconds())
	m.networkCandidates.Add(float64(candidates))
}
