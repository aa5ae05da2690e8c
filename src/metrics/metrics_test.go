package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCacheResultCounts(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.CacheResult("profile", "hit")
	m.CacheResult("profile", "hit")
	m.CacheResult("profile", "miss")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheRequests.WithLabelValues("profile", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheRequests.WithLabelValues("profile", "miss")))
}

func TestObserveResolve(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveResolve(15*time.Millisecond, 3)
	m.Invalidation(false)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.networkCandidates))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheInvalidations.WithLabelValues("error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CacheResult("profile", "hit")
		m.Invalidation(true)
		m.ObserveResolve(time.Second, 1)
	})
}
