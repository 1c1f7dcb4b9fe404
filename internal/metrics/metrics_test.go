package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// TestCollectorRegistersAndCounts verifies the collectors register cleanly
// and record observations under their published names.
func TestCollectorRegistersAndCounts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.ObserveRequest("POST", 200, 120*time.Millisecond)
	c.ObserveRequest("POST", 502, 80*time.Millisecond)
	c.ObserveRetry()
	c.ObserveEvent("document")
	c.ObserveEvent("document")
	c.ObserveEvent("done")
	c.WatcherOpened()

	require.Equal(t, float64(1), testutil.ToFloat64(c.requests.WithLabelValues("POST", "200")))
	require.Equal(t, float64(1), testutil.ToFloat64(c.requests.WithLabelValues("POST", "502")))
	require.Equal(t, float64(1), testutil.ToFloat64(c.retries))
	require.Equal(t, float64(2), testutil.ToFloat64(c.watcherEvents.WithLabelValues("document")))
	require.Equal(t, float64(1), testutil.ToFloat64(c.watcherEvents.WithLabelValues("done")))
	require.Equal(t, float64(1), testutil.ToFloat64(c.watchersActive))

	c.WatcherClosed()
	require.Equal(t, float64(0), testutil.ToFloat64(c.watchersActive))
}

// TestCollectorRejectsDuplicateRegistration ensures a second registration
// against the same registry surfaces the conflict.
func TestCollectorRejectsDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)

	_, err = NewCollector(reg)
	require.Error(t, err)
}

// TestCollectorNilIsNoOp confirms a nil collector absorbs calls silently.
func TestCollectorNilIsNoOp(t *testing.T) {
	t.Parallel()

	var c *Collector
	c.ObserveRequest("GET", 200, time.Millisecond)
	c.ObserveRetry()
	c.ObserveEvent("error")
	c.WatcherOpened()
	c.WatcherClosed()
}
