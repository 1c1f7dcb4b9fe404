// Package metrics exposes Prometheus collectors instrumenting the SDK's API
// traffic and stream watchers.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records client-side request and watcher activity. A nil
// Collector is a no-op on every method, so instrumentation stays optional.
type Collector struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	retries         prometheus.Counter
	watcherEvents   *prometheus.CounterVec
	watchersActive  prometheus.Gauge
}

// NewCollector registers the SDK collectors against reg. A nil reg falls
// back to the default registerer.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tidecrawl_requests_total",
			Help: "API requests partitioned by method and status code.",
		}, []string{"method", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tidecrawl_request_duration_seconds",
			Help:    "API request latency partitioned by method.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"method"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tidecrawl_request_retries_total",
			Help: "Request attempts repeated after a transient gateway error.",
		}),
		watcherEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tidecrawl_watcher_events_total",
			Help: "Stream events dispatched to subscribers partitioned by kind.",
		}, []string{"kind"}),
		watchersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tidecrawl_watchers_active",
			Help: "Watchers currently holding an open job stream.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		c.requests,
		c.requestDuration,
		c.retries,
		c.watcherEvents,
		c.watchersActive,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return c, nil
}

// ObserveRequest records one completed API request.
func (c *Collector) ObserveRequest(method string, code int, dur time.Duration) {
	if c == nil {
		return
	}
	c.requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
	c.requestDuration.WithLabelValues(method).Observe(dur.Seconds())
}

// ObserveRetry counts one repeated request attempt.
func (c *Collector) ObserveRetry() {
	if c == nil {
		return
	}
	c.retries.Inc()
}

// ObserveEvent counts one dispatched watcher event.
func (c *Collector) ObserveEvent(kind string) {
	if c == nil {
		return
	}
	c.watcherEvents.WithLabelValues(kind).Inc()
}

// WatcherOpened increments the active watcher gauge.
func (c *Collector) WatcherOpened() {
	if c == nil {
		return
	}
	c.watchersActive.Inc()
}

// WatcherClosed decrements the active watcher gauge.
func (c *Collector) WatcherClosed() {
	if c == nil {
		return
	}
	c.watchersActive.Dec()
}
