package tidecrawl

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// TestWaitJobReturnsTerminalImmediately checks the status is probed once
// before any sleep, so an already-finished job returns without waiting.
func TestWaitJobReturnsTerminalImmediately(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	r := chi.NewRouter()
	r.Get("/v2/crawl/job-1", func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"success":true,"status":"completed","completed":2,"total":2,"data":[]}`)
	})
	clock := newStepClock()
	client := newTestClient(t, r, WithClock(clock))

	snap, err := client.WaitCrawl(context.Background(), "job-1", WaitOptions{})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, snap.Status)
	require.Equal(t, int32(1), hits.Load())
	require.Empty(t, clock.waited())
}

// TestWaitJobPollsUntilCompleted verifies the poll loop keeps fetching until
// a terminal status arrives and that sub-floor intervals are clamped to the
// two second minimum.
func TestWaitJobPollsUntilCompleted(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	statuses := []string{"scraping", "active", "completed"}
	r := chi.NewRouter()
	r.Get("/v2/crawl/job-1", func(w http.ResponseWriter, req *http.Request) {
		i := int(hits.Add(1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		fmt.Fprintf(w, `{"success":true,"status":%q,"completed":%d,"total":3,"data":[]}`, statuses[i], i)
	})
	clock := newStepClock()
	client := newTestClient(t, r, WithClock(clock))

	snap, err := client.WaitCrawl(context.Background(), "job-1", WaitOptions{PollInterval: 50 * time.Millisecond})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, snap.Status)
	require.Equal(t, int32(3), hits.Load())
	require.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, clock.waited())
}

// TestWaitJobTimeout checks a job that never finishes surfaces
// ErrWaitTimeout once the wall-clock budget is spent.
func TestWaitJobTimeout(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	r := chi.NewRouter()
	r.Get("/v2/crawl/job-1", func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"success":true,"status":"scraping","completed":0,"total":3,"data":[]}`)
	})
	clock := newStepClock()
	client := newTestClient(t, r, WithClock(clock))

	_, err := client.WaitCrawl(context.Background(), "job-1", WaitOptions{Timeout: 3 * time.Second})
	require.ErrorIs(t, err, ErrWaitTimeout)
	require.ErrorContains(t, err, "job-1")
	require.Equal(t, int32(3), hits.Load())
}

// TestWaitJobContextCancelled verifies a cancelled context interrupts the
// sleep between polls.
func TestWaitJobContextCancelled(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Get("/v2/crawl/job-1", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{"success":true,"status":"scraping","completed":0,"total":3,"data":[]}`)
	})
	clock := newGateClock()
	client := newTestClient(t, r, WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-clock.waited
		cancel()
	}()

	_, err := client.WaitCrawl(ctx, "job-1", WaitOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

// TestWaitJobPropagatesStatusError checks a failing status fetch aborts the
// wait with the underlying error.
func TestWaitJobPropagatesStatusError(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Get("/v2/crawl/job-1", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"job not found"}`)
	})
	client := newTestClient(t, r, WithClock(newStepClock()))

	_, err := client.WaitCrawl(context.Background(), "job-1", WaitOptions{})
	require.ErrorIs(t, err, ErrNotFound)
}

// stepClock is a deterministic Clock whose After advances the reported time
// by the requested duration and fires immediately, so poll loops run without
// real sleeping. It records every requested wait.
type stepClock struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Unix(1700000000, 0)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.waits = append(c.waits, d)
	now := c.now
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

func (c *stepClock) waited() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.waits...)
}

// gateClock signals on waited each time After is called and never fires the
// returned channel, letting tests interleave with a sleeping waiter.
type gateClock struct {
	now    time.Time
	waited chan struct{}
}

func newGateClock() *gateClock {
	return &gateClock{now: time.Unix(1700000000, 0), waited: make(chan struct{}, 8)}
}

func (c *gateClock) Now() time.Time { return c.now }

func (c *gateClock) After(time.Duration) <-chan time.Time {
	c.waited <- struct{}{}
	return make(chan time.Time)
}
