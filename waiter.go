package tidecrawl

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Clock supplies time to the polling waiter (useful for testing).
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// minPollInterval is the floor the service asks pollers to respect. Smaller
// requested intervals are raised to it.
const minPollInterval = 2 * time.Second

// WaitOptions tune a blocking wait on a job.
type WaitOptions struct {
	// PollInterval is the delay between status fetches. Values below the
	// service floor of two seconds are clamped up.
	PollInterval time.Duration
	// Timeout bounds the whole wait. Zero waits indefinitely. An exceeded
	// timeout surfaces as ErrWaitTimeout.
	Timeout time.Duration
}

// waiter polls a job until it reaches a terminal status.
type waiter struct {
	transport *transport
	clock     Clock
	logger    *zap.Logger
}

func newWaiter(t *transport, clock Clock, logger *zap.Logger) *waiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &waiter{transport: t, clock: clock, logger: logger}
}

// wait blocks until the job reaches a terminal status and returns that
// final snapshot, documents fully paginated. The caller inspects
// Status to distinguish completed from failed or cancelled runs. The status
// is checked once immediately, so an already-terminal job returns without
// sleeping.
func (w *waiter) wait(ctx context.Context, kind JobKind, id string, opts WaitOptions) (*JobSnapshot, error) {
	op := string(kind) + " wait"
	interval := opts.PollInterval
	if interval < minPollInterval {
		interval = minPollInterval
	}
	start := w.clock.Now()
	for {
		snap, err := w.transport.jobStatus(ctx, kind, id, true)
		if err != nil {
			return nil, err
		}
		if snap.Status.Terminal() {
			return snap, nil
		}
		if opts.Timeout > 0 && w.clock.Now().Sub(start) >= opts.Timeout {
			return nil, fmt.Errorf("%s: job %s still %s after %s: %w",
				op, id, snap.Status, opts.Timeout, ErrWaitTimeout)
		}
		w.logger.Debug("job in progress",
			zap.String("job_id", id),
			zap.String("status", string(snap.Status)),
			zap.Int("completed", snap.Completed),
			zap.Int("total", snap.Total),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-w.clock.After(interval):
		}
	}
}
