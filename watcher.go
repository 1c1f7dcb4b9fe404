package tidecrawl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/tidecrawl/tidecrawl-go/internal/metrics"
)

// WatchOptions tune a streaming watch.
type WatchOptions struct {
	// Timeout bounds the whole watch. Zero watches until the job finishes
	// or the stream ends. An exceeded timeout closes the watcher, reports
	// an Error event, and surfaces ErrWaitTimeout from Err.
	Timeout time.Duration
}

// Watcher follows a job's live stream and pushes events to registered
// callbacks from a single background goroutine. Callbacks run synchronously
// on that goroutine in registration order, so a slow callback delays the
// stream rather than dropping events. Register callbacks before calling
// Start; the first frames can arrive immediately after the dial.
//
// The zero Watcher is not usable; obtain one from the Client's Watch
// methods.
type Watcher struct {
	transport *transport
	listeners *listenerSet
	collector *metrics.Collector
	logger    *zap.Logger

	kind    JobKind
	jobID   string
	timeout time.Duration

	mu      sync.Mutex
	state   *protocolState
	err     error
	cancel  context.CancelFunc
	started bool
	stopped bool

	startOnce sync.Once
	stopOnce  sync.Once
	doneCh    chan struct{}
}

func newWatcher(t *transport, kind JobKind, id string, opts WatchOptions, collector *metrics.Collector, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("kind", string(kind)), zap.String("job_id", id))
	return &Watcher{
		transport: t,
		listeners: newListenerSet(logger),
		collector: collector,
		logger:    logger,
		kind:      kind,
		jobID:     id,
		timeout:   opts.Timeout,
		state:     newProtocolState(kind),
		doneCh:    make(chan struct{}),
	}
}

// OnDocument registers a callback for each document produced by the job,
// including documents replayed by the connect-time catchup.
func (w *Watcher) OnDocument(fn func(Document)) { w.listeners.onDocument(fn) }

// OnError registers a callback for error events reported on the stream.
// An error event does not end the watch.
func (w *Watcher) OnError(fn func(string)) { w.listeners.onError(fn) }

// OnDone registers a callback invoked once, with the job's terminal status,
// when the job finishes while being watched.
func (w *Watcher) OnDone(fn func(JobStatus)) { w.listeners.onDone(fn) }

// OnSnapshot registers a callback invoked with the updated cumulative
// snapshot after every status-bearing frame.
func (w *Watcher) OnSnapshot(fn func(JobSnapshot)) { w.listeners.onSnapshot(fn) }

// JobID returns the identifier of the watched job.
func (w *Watcher) JobID() string { return w.jobID }

// Start dials the stream and begins dispatching on a background goroutine.
// It returns immediately and is a no-op when called again. The context
// governs the whole watch; cancelling it closes the stream.
func (w *Watcher) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	w.startOnce.Do(func() {
		w.mu.Lock()
		if w.stopped {
			w.mu.Unlock()
			close(w.doneCh)
			return
		}
		var runCtx context.Context
		if w.timeout > 0 {
			runCtx, w.cancel = context.WithTimeout(ctx, w.timeout)
		} else {
			runCtx, w.cancel = context.WithCancel(ctx)
		}
		w.started = true
		w.mu.Unlock()
		go w.run(runCtx)
	})
}

// Stop closes the stream and waits for the dispatch goroutine to exit; no
// events are dispatched after it returns. Stopping a finished watcher is a
// no-op. Manual stop does not produce a synthetic Done event. The wait for
// the goroutine is bounded by the context's deadline, or by one second when
// the context has none.
func (w *Watcher) Stop(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Second)
		defer cancel()
	}
	var started bool
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		if w.cancel != nil {
			w.cancel()
		}
		w.mu.Unlock()
	})
	w.mu.Lock()
	started = w.started
	w.mu.Unlock()
	if !started {
		return nil
	}
	select {
	case <-w.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("watcher stop wait: %w", ctx.Err())
	}
}

// Done is closed when the dispatch goroutine has exited, whether the job
// finished, the stream failed, or the watch was stopped.
func (w *Watcher) Done() <-chan struct{} { return w.doneCh }

// Err reports why the watch ended, once Done is closed. It is nil after a
// clean finish or a manual stop.
func (w *Watcher) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Snapshot returns the current cumulative state of the watched job. It is
// safe to call from any goroutine, including callbacks.
func (w *Watcher) Snapshot() JobSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.current()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	w.collector.WatcherOpened()
	defer w.collector.WatcherClosed()
	defer func() {
		w.mu.Lock()
		cancel := w.cancel
		w.mu.Unlock()
		cancel()
	}()

	conn, err := w.transport.dialStream(ctx, w.kind, w.jobID)
	if err != nil {
		if !w.isStopped() {
			w.setErr(err)
			w.dispatchError(err.Error())
		}
		return
	}
	defer conn.CloseNow() //nolint:errcheck

	w.logger.Debug("watch started")
	for {
		_, frame, err := conn.Read(ctx)
		if err != nil {
			w.finishRead(ctx, err)
			return
		}
		w.mu.Lock()
		out, applyErr := w.state.apply(frame)
		snap := w.state.current()
		w.mu.Unlock()
		if applyErr != nil {
			w.setErr(applyErr)
			w.dispatchError(applyErr.Error())
			return
		}
		w.observe(out)
		w.listeners.dispatch(out, snap)
		if out.closed {
			w.logger.Debug("watch finished", zap.String("status", string(snap.Status)))
			conn.Close(websocket.StatusNormalClosure, "job finished") //nolint:errcheck
			return
		}
	}
}

// finishRead classifies the error that ended the read loop. Manual stop and
// clean remote closes end the watch silently; a deadline produces a timeout
// error; anything else is reported as a stream failure.
func (w *Watcher) finishRead(ctx context.Context, readErr error) {
	if w.isStopped() {
		return
	}
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err := fmt.Errorf("watch %s: job %s: %w", w.kind, w.jobID, ErrWaitTimeout)
			w.setErr(err)
			w.dispatchError(err.Error())
		}
		return
	}
	switch websocket.CloseStatus(readErr) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return
	}
	err := fmt.Errorf("watch %s: read stream: %w", w.kind, readErr)
	w.setErr(err)
	w.dispatchError(err.Error())
}

func (w *Watcher) observe(out frameOutcome) {
	for _, ev := range out.events {
		w.collector.ObserveEvent(string(ev.Kind))
	}
	if out.statusChanged {
		w.collector.ObserveEvent("snapshot")
	}
	if out.done != nil {
		w.collector.ObserveEvent(string(EventDone))
	}
}

func (w *Watcher) dispatchError(msg string) {
	w.collector.ObserveEvent(string(EventError))
	w.listeners.dispatch(frameOutcome{
		events: []Event{{Kind: EventError, Message: msg}},
	}, JobSnapshot{})
}

func (w *Watcher) isStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

func (w *Watcher) setErr(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
	w.logger.Warn("watch ended with error", zap.Error(err))
}
