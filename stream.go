package tidecrawl

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/tidecrawl/tidecrawl-go/internal/metrics"
)

// SnapshotStream exposes a job's live stream as a pull-based sequence of
// snapshots. Each Recv suspends on the network read until the job's state
// advances; no background goroutine is involved, so any number of streams
// can be multiplexed cheaply across goroutines by their callers.
//
// SnapshotStream and the callback Watcher share one protocol core and agree
// on every decoding rule.
type SnapshotStream struct {
	transport *transport
	collector *metrics.Collector
	logger    *zap.Logger
	kind      JobKind
	jobID     string

	state    *protocolState
	finished bool
	err      error

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	opened bool
}

func newSnapshotStream(t *transport, kind JobKind, id string, collector *metrics.Collector, logger *zap.Logger) *SnapshotStream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotStream{
		transport: t,
		collector: collector,
		logger:    logger.With(zap.String("kind", string(kind)), zap.String("job_id", id)),
		kind:      kind,
		jobID:     id,
		state:     newProtocolState(kind),
	}
}

// JobID returns the identifier of the streamed job.
func (s *SnapshotStream) JobID() string { return s.jobID }

// Snapshot returns the cumulative state observed so far.
func (s *SnapshotStream) Snapshot() JobSnapshot { return s.state.current() }

// Recv blocks until the job's state advances and returns the updated
// cumulative snapshot. The stream is dialed on the first call. The final
// call for a job returns its terminal snapshot; the call after that returns
// io.EOF. Frames that do not change the snapshot, such as error events, are
// skipped. Cancelling ctx abandons the pending call and fails the stream.
//
// Recv is not safe for concurrent use. Close may be called from another
// goroutine to unblock a pending Recv.
func (s *SnapshotStream) Recv(ctx context.Context) (*JobSnapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.finished {
		return nil, io.EOF
	}
	conn, err := s.ensureConn(ctx)
	if err != nil {
		if err != io.EOF {
			s.err = err
		}
		return nil, err
	}
	for {
		_, frame, readErr := conn.Read(ctx)
		if readErr != nil {
			return nil, s.readEnded(ctx, readErr)
		}
		out, applyErr := s.state.apply(frame)
		if applyErr != nil {
			s.err = applyErr
			s.release(websocket.StatusUnsupportedData, "undecodable frame")
			return nil, applyErr
		}
		if out.closed {
			s.finished = true
			s.release(websocket.StatusNormalClosure, "job finished")
			s.logger.Debug("stream finished", zap.String("status", string(s.state.snapshot.Status)))
			if out.snapshotChanged {
				s.collector.ObserveEvent("snapshot")
				snap := s.state.current()
				return &snap, nil
			}
			return nil, io.EOF
		}
		if out.snapshotChanged {
			s.collector.ObserveEvent("snapshot")
			snap := s.state.current()
			return &snap, nil
		}
	}
}

// Close tears the connection down without a close handshake, so a Recv
// blocked in another goroutine unblocks promptly and returns io.EOF. Close
// is idempotent.
func (s *SnapshotStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.conn != nil {
		s.conn.CloseNow() //nolint:errcheck
		s.conn = nil
	}
	if s.opened {
		s.opened = false
		s.collector.WatcherClosed()
	}
	return nil
}

func (s *SnapshotStream) ensureConn(ctx context.Context) (*websocket.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, io.EOF
	}
	if s.conn == nil {
		conn, err := s.transport.dialStream(ctx, s.kind, s.jobID)
		if err != nil {
			return nil, err
		}
		s.conn = conn
		s.opened = true
		s.collector.WatcherOpened()
	}
	return s.conn, nil
}

// readEnded classifies the error that ended a read. A local Close or a
// clean remote close surfaces as io.EOF, cancellation as the context error,
// anything else as a stream failure. The connection is released either way.
func (s *SnapshotStream) readEnded(ctx context.Context, readErr error) error {
	s.release(websocket.StatusNormalClosure, "stream closed")
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		s.finished = true
		return io.EOF
	}
	if ctx.Err() != nil {
		err := fmt.Errorf("watch %s: %w", s.kind, ctx.Err())
		s.err = err
		return err
	}
	switch websocket.CloseStatus(readErr) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		s.finished = true
		return io.EOF
	}
	err := fmt.Errorf("watch %s: read stream: %w", s.kind, readErr)
	s.err = err
	s.logger.Warn("stream ended with error", zap.Error(err))
	return err
}

func (s *SnapshotStream) release(code websocket.StatusCode, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releaseLocked(code, reason)
}

func (s *SnapshotStream) releaseLocked(code websocket.StatusCode, reason string) {
	if s.conn != nil {
		s.conn.Close(code, reason) //nolint:errcheck
		s.conn = nil
	}
	if s.opened {
		s.opened = false
		s.collector.WatcherClosed()
	}
}
