package tidecrawl

import (
	"sync"

	"go.uber.org/zap"
)

// listenerSet fans stream events out to registered callbacks. Dispatch is
// synchronous and follows registration order within each event kind, so a
// slow callback delays the next frame rather than dropping it. A panicking
// callback is recovered and logged, and dispatch continues with the next
// one.
type listenerSet struct {
	mu      sync.Mutex
	logger  *zap.Logger
	docFns  []func(Document)
	errFns  []func(string)
	doneFns []func(JobStatus)
	snapFns []func(JobSnapshot)
}

func newListenerSet(logger *zap.Logger) *listenerSet {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &listenerSet{logger: logger}
}

func (l *listenerSet) onDocument(fn func(Document)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.docFns = append(l.docFns, fn)
}

func (l *listenerSet) onError(fn func(string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errFns = append(l.errFns, fn)
}

func (l *listenerSet) onDone(fn func(JobStatus)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.doneFns = append(l.doneFns, fn)
}

func (l *listenerSet) onSnapshot(fn func(JobSnapshot)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snapFns = append(l.snapFns, fn)
}

// dispatch delivers one frame's outcome: document and error events first, in
// arrival order, then snapshot listeners when the status advanced, then the
// terminal event last.
func (l *listenerSet) dispatch(out frameOutcome, snapshot JobSnapshot) {
	l.mu.Lock()
	docs := append(([]func(Document))(nil), l.docFns...)
	errs := append(([]func(string))(nil), l.errFns...)
	dones := append(([]func(JobStatus))(nil), l.doneFns...)
	snaps := append(([]func(JobSnapshot))(nil), l.snapFns...)
	l.mu.Unlock()

	for _, ev := range out.events {
		switch ev.Kind {
		case EventDocument:
			for _, fn := range docs {
				l.invoke(string(EventDocument), func() { fn(*ev.Document) })
			}
		case EventError:
			for _, fn := range errs {
				l.invoke(string(EventError), func() { fn(ev.Message) })
			}
		}
	}
	if out.statusChanged {
		for _, fn := range snaps {
			l.invoke("snapshot", func() { fn(snapshot) })
		}
	}
	if out.done != nil {
		status := out.done.Status
		for _, fn := range dones {
			l.invoke(string(EventDone), func() { fn(status) })
		}
	}
}

// invoke runs one callback, containing any panic so a broken subscriber
// cannot take down the stream goroutine.
func (l *listenerSet) invoke(event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("event callback panicked",
				zap.String("event", event),
				zap.Any("panic", r),
			)
		}
	}()
	fn()
}
