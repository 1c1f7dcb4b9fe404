package tidecrawl

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDispatchOrderWithinFrame verifies one frame's outcome is delivered in
// the fixed order: typed events, then snapshot listeners, then Done.
func TestDispatchOrderWithinFrame(t *testing.T) {
	t.Parallel()

	set := newListenerSet(nil)
	log := &callLog{}
	set.onDocument(func(d Document) { log.add("doc:%s", d.Markdown) })
	set.onError(func(msg string) { log.add("error:%s", msg) })
	set.onSnapshot(func(s JobSnapshot) { log.add("snapshot:%s", s.Status) })
	set.onDone(func(s JobStatus) { log.add("done:%s", s) })

	doc := Document{Markdown: "# one"}
	set.dispatch(frameOutcome{
		events: []Event{
			{Kind: EventDocument, Document: &doc},
			{Kind: EventError, Message: "boom"},
		},
		statusChanged: true,
		done:          &Event{Kind: EventDone, Status: StatusCompleted},
	}, JobSnapshot{Status: StatusCompleted})

	require.Equal(t, []string{
		"doc:# one",
		"error:boom",
		"snapshot:completed",
		"done:completed",
	}, log.list())
}

// TestDispatchRegistrationOrder checks callbacks of one kind fire in the
// order they were registered.
func TestDispatchRegistrationOrder(t *testing.T) {
	t.Parallel()

	set := newListenerSet(nil)
	log := &callLog{}
	set.onDocument(func(Document) { log.add("first") })
	set.onDocument(func(Document) { log.add("second") })

	doc := Document{}
	set.dispatch(frameOutcome{
		events: []Event{{Kind: EventDocument, Document: &doc}},
	}, JobSnapshot{})

	require.Equal(t, []string{"first", "second"}, log.list())
}

// TestDispatchContainsPanics ensures a panicking callback does not stop the
// remaining callbacks from running.
func TestDispatchContainsPanics(t *testing.T) {
	t.Parallel()

	set := newListenerSet(nil)
	log := &callLog{}
	set.onDocument(func(Document) { panic("broken subscriber") })
	set.onDocument(func(Document) { log.add("survivor") })
	set.onDone(func(s JobStatus) { log.add("done:%s", s) })

	doc := Document{}
	set.dispatch(frameOutcome{
		events: []Event{{Kind: EventDocument, Document: &doc}},
		done:   &Event{Kind: EventDone, Status: StatusCompleted},
	}, JobSnapshot{})

	require.Equal(t, []string{"survivor", "done:completed"}, log.list())
}

// TestDispatchSkipsSnapshotWhenStatusUnchanged verifies snapshot listeners
// stay quiet for frames that only carry documents.
func TestDispatchSkipsSnapshotWhenStatusUnchanged(t *testing.T) {
	t.Parallel()

	set := newListenerSet(nil)
	log := &callLog{}
	set.onSnapshot(func(JobSnapshot) { log.add("snapshot") })

	doc := Document{}
	set.dispatch(frameOutcome{
		events:          []Event{{Kind: EventDocument, Document: &doc}},
		snapshotChanged: true,
	}, JobSnapshot{})

	require.Empty(t, log.list())
}

type callLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}
