package tidecrawl

import (
	"encoding/json"
	"fmt"
	"time"
)

// Frame type tags used on the job stream. Frames without a type tag carry a
// bare status snapshot.
const (
	frameDocument = "document"
	frameCatchup  = "catchup"
	frameError    = "error"
	frameDone     = "done"
)

// wireMessage is one frame from a job stream.
type wireMessage struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

// snapshotPatch carries the snapshot-bearing fields of a frame payload.
// Pointer fields distinguish absent values from zero values so a partial
// payload never wipes maintained state.
type snapshotPatch struct {
	Status      JobStatus  `json:"status"`
	Completed   *int       `json:"completed"`
	Total       *int       `json:"total"`
	CreditsUsed *int       `json:"creditsUsed"`
	ExpiresAt   *time.Time `json:"expiresAt"`
	Next        *string    `json:"next"`
	Data        []Document `json:"data"`
	Error       *string    `json:"error"`
}

// frameOutcome describes what one decoded frame requires of a stream driver:
// typed events to dispatch first, whether snapshot listeners fire next,
// whether a pull-based iterator yields, the terminal event to dispatch last,
// and whether the stream is finished.
type frameOutcome struct {
	events          []Event
	statusChanged   bool
	snapshotChanged bool
	done            *Event
	closed          bool
}

// protocolState folds stream frames into a cumulative job snapshot. It is
// the single decoding path shared by the callback Watcher and the pull-based
// SnapshotStream, so both regimes agree on every protocol rule, including
// the cancelled batch-scrape asymmetry. Methods are not safe for concurrent
// use; each driver serializes access.
type protocolState struct {
	kind     JobKind
	snapshot JobSnapshot
	closed   bool
}

func newProtocolState(kind JobKind) *protocolState {
	return &protocolState{
		kind:     kind,
		snapshot: JobSnapshot{Status: StatusScraping},
	}
}

// current returns a detached copy of the maintained snapshot.
func (p *protocolState) current() JobSnapshot {
	return p.snapshot.clone()
}

// apply folds one raw frame into the state. Frames after a terminal status
// are not processed. A frame that is not valid JSON returns an error, which
// drivers treat as the end of the connection.
func (p *protocolState) apply(frame []byte) (frameOutcome, error) {
	if p.closed {
		return frameOutcome{closed: true}, nil
	}
	var msg wireMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return frameOutcome{}, fmt.Errorf("decode stream frame: %w", err)
	}
	switch msg.Type {
	case frameDocument:
		return p.applyDocument(msg.Data)
	case frameCatchup:
		return p.applyCatchup(msg.Data)
	case frameError:
		return frameOutcome{events: []Event{{Kind: EventError, Message: msg.Error}}}, nil
	case frameDone:
		return p.applyDone(msg.Data)
	default:
		return p.applyStatus(msg.Data, frame), nil
	}
}

// applyDocument appends one live document and emits its event. Document
// frames carry no status.
func (p *protocolState) applyDocument(data json.RawMessage) (frameOutcome, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return frameOutcome{}, fmt.Errorf("decode document frame: %w", err)
	}
	p.snapshot.Data = append(p.snapshot.Data, doc)
	event := doc
	return frameOutcome{
		events:          []Event{{Kind: EventDocument, Document: &event}},
		snapshotChanged: true,
	}, nil
}

// applyCatchup replays a connect-time snapshot: one document event per
// embedded document, in list order, then the status update. A catchup never
// produces a Done event, even when its status is terminal; a terminal status
// still closes the stream once dispatch for this frame finishes.
func (p *protocolState) applyCatchup(data json.RawMessage) (frameOutcome, error) {
	var patch snapshotPatch
	if err := json.Unmarshal(data, &patch); err != nil {
		return frameOutcome{}, fmt.Errorf("decode catchup frame: %w", err)
	}
	out := frameOutcome{statusChanged: true, snapshotChanged: true}
	for i := range patch.Data {
		doc := patch.Data[i]
		p.snapshot.Data = append(p.snapshot.Data, doc)
		out.events = append(out.events, Event{Kind: EventDocument, Document: &doc})
	}
	p.applyPatch(patch)
	if p.snapshot.Status.Terminal() {
		p.closed = true
		out.closed = true
	}
	return out, nil
}

// applyDone handles an explicit completion frame. Its payload may carry a
// final snapshot; documents embedded there are absorbed without document
// events. The terminal status defaults to completed.
func (p *protocolState) applyDone(data json.RawMessage) (frameOutcome, error) {
	var patch snapshotPatch
	if len(data) > 0 {
		if err := json.Unmarshal(data, &patch); err != nil {
			return frameOutcome{}, fmt.Errorf("decode done frame: %w", err)
		}
	}
	if !patch.Status.Terminal() {
		patch.Status = StatusCompleted
	}
	p.snapshot.Data = append(p.snapshot.Data, patch.Data...)
	p.applyPatch(patch)
	p.closed = true
	return frameOutcome{
		statusChanged:   true,
		snapshotChanged: true,
		done:            &Event{Kind: EventDone, Status: p.snapshot.Status},
		closed:          true,
	}, nil
}

// applyStatus handles an untyped frame carrying a bare snapshot, either
// under "data" or at the top level. Frames without a status field are
// ignored. A terminal status produces a Done event, except when a batch
// scrape reports cancelled: that outcome is surfaced through the status
// alone.
func (p *protocolState) applyStatus(data json.RawMessage, frame []byte) frameOutcome {
	patch, ok := decodeStatusPatch(data, frame)
	if !ok {
		return frameOutcome{}
	}
	p.snapshot.Data = append(p.snapshot.Data, patch.Data...)
	p.applyPatch(patch)
	out := frameOutcome{statusChanged: true, snapshotChanged: true}
	if p.snapshot.Status.Terminal() {
		p.closed = true
		out.closed = true
		if p.kind != KindBatchScrape || p.snapshot.Status != StatusCancelled {
			out.done = &Event{Kind: EventDone, Status: p.snapshot.Status}
		}
	}
	return out
}

// decodeStatusPatch reads a snapshot payload from the frame's data field,
// falling back to the frame's top level. Only payloads with an explicit
// status count.
func decodeStatusPatch(data json.RawMessage, frame []byte) (snapshotPatch, bool) {
	var patch snapshotPatch
	if len(data) > 0 {
		if err := json.Unmarshal(data, &patch); err == nil && patch.Status != "" {
			return patch, true
		}
	}
	patch = snapshotPatch{}
	if err := json.Unmarshal(frame, &patch); err == nil && patch.Status != "" {
		return patch, true
	}
	return snapshotPatch{}, false
}

// applyPatch folds the scalar snapshot fields into the maintained state.
// Document lists are handled by the frame-specific paths, which differ on
// whether embedded documents produce events.
func (p *protocolState) applyPatch(patch snapshotPatch) {
	if patch.Status != "" {
		p.snapshot.Status = patch.Status
	}
	if patch.Completed != nil {
		p.snapshot.Completed = *patch.Completed
	}
	if patch.Total != nil {
		p.snapshot.Total = *patch.Total
	}
	if patch.CreditsUsed != nil {
		p.snapshot.CreditsUsed = *patch.CreditsUsed
	}
	if patch.ExpiresAt != nil {
		p.snapshot.ExpiresAt = patch.ExpiresAt
	}
	if patch.Next != nil {
		p.snapshot.Next = *patch.Next
	}
	if patch.Error != nil {
		p.snapshot.Error = *patch.Error
	}
}
