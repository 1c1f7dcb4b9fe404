package tidecrawl

import "time"

// JobKind selects which asynchronous job family an identifier belongs to.
// The kind determines the status and stream endpoints and the terminal-state
// vocabulary (batch scrape jobs additionally report "cancelled" over the
// stream).
type JobKind string

// Supported job kinds.
const (
	KindCrawl       JobKind = "crawl"
	KindBatchScrape JobKind = "batch-scrape"
)

// basePath returns the API path prefix for the kind.
func (k JobKind) basePath() string {
	if k == KindBatchScrape {
		return "/v2/batch/scrape"
	}
	return "/v2/crawl"
}

// JobStatus represents the lifecycle state of a remote job.
type JobStatus string

// Job status values reported by the service. Scraping, active, and
// processing are in-progress states; completed, failed, and cancelled are
// terminal. A job never leaves a terminal state.
const (
	StatusScraping   JobStatus = "scraping"
	StatusActive     JobStatus = "active"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusCancelled  JobStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// JobRef identifies a job accepted by the service.
type JobRef struct {
	// Kind selects the endpoint family the job belongs to.
	Kind JobKind `json:"kind"`
	// ID is the opaque job identifier, stable for the job's lifetime.
	ID string `json:"id"`
	// URL is the API location for polling the job.
	URL string `json:"url"`
	// InvalidURLs lists batch-scrape inputs the service rejected up front.
	InvalidURLs []string `json:"invalidURLs,omitempty"`
}

// JobSnapshot is the cumulative state of a job at one point in time: its
// status, progress counters, and every document produced so far. Snapshots
// supersede one another; they are never mutated after creation.
type JobSnapshot struct {
	Status      JobStatus  `json:"status"`
	Completed   int        `json:"completed"`
	Total       int        `json:"total"`
	CreditsUsed int        `json:"creditsUsed,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	// Next holds the pagination cursor for the remaining documents, when the
	// service splits a large result set across status responses.
	Next  string     `json:"next,omitempty"`
	Data  []Document `json:"data,omitempty"`
	Error string     `json:"error,omitempty"`
}

// clone returns a copy of the snapshot whose document slice is detached from
// the receiver, so watcher state can keep growing after handing it out.
func (s JobSnapshot) clone() JobSnapshot {
	out := s
	if len(s.Data) > 0 {
		out.Data = append([]Document(nil), s.Data...)
	}
	return out
}

// EventKind tags the variants of a watcher Event.
type EventKind string

// Event kinds dispatched by a Watcher.
const (
	EventDocument EventKind = "document"
	EventError    EventKind = "error"
	EventDone     EventKind = "done"
)

// Event is a discrete occurrence observed on a job stream. Exactly one
// payload field is populated, selected by Kind: Document for EventDocument,
// Message for EventError, Status for EventDone. Events are point-in-time
// notifications; cumulative state lives in JobSnapshot.
type Event struct {
	Kind     EventKind
	Document *Document
	Message  string
	Status   JobStatus
}
