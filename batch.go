package tidecrawl

import (
	"context"
	"fmt"
)

// BatchScrapeRequest scrapes a fixed list of URLs as one asynchronous job.
type BatchScrapeRequest struct {
	URLs []string `json:"urls"`
	// Options apply to every page in the batch.
	Options *ScrapeOptions `json:"options,omitempty"`
	// IgnoreInvalidURLs accepts the batch even when some inputs are
	// malformed; the rejects come back in the handle's InvalidURLs.
	IgnoreInvalidURLs bool           `json:"ignoreInvalidURLs,omitempty"`
	MaxConcurrency    int            `json:"maxConcurrency,omitempty"`
	Webhook           *WebhookConfig `json:"webhook,omitempty"`
	ZeroDataRetention bool           `json:"zeroDataRetention,omitempty"`
}

// StartBatchScrape submits a batch scrape job and returns its handle
// without waiting.
func (c *Client) StartBatchScrape(ctx context.Context, req BatchScrapeRequest) (*JobRef, error) {
	if len(req.URLs) == 0 {
		return nil, fmt.Errorf("start batch-scrape: %w: urls are required", ErrInvalidRequest)
	}
	return c.StartJob(ctx, KindBatchScrape, req)
}

// BatchScrapeStatus fetches the batch's current snapshot, following
// pagination on completed jobs.
func (c *Client) BatchScrapeStatus(ctx context.Context, id string) (*JobSnapshot, error) {
	return c.JobStatus(ctx, KindBatchScrape, id)
}

// CancelBatchScrape stops a running batch scrape.
func (c *Client) CancelBatchScrape(ctx context.Context, id string) error {
	return c.CancelJob(ctx, KindBatchScrape, id)
}

// WaitBatchScrape polls an already-started batch scrape until it finishes.
func (c *Client) WaitBatchScrape(ctx context.Context, id string, opts WaitOptions) (*JobSnapshot, error) {
	return c.WaitJob(ctx, KindBatchScrape, id, opts)
}

// BatchScrape submits the job and blocks until it reaches a terminal
// status, returning the final snapshot with all documents.
func (c *Client) BatchScrape(ctx context.Context, req BatchScrapeRequest, opts WaitOptions) (*JobSnapshot, error) {
	ref, err := c.StartBatchScrape(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.WaitBatchScrape(ctx, ref.ID, opts)
}

// WatchBatchScrape returns a callback-driven watcher on the batch's live
// stream. A batch scrape cancelled by the service surfaces through snapshot
// updates rather than a Done event.
func (c *Client) WatchBatchScrape(id string, opts WatchOptions) *Watcher {
	return c.WatchJob(KindBatchScrape, id, opts)
}

// BatchScrapeStream returns a pull-based snapshot stream for the batch.
func (c *Client) BatchScrapeStream(id string) *SnapshotStream {
	return c.StreamJob(KindBatchScrape, id)
}
