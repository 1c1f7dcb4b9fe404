package tidecrawl

import (
	"context"
	"fmt"
)

// WebhookConfig registers a webhook for job lifecycle notifications.
type WebhookConfig struct {
	URL      string            `json:"url"`
	Headers  map[string]string `json:"headers,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
	// Events filters which notifications fire: "started", "page",
	// "completed", "failed". Empty subscribes to all of them.
	Events []string `json:"events,omitempty"`
}

// CrawlRequest describes a site crawl: the seed URL, traversal limits, and
// the per-page scrape settings.
type CrawlRequest struct {
	URL string `json:"url"`
	// Prompt lets the service derive crawl parameters from a natural
	// language description instead of the explicit knobs below.
	Prompt            string   `json:"prompt,omitempty"`
	IncludePaths      []string `json:"includePaths,omitempty"`
	ExcludePaths      []string `json:"excludePaths,omitempty"`
	MaxDiscoveryDepth int      `json:"maxDiscoveryDepth,omitempty"`
	// Sitemap selects sitemap handling during discovery: "include" (the
	// service default) or "skip".
	Sitemap               string `json:"sitemap,omitempty"`
	IgnoreQueryParameters bool   `json:"ignoreQueryParameters,omitempty"`
	Limit                 int    `json:"limit,omitempty"`
	CrawlEntireDomain     bool   `json:"crawlEntireDomain,omitempty"`
	AllowExternalLinks    bool   `json:"allowExternalLinks,omitempty"`
	AllowSubdomains       bool   `json:"allowSubdomains,omitempty"`
	// Delay is the per-page delay in seconds the crawler should keep.
	Delay             int            `json:"delay,omitempty"`
	MaxConcurrency    int            `json:"maxConcurrency,omitempty"`
	Webhook           *WebhookConfig `json:"webhook,omitempty"`
	ScrapeOptions     *ScrapeOptions `json:"scrapeOptions,omitempty"`
	ZeroDataRetention bool           `json:"zeroDataRetention,omitempty"`
}

// StartCrawl submits a crawl job and returns its handle without waiting.
func (c *Client) StartCrawl(ctx context.Context, req CrawlRequest) (*JobRef, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("start crawl: %w: url is required", ErrInvalidRequest)
	}
	return c.StartJob(ctx, KindCrawl, req)
}

// CrawlStatus fetches the crawl's current snapshot, following pagination on
// completed jobs.
func (c *Client) CrawlStatus(ctx context.Context, id string) (*JobSnapshot, error) {
	return c.JobStatus(ctx, KindCrawl, id)
}

// CancelCrawl stops a running crawl.
func (c *Client) CancelCrawl(ctx context.Context, id string) error {
	return c.CancelJob(ctx, KindCrawl, id)
}

// WaitCrawl polls an already-started crawl until it finishes.
func (c *Client) WaitCrawl(ctx context.Context, id string, opts WaitOptions) (*JobSnapshot, error) {
	return c.WaitJob(ctx, KindCrawl, id, opts)
}

// Crawl submits the job and blocks until it reaches a terminal status,
// returning the final snapshot with all documents. Inspect Status to tell
// completed runs from failed or cancelled ones.
func (c *Client) Crawl(ctx context.Context, req CrawlRequest, opts WaitOptions) (*JobSnapshot, error) {
	ref, err := c.StartCrawl(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.WaitCrawl(ctx, ref.ID, opts)
}

// WatchCrawl returns a callback-driven watcher on the crawl's live stream.
func (c *Client) WatchCrawl(id string, opts WatchOptions) *Watcher {
	return c.WatchJob(KindCrawl, id, opts)
}

// CrawlStream returns a pull-based snapshot stream for the crawl.
func (c *Client) CrawlStream(id string) *SnapshotStream {
	return c.StreamJob(KindCrawl, id)
}
