package tidecrawl

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// minExtractPollInterval is the floor for extract status polling. Extract
// jobs allow faster polling than crawls.
const minExtractPollInterval = time.Second

// ExtractRequest pulls structured data from one or more pages. Provide a
// JSON schema, a prompt, or both; with a prompt alone the service infers
// the schema.
type ExtractRequest struct {
	URLs               []string       `json:"urls,omitempty"`
	Prompt             string         `json:"prompt,omitempty"`
	Schema             any            `json:"schema,omitempty"`
	SystemPrompt       string         `json:"systemPrompt,omitempty"`
	AllowExternalLinks bool           `json:"allowExternalLinks,omitempty"`
	EnableWebSearch    bool           `json:"enableWebSearch,omitempty"`
	ShowSources        bool           `json:"showSources,omitempty"`
	IgnoreInvalidURLs  bool           `json:"ignoreInvalidURLs,omitempty"`
	ScrapeOptions      *ScrapeOptions `json:"scrapeOptions,omitempty"`
}

// ExtractResult is the state of an extract job. Data holds the extracted
// JSON once the job completes.
type ExtractResult struct {
	ID        string          `json:"id,omitempty"`
	Status    JobStatus       `json:"status,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Sources   map[string]any  `json:"sources,omitempty"`
	Warning   string          `json:"warning,omitempty"`
	Error     string          `json:"error,omitempty"`
	ExpiresAt *time.Time      `json:"expiresAt,omitempty"`
}

type extractEnvelope struct {
	Success bool `json:"success"`
	ExtractResult
}

// StartExtract submits an extract job and returns without waiting. The
// result usually carries only the job ID; fetch progress with
// ExtractStatus.
func (c *Client) StartExtract(ctx context.Context, req ExtractRequest) (*ExtractResult, error) {
	if len(req.URLs) == 0 && req.Prompt == "" {
		return nil, fmt.Errorf("start extract: %w: urls or prompt required", ErrInvalidRequest)
	}
	var res extractEnvelope
	if err := c.transport.postJSON(ctx, "start extract", "/v2/extract", req, &res); err != nil {
		return nil, err
	}
	if !res.Success && res.Error != "" {
		return nil, fmt.Errorf("start extract: %s", res.Error)
	}
	return &res.ExtractResult, nil
}

// ExtractStatus fetches the current state of an extract job.
func (c *Client) ExtractStatus(ctx context.Context, id string) (*ExtractResult, error) {
	var res extractEnvelope
	if err := c.transport.getJSON(ctx, "extract status", "/v2/extract/"+id, nil, &res); err != nil {
		return nil, err
	}
	return &res.ExtractResult, nil
}

// Extract submits the job and polls until it leaves the processing state,
// returning the terminal result. When the service answers inline without a
// job ID, that answer is returned directly.
func (c *Client) Extract(ctx context.Context, req ExtractRequest, opts WaitOptions) (*ExtractResult, error) {
	started, err := c.StartExtract(ctx, req)
	if err != nil {
		return nil, err
	}
	if started.ID == "" {
		return started, nil
	}
	interval := opts.PollInterval
	if interval < minExtractPollInterval {
		interval = minExtractPollInterval
	}
	begin := c.clock.Now()
	for {
		res, err := c.ExtractStatus(ctx, started.ID)
		if err != nil {
			return nil, err
		}
		if res.Status.Terminal() {
			return res, nil
		}
		if opts.Timeout > 0 && c.clock.Now().Sub(begin) >= opts.Timeout {
			return nil, fmt.Errorf("extract wait: job %s still %s after %s: %w",
				started.ID, res.Status, opts.Timeout, ErrWaitTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("extract wait: %w", ctx.Err())
		case <-c.clock.After(interval):
		}
	}
}
