package tidecrawl

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Location asks the service to scrape from a particular region.
type Location struct {
	Country   string   `json:"country,omitempty"`
	Languages []string `json:"languages,omitempty"`
}

// Action is one browser step executed before the page is captured. Type
// selects the action ("wait", "screenshot", "click", "write", "press",
// "scroll", "scrape", "executeJavascript", "pdf"); the remaining fields
// apply to the types that use them.
type Action struct {
	Type         string `json:"type"`
	Milliseconds int    `json:"milliseconds,omitempty"`
	Selector     string `json:"selector,omitempty"`
	FullPage     bool   `json:"fullPage,omitempty"`
	Quality      int    `json:"quality,omitempty"`
	All          bool   `json:"all,omitempty"`
	Text         string `json:"text,omitempty"`
	Key          string `json:"key,omitempty"`
	Direction    string `json:"direction,omitempty"`
	Script       string `json:"script,omitempty"`
}

// ScrapeOptions control how individual pages are fetched and rendered, for
// one-shot scrapes as well as the per-page settings of crawl and batch
// scrape jobs. Zero values are omitted so the service applies its own
// defaults; boolean knobs whose service default is true are pointers.
type ScrapeOptions struct {
	// Formats lists the outputs to produce, e.g. "markdown", "html",
	// "rawHtml", "links", "images", "screenshot", "summary", "json",
	// "changeTracking".
	Formats             []string          `json:"formats,omitempty"`
	Headers             map[string]string `json:"headers,omitempty"`
	IncludeTags         []string          `json:"includeTags,omitempty"`
	ExcludeTags         []string          `json:"excludeTags,omitempty"`
	OnlyMainContent     *bool             `json:"onlyMainContent,omitempty"`
	Timeout             int               `json:"timeout,omitempty"`
	WaitFor             int               `json:"waitFor,omitempty"`
	Mobile              bool              `json:"mobile,omitempty"`
	Parsers             []string          `json:"parsers,omitempty"`
	Actions             []Action          `json:"actions,omitempty"`
	Location            *Location         `json:"location,omitempty"`
	SkipTLSVerification *bool             `json:"skipTlsVerification,omitempty"`
	RemoveBase64Images  *bool             `json:"removeBase64Images,omitempty"`
	FastMode            bool              `json:"fastMode,omitempty"`
	BlockAds            *bool             `json:"blockAds,omitempty"`
	// Proxy selects the proxy class: "basic", "stealth", or "auto".
	Proxy string `json:"proxy,omitempty"`
	// MaxAge accepts a cached page not older than this many milliseconds.
	MaxAge       int   `json:"maxAge,omitempty"`
	StoreInCache *bool `json:"storeInCache,omitempty"`
}

// ScrapeRequest fetches a single URL synchronously. The embedded options
// serialize inline alongside the URL.
type ScrapeRequest struct {
	URL string `json:"url"`
	ScrapeOptions
}

// Scrape fetches one page and returns its document. Unlike crawls and batch
// scrapes, the request is synchronous; there is no job to observe.
func (c *Client) Scrape(ctx context.Context, req ScrapeRequest) (*Document, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("scrape: %w: url is required", ErrInvalidRequest)
	}
	var res struct {
		Success bool     `json:"success"`
		Data    Document `json:"data"`
		Warning string   `json:"warning"`
		Error   string   `json:"error"`
	}
	if err := c.transport.postJSON(ctx, "scrape", "/v2/scrape", req, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		if res.Error == "" {
			res.Error = "unknown error"
		}
		return nil, fmt.Errorf("scrape: %s", res.Error)
	}
	if res.Warning != "" {
		c.logger.Warn("scrape returned a warning",
			zap.String("url", req.URL),
			zap.String("warning", res.Warning),
		)
	}
	return &res.Data, nil
}
