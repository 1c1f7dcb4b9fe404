package tidecrawl

import (
	"context"
	"fmt"
)

// SearchRequest queries the web, news, and image indexes.
type SearchRequest struct {
	Query string `json:"query"`
	// Sources selects the indexes to search: "web", "news", "images".
	// Empty searches the web index.
	Sources    []string `json:"sources,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Limit      int      `json:"limit,omitempty"`
	// TBS is the time-based search filter, e.g. "qdr:d" for the past day.
	TBS               string `json:"tbs,omitempty"`
	Location          string `json:"location,omitempty"`
	IgnoreInvalidURLs bool   `json:"ignoreInvalidURLs,omitempty"`
	Timeout           int    `json:"timeout,omitempty"`
	// ScrapeOptions, when set, scrapes each hit and fills the content
	// fields of the results.
	ScrapeOptions *ScrapeOptions `json:"scrapeOptions,omitempty"`
}

// SearchResult is one hit from a search. The content fields are populated
// only when the search requested scraping.
type SearchResult struct {
	URL         string `json:"url,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Snippet     string `json:"snippet,omitempty"`
	Date        string `json:"date,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	ImageWidth  int    `json:"imageWidth,omitempty"`
	ImageHeight int    `json:"imageHeight,omitempty"`
	Position    int    `json:"position,omitempty"`
	Category    string `json:"category,omitempty"`

	Markdown string            `json:"markdown,omitempty"`
	HTML     string            `json:"html,omitempty"`
	Links    []string          `json:"links,omitempty"`
	Metadata *DocumentMetadata `json:"metadata,omitempty"`
}

// SearchData groups search hits by source index.
type SearchData struct {
	Web    []SearchResult `json:"web,omitempty"`
	News   []SearchResult `json:"news,omitempty"`
	Images []SearchResult `json:"images,omitempty"`
}

// Search runs a query and returns the grouped results.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchData, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("search: %w: query is required", ErrInvalidRequest)
	}
	var res struct {
		Success bool       `json:"success"`
		Data    SearchData `json:"data"`
		Error   string     `json:"error"`
	}
	if err := c.transport.postJSON(ctx, "search", "/v2/search", req, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		if res.Error == "" {
			res.Error = "unknown error"
		}
		return nil, fmt.Errorf("search: %s", res.Error)
	}
	return &res.Data, nil
}
