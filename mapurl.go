package tidecrawl

import (
	"context"
	"fmt"
)

// MapRequest discovers the URLs of a site without scraping them.
type MapRequest struct {
	URL string `json:"url"`
	// Search filters discovered links by relevance to the query.
	Search string `json:"search,omitempty"`
	// Sitemap selects discovery strategy: "include" (the service default),
	// "skip", or "only".
	Sitemap           string `json:"sitemap,omitempty"`
	IncludeSubdomains bool   `json:"includeSubdomains,omitempty"`
	Limit             int    `json:"limit,omitempty"`
	Timeout           int    `json:"timeout,omitempty"`
}

// LinkResult is one discovered URL with whatever metadata the service knew
// without fetching the page.
type LinkResult struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// MapData holds the outcome of a site map.
type MapData struct {
	Links []LinkResult `json:"links"`
}

// Map lists the URLs of a site.
func (c *Client) Map(ctx context.Context, req MapRequest) (*MapData, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("map: %w: url is required", ErrInvalidRequest)
	}
	var res struct {
		Success bool    `json:"success"`
		Data    MapData `json:"data"`
		Error   string  `json:"error"`
	}
	if err := c.transport.postJSON(ctx, "map", "/v2/map", req, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		if res.Error == "" {
			res.Error = "unknown error"
		}
		return nil, fmt.Errorf("map: %s", res.Error)
	}
	return &res.Data, nil
}
