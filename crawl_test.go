package tidecrawl

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// TestCrawlRunsToCompletion drives the submit-then-wait helper end to end:
// the job is submitted with its nested scrape options, polled past an
// in-progress status, and the final snapshot carries the documents.
func TestCrawlRunsToCompletion(t *testing.T) {
	t.Parallel()

	calls := newCapture()
	var polls atomic.Int32
	r := chi.NewRouter()
	r.Post("/v2/crawl", func(w http.ResponseWriter, req *http.Request) {
		calls.record(req)
		fmt.Fprint(w, `{"success":true,"id":"job-1","url":"https://api.test/v2/crawl/job-1"}`)
	})
	r.Get("/v2/crawl/job-1", func(w http.ResponseWriter, req *http.Request) {
		if polls.Add(1) == 1 {
			fmt.Fprint(w, `{"success":true,"status":"scraping","completed":0,"total":2,"data":[]}`)
			return
		}
		fmt.Fprint(w, `{"success":true,"status":"completed","completed":2,"total":2,`+
			`"data":[{"markdown":"# one"},{"markdown":"# two"}],"creditsUsed":2}`)
	})
	client := newTestClient(t, r, WithClock(newStepClock()))

	snap, err := client.Crawl(context.Background(), CrawlRequest{
		URL:           "https://example.com",
		Limit:         2,
		ScrapeOptions: &ScrapeOptions{Formats: []string{"markdown"}},
		Webhook:       &WebhookConfig{URL: "https://hooks.example.com/crawl"},
	}, WaitOptions{PollInterval: 2 * time.Second})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, snap.Status)
	require.Len(t, snap.Data, 2)
	require.Equal(t, 2, snap.CreditsUsed)

	body := calls.body(0)
	require.Equal(t, "https://example.com", body["url"])
	scrapeOpts := body["scrapeOptions"].(map[string]any)
	require.Equal(t, []any{"markdown"}, scrapeOpts["formats"])
	webhook := body["webhook"].(map[string]any)
	require.Equal(t, "https://hooks.example.com/crawl", webhook["url"])
}

// TestStartCrawlRequiresURL rejects a crawl without a seed URL before any
// request is made.
func TestStartCrawlRequiresURL(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, chi.NewRouter())
	_, err := client.StartCrawl(context.Background(), CrawlRequest{})
	require.ErrorIs(t, err, ErrInvalidRequest)
}
