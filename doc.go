// Package tidecrawl is the official Go client for the Tidecrawl web
// scraping and crawling API.
//
// A Client submits scrape, crawl, batch-scrape, search, and extraction jobs
// over HTTPS and tracks long-running jobs to completion in one of two ways:
//
//   - Polling: Wait* methods fetch job status on an interval until the job
//     reaches a terminal state and return the final JobSnapshot.
//   - Streaming: Watch* methods open a websocket to the job's event stream
//     and replay documents, errors, and status changes to registered
//     callbacks; the *Stream variants expose the same stream as a pull-based
//     iterator driven by Recv.
//
// Construct a client with New, providing the API key directly or via the
// TIDECRAWL_API_KEY environment variable:
//
//	client, err := tidecrawl.New(tidecrawl.WithAPIKey("tc-..."))
//	if err != nil {
//		log.Fatal(err)
//	}
//	job, err := client.Crawl(ctx, tidecrawl.CrawlRequest{URL: "https://example.com", Limit: 10})
package tidecrawl
