package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	tidecrawl "github.com/tidecrawl/tidecrawl-go"
)

// newCrawlCmd creates the 'crawl' subcommand. By default it submits the job
// and prints the handle; with --wait it blocks until the crawl finishes and
// prints the final snapshot.
func newCrawlCmd() *cobra.Command {
	var (
		limit    int
		depth    int
		subdoms  bool
		external bool
		wait     bool
		poll     time.Duration
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "crawl URL",
		Short: "Start a crawl job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := resolveServices(cmd.Context())
			if err != nil {
				return err
			}
			req := tidecrawl.CrawlRequest{
				URL:                args[0],
				Limit:              limit,
				MaxDiscoveryDepth:  depth,
				AllowSubdomains:    subdoms,
				AllowExternalLinks: external,
			}
			if !wait {
				ref, err := svc.client.StartCrawl(cmd.Context(), req)
				if err != nil {
					return err
				}
				svc.logger.Info("crawl started", zap.String("job_id", ref.ID))
				return printJSON(cmd.OutOrStdout(), ref)
			}
			snap, err := svc.client.Crawl(cmd.Context(), req, tidecrawl.WaitOptions{
				PollInterval: poll,
				Timeout:      timeout,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), snap)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of pages to crawl")
	cmd.Flags().IntVar(&depth, "depth", 0, "maximum link discovery depth")
	cmd.Flags().BoolVar(&subdoms, "subdomains", false, "follow links into subdomains")
	cmd.Flags().BoolVar(&external, "external", false, "follow links to external sites")
	cmd.Flags().BoolVar(&wait, "wait", false, "block until the crawl finishes")
	cmd.Flags().DurationVar(&poll, "poll", 2*time.Second, "status poll interval with --wait")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "overall wait budget with --wait (0 waits forever)")
	return cmd
}

// newMapCmd creates the 'map' subcommand, which lists a site's URLs without
// scraping them.
func newMapCmd() *cobra.Command {
	var (
		search string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "map URL",
		Short: "List the URLs of a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := resolveServices(cmd.Context())
			if err != nil {
				return err
			}
			data, err := svc.client.Map(cmd.Context(), tidecrawl.MapRequest{
				URL:    args[0],
				Search: search,
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "rank links by relevance to this query")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of links")
	return cmd
}
