package main

import (
	"github.com/spf13/cobra"

	tidecrawl "github.com/tidecrawl/tidecrawl-go"
)

// newScrapeCmd creates the 'scrape' subcommand, a synchronous single-page
// fetch.
func newScrapeCmd() *cobra.Command {
	var (
		formats     []string
		onlyMain    bool
		waitFor     int
		contentOnly bool
	)
	cmd := &cobra.Command{
		Use:   "scrape URL",
		Short: "Scrape a single page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := resolveServices(cmd.Context())
			if err != nil {
				return err
			}
			req := tidecrawl.ScrapeRequest{URL: args[0]}
			req.Formats = formats
			req.WaitFor = waitFor
			if onlyMain {
				req.OnlyMainContent = &onlyMain
			}
			doc, err := svc.client.Scrape(cmd.Context(), req)
			if err != nil {
				return err
			}
			if contentOnly {
				_, err = cmd.OutOrStdout().Write([]byte(doc.Markdown + "\n"))
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		},
	}
	cmd.Flags().StringSliceVar(&formats, "format", []string{"markdown"}, "output formats to request")
	cmd.Flags().BoolVar(&onlyMain, "main-content", false, "strip navigation and boilerplate")
	cmd.Flags().IntVar(&waitFor, "wait-for", 0, "milliseconds to wait before capture")
	cmd.Flags().BoolVar(&contentOnly, "markdown-only", false, "print the markdown body instead of the full document")
	return cmd
}
