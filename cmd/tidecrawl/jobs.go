package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	tidecrawl "github.com/tidecrawl/tidecrawl-go"
)

// newStatusCmd creates the 'status' subcommand.
func newStatusCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "status JOB_ID",
		Short: "Print a job's current snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := resolveServices(cmd.Context())
			if err != nil {
				return err
			}
			k, err := jobKindFlag(kind)
			if err != nil {
				return err
			}
			snap, err := svc.client.JobStatus(cmd.Context(), k, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), snap)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "crawl", "job kind: crawl or batch-scrape")
	return cmd
}

// newCancelCmd creates the 'cancel' subcommand.
func newCancelCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "cancel JOB_ID",
		Short: "Cancel a running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := resolveServices(cmd.Context())
			if err != nil {
				return err
			}
			k, err := jobKindFlag(kind)
			if err != nil {
				return err
			}
			if err := svc.client.CancelJob(cmd.Context(), k, args[0]); err != nil {
				return err
			}
			svc.logger.Info("job cancelled", zap.String("job_id", args[0]))
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "crawl", "job kind: crawl or batch-scrape")
	return cmd
}

// newWatchCmd creates the 'watch' subcommand. Documents are printed to
// stdout as they arrive, one JSON object per line; progress goes to the
// logger.
func newWatchCmd() *cobra.Command {
	var (
		kind    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch JOB_ID",
		Short: "Follow a job's live event stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := resolveServices(cmd.Context())
			if err != nil {
				return err
			}
			k, err := jobKindFlag(kind)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			watcher := svc.client.WatchJob(k, args[0], tidecrawl.WatchOptions{Timeout: timeout})
			watcher.OnDocument(func(doc tidecrawl.Document) {
				if err := printJSON(out, doc); err != nil {
					svc.logger.Warn("print document failed", zap.Error(err))
				}
			})
			watcher.OnSnapshot(func(snap tidecrawl.JobSnapshot) {
				svc.logger.Info("job progress",
					zap.String("status", string(snap.Status)),
					zap.Int("completed", snap.Completed),
					zap.Int("total", snap.Total),
				)
			})
			watcher.OnError(func(msg string) {
				svc.logger.Warn("stream error", zap.String("error", msg))
			})
			watcher.OnDone(func(status tidecrawl.JobStatus) {
				svc.logger.Info("job finished", zap.String("status", string(status)))
			})

			watcher.Start(cmd.Context())
			<-watcher.Done()
			return watcher.Err()
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "crawl", "job kind: crawl or batch-scrape")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "overall watch budget (0 watches until the job ends)")
	return cmd
}
