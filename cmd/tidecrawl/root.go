package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	tidecrawl "github.com/tidecrawl/tidecrawl-go"
	"github.com/tidecrawl/tidecrawl-go/internal/logging"
)

// Persistent flag names, doubling as viper keys. The env replacer maps them
// to TIDECRAWL_API_KEY and friends.
const (
	flagAPIKey  = "api-key"
	flagAPIURL  = "api-url"
	flagVerbose = "verbose"
)

// servicesKeyType is the key for storing the shared services in the context.
type servicesKeyType string

const servicesKey servicesKeyType = "services"

// services bundles what every subcommand needs.
type services struct {
	client *tidecrawl.Client
	logger *zap.Logger
}

// newServices is the service factory. It's a variable so tests can replace
// it with a stub factory.
var newServices = func() (*services, error) {
	logger, err := logging.New(viper.GetBool(flagVerbose))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	opts := []tidecrawl.Option{tidecrawl.WithLogger(logger)}
	if key := viper.GetString(flagAPIKey); key != "" {
		opts = append(opts, tidecrawl.WithAPIKey(key))
	}
	if url := viper.GetString(flagAPIURL); url != "" {
		opts = append(opts, tidecrawl.WithAPIURL(url))
	}
	client, err := tidecrawl.New(opts...)
	if err != nil {
		return nil, err
	}
	return &services{client: client, logger: logger}, nil
}

// newRootCmd creates and configures the root command. The client is built
// once in PersistentPreRunE and handed to subcommands through the context.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tidecrawl",
		Short: "Command line client for the Tidecrawl scraping service.",
		Long: `tidecrawl submits scrape, crawl, and map requests to the Tidecrawl API
and observes running jobs, either by polling until completion or by
following the live event stream.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newServices()
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), servicesKey, svc))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if svc, ok := cmd.Context().Value(servicesKey).(*services); ok && svc != nil {
				_ = svc.logger.Sync() //nolint:errcheck // best-effort flush
			}
		},
	}

	flags := cmd.PersistentFlags()
	flags.String(flagAPIKey, "", "API key (defaults to TIDECRAWL_API_KEY)")
	flags.String(flagAPIURL, "", "API base URL (defaults to TIDECRAWL_API_URL)")
	flags.BoolP(flagVerbose, "v", false, "enable debug logging")
	for _, name := range []string{flagAPIKey, flagAPIURL, flagVerbose} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}

	cmd.AddCommand(
		newScrapeCmd(),
		newCrawlCmd(),
		newMapCmd(),
		newStatusCmd(),
		newCancelCmd(),
		newWatchCmd(),
	)
	return cmd
}

func resolveServices(ctx context.Context) (*services, error) {
	svc, ok := ctx.Value(servicesKey).(*services)
	if !ok || svc == nil {
		return nil, errors.New("client not initialized")
	}
	return svc, nil
}

// jobKindFlag parses the --kind flag shared by the job commands.
func jobKindFlag(v string) (tidecrawl.JobKind, error) {
	switch v {
	case "crawl":
		return tidecrawl.KindCrawl, nil
	case "batch-scrape", "batch":
		return tidecrawl.KindBatchScrape, nil
	default:
		return "", fmt.Errorf("unknown job kind %q (want crawl or batch-scrape)", v)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
