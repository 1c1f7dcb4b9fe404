package tidecrawl

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tidecrawl/tidecrawl-go/internal/clock/system"
	"github.com/tidecrawl/tidecrawl-go/internal/metrics"
	"github.com/tidecrawl/tidecrawl-go/internal/ratelimit"
	"github.com/tidecrawl/tidecrawl-go/internal/retry"
)

// Version is the SDK release, reported to the service with every job
// submission.
const Version = "0.6.0"

// DefaultAPIURL is the production endpoint used when no URL is configured.
const DefaultAPIURL = "https://api.tidecrawl.dev"

// Environment variables consulted when the matching option is not set.
const (
	EnvAPIKey = "TIDECRAWL_API_KEY"
	EnvAPIURL = "TIDECRAWL_API_URL"
)

type settings struct {
	apiKey      string
	apiURL      string
	httpClient  *http.Client
	timeout     time.Duration
	maxAttempts int
	retryDelay  time.Duration
	rps         float64
	burst       int
	logger      *zap.Logger
	registry    prometheus.Registerer
	clock       Clock
	idempotency bool
}

// Option configures a Client.
type Option func(*settings)

// WithAPIKey sets the API key, overriding TIDECRAWL_API_KEY.
func WithAPIKey(key string) Option {
	return func(s *settings) { s.apiKey = key }
}

// WithAPIURL points the client at a different API endpoint, overriding
// TIDECRAWL_API_URL. The stream endpoint is derived from the same URL.
func WithAPIURL(url string) Option {
	return func(s *settings) { s.apiURL = url }
}

// WithHTTPClient supplies the underlying *http.Client, for custom proxies
// or transports. Stream dials share its transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) { s.httpClient = hc }
}

// WithRequestTimeout bounds each HTTP request. Zero, the default, leaves
// requests bounded only by their context.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

// WithRetry tunes the retry of transient gateway failures: total attempts
// per request and the base backoff delay, doubled after each failure.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(s *settings) {
		s.maxAttempts = maxAttempts
		s.retryDelay = baseDelay
	}
}

// WithRateLimit caps outgoing requests at rps with the given burst. The
// default is uncapped.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *settings) {
		s.rps = rps
		s.burst = burst
	}
}

// WithLogger attaches a structured logger. The default discards logs.
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithMetrics registers the client's collectors with reg: request counts
// and latencies, retry totals, watcher event totals, and active watchers.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *settings) { s.registry = reg }
}

// WithClock substitutes the time source used by waits (useful for testing).
func WithClock(clock Clock) Option {
	return func(s *settings) { s.clock = clock }
}

// WithIdempotencyKeys attaches a generated x-idempotency-key header to every
// job submission, so a retried submission cannot start a duplicate job.
func WithIdempotencyKeys() Option {
	return func(s *settings) { s.idempotency = true }
}

// Client talks to the Tidecrawl API. It is safe for concurrent use; all
// methods that touch the network take a context and block only within it.
//
// Jobs started through the client are observed in one of two ways: a
// blocking Wait that polls status, or a live stream consumed either through
// a callback Watcher or a pull-based SnapshotStream.
type Client struct {
	transport *transport
	waiter    *waiter
	collector *metrics.Collector
	logger    *zap.Logger
	clock     Clock
}

// New builds a Client. The API key comes from WithAPIKey or
// TIDECRAWL_API_KEY; without one, New returns ErrNoAPIKey.
func New(opts ...Option) (*Client, error) {
	cfg := settings{
		apiKey: os.Getenv(EnvAPIKey),
		apiURL: os.Getenv(EnvAPIURL),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.apiURL == "" {
		cfg.apiURL = DefaultAPIURL
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	if cfg.clock == nil {
		cfg.clock = system.New()
	}

	var collector *metrics.Collector
	if cfg.registry != nil {
		var err error
		collector, err = metrics.NewCollector(cfg.registry)
		if err != nil {
			return nil, fmt.Errorf("tidecrawl: %w", err)
		}
	}
	var gate *ratelimit.Gate
	if cfg.rps > 0 {
		gate = ratelimit.New(cfg.rps, cfg.burst)
	}

	t := newTransport(transportOptions{
		apiURL:      cfg.apiURL,
		apiKey:      cfg.apiKey,
		httpClient:  cfg.httpClient,
		timeout:     cfg.timeout,
		policy:      retry.NewPolicy(cfg.maxAttempts, cfg.retryDelay),
		gate:        gate,
		collector:   collector,
		logger:      cfg.logger,
		idempotency: cfg.idempotency,
	})
	return &Client{
		transport: t,
		waiter:    newWaiter(t, cfg.clock, cfg.logger),
		collector: collector,
		logger:    cfg.logger,
		clock:     cfg.clock,
	}, nil
}

// StartJob submits a job of the given kind. Most callers use the typed
// wrappers StartCrawl and StartBatchScrape instead.
func (c *Client) StartJob(ctx context.Context, kind JobKind, req any) (*JobRef, error) {
	ref, err := c.transport.submitJob(ctx, kind, req)
	if err != nil {
		return nil, err
	}
	c.logger.Info("job started",
		zap.String("kind", string(kind)),
		zap.String("job_id", ref.ID),
	)
	return ref, nil
}

// JobStatus fetches the job's current snapshot. For completed jobs whose
// document set spans multiple pages, the pages are fetched and folded into
// the returned snapshot.
func (c *Client) JobStatus(ctx context.Context, kind JobKind, id string) (*JobSnapshot, error) {
	return c.transport.jobStatus(ctx, kind, id, true)
}

// CancelJob asks the service to stop a running job. It returns nil only
// when the service confirms the cancellation.
func (c *Client) CancelJob(ctx context.Context, kind JobKind, id string) error {
	if err := c.transport.cancelJob(ctx, kind, id); err != nil {
		return err
	}
	c.logger.Info("job cancelled",
		zap.String("kind", string(kind)),
		zap.String("job_id", id),
	)
	return nil
}

// WaitJob polls the job until it reaches a terminal status and returns the
// final snapshot. The caller distinguishes completed from failed or
// cancelled runs through the snapshot's Status.
func (c *Client) WaitJob(ctx context.Context, kind JobKind, id string, opts WaitOptions) (*JobSnapshot, error) {
	return c.waiter.wait(ctx, kind, id, opts)
}

// WatchJob returns a callback-driven watcher for the job's live stream.
// Register callbacks, then call Start.
func (c *Client) WatchJob(kind JobKind, id string, opts WatchOptions) *Watcher {
	return newWatcher(c.transport, kind, id, opts, c.collector, c.logger)
}

// StreamJob returns a pull-based stream of the job's snapshots. The
// connection is dialed on the first Recv.
func (c *Client) StreamJob(kind JobKind, id string) *SnapshotStream {
	return newSnapshotStream(c.transport, kind, id, c.collector, c.logger)
}
