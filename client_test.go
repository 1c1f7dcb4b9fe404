package tidecrawl

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// TestNewRequiresAPIKey checks construction fails fast without a key from
// either options or the environment.
func TestNewRequiresAPIKey(t *testing.T) {
	t.Setenv(EnvAPIKey, "")

	_, err := New()
	require.ErrorIs(t, err, ErrNoAPIKey)
}

// TestNewReadsEnvironment verifies the key and endpoint fall back to the
// TIDECRAWL_API_KEY and TIDECRAWL_API_URL variables.
func TestNewReadsEnvironment(t *testing.T) {
	calls := newCapture()
	r := chi.NewRouter()
	r.Get("/v2/credit-usage", func(w http.ResponseWriter, req *http.Request) {
		calls.record(req)
		fmt.Fprint(w, `{"success":true,"data":{"remainingCredits":12}}`)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvAPIURL, srv.URL)

	client, err := New()
	require.NoError(t, err)

	usage, err := client.CreditUsage(context.Background())
	require.NoError(t, err)
	require.Equal(t, 12, usage.RemainingCredits)
	require.Equal(t, "Bearer env-key", calls.header(0).Get("Authorization"))
}

// TestOptionsOverrideEnvironment checks explicit options win over the
// environment variables.
func TestOptionsOverrideEnvironment(t *testing.T) {
	calls := newCapture()
	r := chi.NewRouter()
	r.Get("/v2/credit-usage", func(w http.ResponseWriter, req *http.Request) {
		calls.record(req)
		fmt.Fprint(w, `{"success":true,"data":{"remainingCredits":1}}`)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	t.Setenv(EnvAPIKey, "env-key")
	t.Setenv(EnvAPIURL, "https://unreachable.invalid")

	client, err := New(WithAPIKey("option-key"), WithAPIURL(srv.URL))
	require.NoError(t, err)

	_, err = client.CreditUsage(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer option-key", calls.header(0).Get("Authorization"))
}

// TestClientConcurrentCalls verifies independent requests proceed in
// parallel: three calls against a slow endpoint finish well under three
// times the endpoint latency.
func TestClientConcurrentCalls(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Post("/v2/scrape", func(w http.ResponseWriter, req *http.Request) {
		time.Sleep(100 * time.Millisecond)
		fmt.Fprint(w, `{"success":true,"data":{"markdown":"# ok"}}`)
	})
	client := newTestClient(t, r)

	start := time.Now()
	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.Scrape(context.Background(), ScrapeRequest{URL: "https://example.com"})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Less(t, time.Since(start), 250*time.Millisecond)
}

// TestWithMetricsExportsRequestSeries checks the optional collectors register
// against the provided registry and record API traffic.
func TestWithMetricsExportsRequestSeries(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Post("/v2/scrape", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":{"markdown":"# ok"}}`)
	})
	reg := prometheus.NewRegistry()
	client := newTestClient(t, r, WithMetrics(reg))

	_, err := client.Scrape(context.Background(), ScrapeRequest{URL: "https://example.com"})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["tidecrawl_requests_total"])
	require.True(t, names["tidecrawl_request_duration_seconds"])
}

// TestWithMetricsRejectsConflictingRegistry surfaces registration conflicts
// at construction time.
func TestWithMetricsRejectsConflictingRegistry(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := New(WithAPIKey("k"), WithMetrics(reg))
	require.NoError(t, err)

	_, err = New(WithAPIKey("k"), WithMetrics(reg))
	require.Error(t, err)
}

// TestWithRateLimitSpacesRequests checks the client-side gate delays the
// second request when the budget is one request per interval.
func TestWithRateLimitSpacesRequests(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Get("/v2/credit-usage", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":{"remainingCredits":1}}`)
	})
	client := newTestClient(t, r, WithRateLimit(20, 1))

	ctx := context.Background()
	_, err := client.CreditUsage(ctx)
	require.NoError(t, err)

	start := time.Now()
	_, err = client.CreditUsage(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
