package tidecrawl

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

// TestConcurrencyCheck decodes the team's current and maximum concurrency.
func TestConcurrencyCheck(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Get("/v2/concurrency-check", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{"success":true,"data":{"concurrency":2,"maxConcurrency":10}}`)
	})
	client := newTestClient(t, r)

	check, err := client.Concurrency(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, check.Concurrency)
	require.Equal(t, 10, check.MaxConcurrency)
}

// TestCreditUsageServiceFailure surfaces the service's message on a refused
// usage query.
func TestCreditUsageServiceFailure(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Get("/v2/credit-usage", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{"success":false,"error":"team suspended"}`)
	})
	client := newTestClient(t, r)

	_, err := client.CreditUsage(context.Background())
	require.ErrorContains(t, err, "team suspended")
}
