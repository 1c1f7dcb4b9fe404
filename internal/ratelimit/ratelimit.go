// Package ratelimit provides a client-side token bucket gating outbound API
// requests.
package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Gate throttles outbound requests. A nil Gate admits everything, so callers
// can hold one unconditionally.
type Gate struct {
	limiter *rate.Limiter
}

// New builds a Gate admitting rps requests per second with the given burst.
// Non-positive rps disables throttling; burst is raised to at least 1.
func New(rps float64, burst int) *Gate {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Gate{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until a token is available or the context ends.
func (g *Gate) Wait(ctx context.Context) error {
	if g == nil || g.limiter == nil {
		return nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}
