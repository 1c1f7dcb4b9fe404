// Package retry computes the backoff schedule applied to transient gateway
// failures on API requests.
package retry

import (
	"math"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
	defaultMaxDelay    = 5 * time.Second
)

// Policy produces exponentially growing delays between request attempts.
type Policy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewPolicy builds a Policy with the given attempt ceiling and base delay.
// Non-positive arguments fall back to the defaults of 3 attempts and 500ms.
func NewPolicy(maxAttempts int, baseDelay time.Duration) *Policy {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}
	return &Policy{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    defaultMaxDelay,
	}
}

// MaxAttempts returns the total attempt ceiling, including the first try.
func (p *Policy) MaxAttempts() int {
	return p.maxAttempts
}

// Delay returns the wait before the retry following the given attempt,
// scaling the base delay by 2^attempt and capping it at the policy maximum.
// Attempts count from zero.
func (p *Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	return time.Duration(delay)
}
