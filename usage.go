package tidecrawl

import (
	"context"
	"fmt"
)

// CreditUsage reports the remaining credit balance for the API key's team.
type CreditUsage struct {
	RemainingCredits int `json:"remainingCredits"`
}

// ConcurrencyCheck reports how many jobs the team is running right now and
// the cap its plan allows.
type ConcurrencyCheck struct {
	Concurrency    int `json:"concurrency"`
	MaxConcurrency int `json:"maxConcurrency"`
}

// CreditUsage returns the team's remaining credits.
func (c *Client) CreditUsage(ctx context.Context) (*CreditUsage, error) {
	var res struct {
		Success bool        `json:"success"`
		Data    CreditUsage `json:"data"`
		Error   string      `json:"error"`
	}
	if err := c.transport.getJSON(ctx, "credit usage", "/v2/credit-usage", nil, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		if res.Error == "" {
			res.Error = "unknown error"
		}
		return nil, fmt.Errorf("credit usage: %s", res.Error)
	}
	return &res.Data, nil
}

// Concurrency returns the team's current and maximum job concurrency.
func (c *Client) Concurrency(ctx context.Context) (*ConcurrencyCheck, error) {
	var res struct {
		Success bool             `json:"success"`
		Data    ConcurrencyCheck `json:"data"`
		Error   string           `json:"error"`
	}
	if err := c.transport.getJSON(ctx, "concurrency check", "/v2/concurrency-check", nil, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		if res.Error == "" {
			res.Error = "unknown error"
		}
		return nil, fmt.Errorf("concurrency check: %s", res.Error)
	}
	return &res.Data, nil
}
