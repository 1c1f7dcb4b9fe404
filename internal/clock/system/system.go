// Package system adapts the runtime clock to the Clock interface consumed
// by the polling and streaming helpers.
package system

import "time"

// Clock reads the runtime clock. The zero value is ready to use.
type Clock struct{}

// New returns a Clock backed by time.Now and time.After.
func New() *Clock { return &Clock{} }

// Now returns the current UTC time.
func (Clock) Now() time.Time { return time.Now().UTC() }

// After mirrors time.After.
func (Clock) After(d time.Duration) <-chan time.Time { return time.After(d) }
