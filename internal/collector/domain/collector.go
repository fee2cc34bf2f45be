package domain

import (
	"context"
	"errors"
	"time"
)

// Collector is one registered source. Collect runs a full collection
// pass and returns the count of newly inserted items; it must leave
// exactly one terminal collection-log row on every exit path.
type Collector interface {
	SourceName() string
	Collect(ctx context.Context) (int, error)
}

// Runner orchestrates the registered collectors.
type Runner interface {
	RunAll(ctx context.Context) int
	RunOne(ctx context.Context, sourceName string) (int, error)
	Sources() []string
}

var ErrUnknownSource = errors.New("unknown collection source")

// ErrMissingAPIKey marks a configuration failure that is fatal to one
// run only and never reaches the orchestrator as an error.
var ErrMissingAPIKey = errors.New("api key is not configured")

// PlaceholderAPIKey is treated the same as an absent key.
const PlaceholderAPIKey = "YOUR_API_KEY_HERE"

// Wait sleeps for the configured delay unless the context is cancelled
// first. A zero or negative delay only checks for cancellation.
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
