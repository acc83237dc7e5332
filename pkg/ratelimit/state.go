// Package ratelimit tracks the GitHub API rate limit budget from the
// X-RateLimit-Remaining, X-RateLimit-Reset and X-RateLimit-Limit response
// headers. The tracked state is only used to estimate how long to wait
// before retrying a throttled request.
package ratelimit

import (
	"time"
)

// DefaultLimit is GitHub's unauthenticated per-hour request budget,
// assumed until the first response provides real numbers.
const DefaultLimit = 60

// Info is a snapshot of the last-observed rate limit state.
type Info struct {
	// Remaining is the number of requests left in the current window.
	Remaining int

	// Limit is the total budget of the current window.
	Limit int

	// ResetAt is when the window resets, from X-RateLimit-Reset
	// (epoch seconds).
	ResetAt time.Time

	// UpdatedAt is when this snapshot was recorded.
	UpdatedAt time.Time
}

// Exhausted reports whether the budget is spent.
func (i Info) Exhausted() bool {
	return i.Limit > 0 && i.Remaining <= 0
}

// TimeUntilReset returns the duration until the window resets, or 0 if the
// reset time has passed or was never observed.
func (i Info) TimeUntilReset() time.Duration {
	if i.ResetAt.IsZero() {
		return 0
	}
	d := time.Until(i.ResetAt)
	if d < 0 {
		return 0
	}
	return d
}
