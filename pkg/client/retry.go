package client

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghlookup_retries_total",
		Help: "Total number of retry attempts by error kind",
	}, []string{"kind"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ghlookup_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error kind",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"kind"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghlookup_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error kind",
	}, []string{"kind"})
)

// FetchWithRetry looks up a profile with up to MaxRetries attempts.
// Terminal failures (not found, API error) return immediately. Throttled
// requests wait the server-directed delay; network errors back off
// exponentially. Returns the first success or the last observed failure,
// never an error, so one identifier cannot abort a batch.
func (c *Client) FetchWithRetry(ctx context.Context, login string) Result {
	maxAttempts := c.config.MaxRetries

	var last Result
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result := c.FetchOne(ctx, login)
		if result.OK() {
			if attempt > 1 {
				c.logger.Info().
					Str("login", login).
					Int("attempt", attempt).
					Msg("Lookup succeeded after retry")
			}
			return result
		}

		last = result
		if !result.Err.Retryable() || attempt >= maxAttempts {
			break
		}

		wait := c.backoffFor(result.Err, attempt)
		retriesTotal.WithLabelValues(string(result.Err.Kind)).Inc()
		retryBackoffSeconds.WithLabelValues(string(result.Err.Kind)).Observe(wait.Seconds())

		c.logger.Debug().
			Str("login", login).
			Str("kind", string(result.Err.Kind)).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying lookup after backoff")

		select {
		case <-ctx.Done():
			c.logger.Warn().
				Str("login", login).
				Int("attempt", attempt).
				Msg("Context cancelled during retry backoff")
			return last
		case <-time.After(wait):
		}
	}

	if last.Err != nil && last.Err.Retryable() {
		retryExhaustedTotal.WithLabelValues(string(last.Err.Kind)).Inc()
		c.logger.Warn().
			Str("login", login).
			Str("kind", string(last.Err.Kind)).
			Int("max_attempts", maxAttempts).
			Msg("Retry attempts exhausted")
	}

	return last
}

// backoffFor computes the wait before the next attempt. Throttled requests
// honor the server-directed delay; network errors wait BackoffBase * 2^n.
func (c *Client) backoffFor(lookupErr *LookupError, attempt int) time.Duration {
	if lookupErr.Kind == KindRateLimited {
		if lookupErr.RetryAfter > 0 {
			return lookupErr.RetryAfter
		}
		return c.config.BaseRetryDelay
	}
	return c.config.BackoffBase * (1 << attempt)
}
