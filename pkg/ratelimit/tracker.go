package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ghlookup_rate_limit_remaining",
		Help: "Requests remaining in the current GitHub rate limit window",
	})

	rateLimitHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ghlookup_rate_limit_hits_total",
		Help: "Total number of throttled (HTTP 403) responses observed",
	})
)

// Tracker records the last-observed rate limit state for one client
// instance. Requests within a chunk complete concurrently, so updates are
// guarded by a mutex.
type Tracker struct {
	mu     sync.RWMutex
	info   Info
	logger zerolog.Logger
}

// NewTracker creates a tracker assuming a healthy unauthenticated budget.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{
		info: Info{
			Remaining: DefaultLimit,
			Limit:     DefaultLimit,
		},
		logger: logger,
	}
}

// Info returns the current snapshot.
func (t *Tracker) Info() Info {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.info
}

// UpdateFromHeaders overwrites the tracked state from a response's
// X-RateLimit-* headers. Responses without the headers leave the state
// untouched. Every response, success or failure, is fed through here.
func (t *Tracker) UpdateFromHeaders(headers http.Header) {
	remainStr := headers.Get("X-RateLimit-Remaining")
	if remainStr == "" {
		return
	}

	remaining, err := strconv.Atoi(remainStr)
	if err != nil {
		t.logger.Warn().Str("value", remainStr).Msg("Unparseable X-RateLimit-Remaining header")
		return
	}

	info := Info{
		Remaining: remaining,
		UpdatedAt: time.Now(),
	}

	if limitStr := headers.Get("X-RateLimit-Limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			info.Limit = limit
		}
	}

	if resetStr := headers.Get("X-RateLimit-Reset"); resetStr != "" {
		if resetEpoch, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			info.ResetAt = time.Unix(resetEpoch, 0)
		}
	}

	t.mu.Lock()
	t.info = info
	t.mu.Unlock()

	rateLimitRemaining.Set(float64(remaining))

	event := t.logger.Debug()
	if info.Exhausted() {
		event = t.logger.Warn()
	}
	event.
		Int("remaining", info.Remaining).
		Int("limit", info.Limit).
		Time("reset_at", info.ResetAt).
		Msg("Rate limit state updated")
}

// RecordThrottle notes a throttled response for observability.
func (t *Tracker) RecordThrottle() {
	rateLimitHitsTotal.Inc()
}

// RetryDelay estimates how long to wait before retrying a throttled
// request: the time until the window resets when known, else fallback.
// A small buffer is added so the retry lands after the reset.
func (t *Tracker) RetryDelay(fallback time.Duration) time.Duration {
	t.mu.RLock()
	info := t.info
	t.mu.RUnlock()

	if wait := info.TimeUntilReset(); wait > 0 {
		return wait + time.Second
	}
	return fallback
}
