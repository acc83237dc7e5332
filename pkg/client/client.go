// Package client performs single-profile lookups against the GitHub users
// API with caching, rate limit tracking, typed failure results, and a
// bounded retry wrapper.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ghlookup/ghlookup/pkg/cache"
	"github.com/ghlookup/ghlookup/pkg/identifier"
	"github.com/ghlookup/ghlookup/pkg/ratelimit"
)

// Prometheus metrics for lookup operations.
var (
	lookupRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghlookup_requests_total",
		Help: "Total profile lookups by outcome",
	}, []string{"status"})

	lookupRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ghlookup_request_duration_seconds",
		Help:    "Profile lookup duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	})

	lookupErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghlookup_errors_total",
		Help: "Total failed lookups by error kind",
	}, []string{"kind"})
)

// DefaultBaseURL is the production GitHub API endpoint.
const DefaultBaseURL = "https://api.github.com"

// acceptHeader pins the stable v3 JSON media type.
const acceptHeader = "application/vnd.github.v3+json"

// Config holds the client configuration.
type Config struct {
	// BaseURL of the GitHub API. Overridable for tests and proxies.
	BaseURL string

	// UserAgent identifies this client to the API (required by GitHub).
	UserAgent string

	// Token is an optional bearer token. When set it is sent as an
	// Authorization header and raises the rate budget.
	Token string

	// RequestTimeout bounds each HTTP call, guarding against a hung
	// connection.
	RequestTimeout time.Duration

	// MaxRetries is the total attempt budget per identifier, including
	// the first attempt.
	MaxRetries int

	// BaseRetryDelay is the wait before retrying a throttled request
	// when the response carried no usable reset header.
	BaseRetryDelay time.Duration

	// BackoffBase scales the exponential backoff for network errors:
	// attempt n waits BackoffBase * 2^n.
	BackoffBase time.Duration

	// Store is the profile cache. Defaults to an in-memory store.
	Store cache.Store
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		UserAgent:      "ghlookup/0.1.0",
		RequestTimeout: 10 * time.Second,
		MaxRetries:     3,
		BaseRetryDelay: 5 * time.Second,
		BackoffBase:    1 * time.Second,
	}
}

// Client looks up profiles by login. Safe for concurrent use; lookups
// within a chunk settle concurrently against the same instance.
type Client struct {
	httpClient *http.Client
	store      cache.Store
	tracker    *ratelimit.Tracker
	config     Config
	logger     zerolog.Logger
}

// New creates a new lookup client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("max_retries must be >= 1 (got %d)", cfg.MaxRetries)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.BaseRetryDelay <= 0 {
		cfg.BaseRetryDelay = 5 * time.Second
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 1 * time.Second
	}
	if cfg.Store == nil {
		cfg.Store = cache.NewMemoryStore()
	}

	logger := log.With().Str("component", "lookup-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		store:   cfg.Store,
		tracker: ratelimit.NewTracker(logger),
		config:  cfg,
		logger:  logger,
	}, nil
}

// RateLimit returns the last-observed rate limit snapshot.
func (c *Client) RateLimit() ratelimit.Info {
	return c.tracker.Info()
}

// FetchOne looks up a single profile. Successful lookups are cached by the
// lower-cased login; a cached hit never touches the network. Failures are
// returned as typed Results, never as errors.
func (c *Client) FetchOne(ctx context.Context, login string) Result {
	startTime := time.Now()
	defer func() {
		lookupRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	key := identifier.Normalize(login)

	if payload, err := c.store.Get(ctx, key); err == nil {
		profile, parseErr := parseProfile(payload)
		if parseErr == nil {
			c.logger.Debug().Str("login", login).Msg("Cache hit")
			lookupRequestsTotal.WithLabelValues("cache_hit").Inc()
			return Success(login, profile)
		}
		c.logger.Warn().Err(parseErr).Str("login", login).Msg("Corrupt cache entry, refetching")
	} else if err != cache.ErrCacheMiss {
		c.logger.Warn().Err(err).Str("login", login).Msg("Cache get error")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.config.BaseURL+"/users/"+url.PathEscape(key), nil)
	if err != nil {
		lookupErrorsTotal.WithLabelValues(string(KindAPIError)).Inc()
		return Failure(login, &LookupError{
			Kind:    KindAPIError,
			Message: "build request",
			Err:     err,
		})
	}

	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", c.config.UserAgent)
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	c.logger.Debug().Str("login", login).Msg("Fetching profile")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("login", login).Msg("HTTP request failed")
		lookupErrorsTotal.WithLabelValues(string(KindNetworkError)).Inc()
		lookupRequestsTotal.WithLabelValues("network_error").Inc()
		return Failure(login, &LookupError{
			Kind:    KindNetworkError,
			Message: "request failed",
			Err:     err,
		})
	}
	defer resp.Body.Close()

	// Every response carries rate limit headers, success or failure.
	c.tracker.UpdateFromHeaders(resp.Header)
	lookupRequestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	switch {
	case resp.StatusCode == http.StatusOK:
		return c.handleSuccess(ctx, login, key, resp)

	case resp.StatusCode == http.StatusNotFound:
		c.logger.Debug().Str("login", login).Msg("Profile not found")
		lookupErrorsTotal.WithLabelValues(string(KindNotFound)).Inc()
		return Failure(login, &LookupError{
			Kind:       KindNotFound,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("user %q not found", login),
		})

	case resp.StatusCode == http.StatusForbidden:
		c.tracker.RecordThrottle()
		retryAfter := c.tracker.RetryDelay(c.config.BaseRetryDelay)
		c.logger.Warn().
			Str("login", login).
			Dur("retry_after", retryAfter).
			Msg("Rate limited")
		lookupErrorsTotal.WithLabelValues(string(KindRateLimited)).Inc()
		return Failure(login, &LookupError{
			Kind:       KindRateLimited,
			StatusCode: resp.StatusCode,
			Message:    "rate limit exceeded",
			RetryAfter: retryAfter,
		})

	default:
		c.logger.Warn().
			Str("login", login).
			Int("status", resp.StatusCode).
			Msg("Unexpected API response")
		lookupErrorsTotal.WithLabelValues(string(KindAPIError)).Inc()
		return Failure(login, &LookupError{
			Kind:       KindAPIError,
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
		})
	}
}

// handleSuccess parses and caches a 200 response body.
func (c *Client) handleSuccess(ctx context.Context, login, key string, resp *http.Response) Result {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		lookupErrorsTotal.WithLabelValues(string(KindNetworkError)).Inc()
		return Failure(login, &LookupError{
			Kind:    KindNetworkError,
			Message: "read response body",
			Err:     err,
		})
	}

	profile, err := parseProfile(body)
	if err != nil {
		lookupErrorsTotal.WithLabelValues(string(KindAPIError)).Inc()
		return Failure(login, &LookupError{
			Kind:       KindAPIError,
			StatusCode: resp.StatusCode,
			Message:    "invalid JSON body",
			Err:        err,
		})
	}

	if err := c.store.Set(ctx, key, body); err != nil {
		c.logger.Warn().Err(err).Str("login", login).Msg("Failed to cache profile")
	}

	c.logger.Debug().
		Str("login", login).
		Int("followers", profile.Followers).
		Msg("Profile fetched")

	return Success(login, profile)
}
