package client

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ghlookup/ghlookup/internal/testutil"
)

func newTestClient(t *testing.T, mock *testutil.MockGitHub, modify func(*Config)) *Client {
	t.Helper()

	cfg := DefaultConfig()
	cfg.BaseURL = mock.URL()
	cfg.UserAgent = "ghlookup-test/0.0.0"
	// Keep retry waits negligible in tests.
	cfg.BackoffBase = 1 * time.Millisecond
	cfg.BaseRetryDelay = 5 * time.Millisecond
	if modify != nil {
		modify(&cfg)
	}

	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *Config) {}, false},
		{"missing user agent", func(c *Config) { c.UserAgent = "" }, true},
		{"zero retries", func(c *Config) { c.MaxRetries = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)

			_, err := New(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFetchOne_Success(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetUserResponse("octocat", testutil.NewUserResponse("octocat"))

	c := newTestClient(t, mock, nil)
	result := c.FetchOne(context.Background(), "octocat")

	if !result.OK() {
		t.Fatalf("FetchOne failed: %v", result.Err)
	}
	if result.Identifier != "octocat" {
		t.Errorf("Identifier = %q, want octocat", result.Identifier)
	}
	if result.Profile.Login != "octocat" {
		t.Errorf("Profile.Login = %q, want octocat", result.Profile.Login)
	}
	if result.Profile.Followers != 100 {
		t.Errorf("Profile.Followers = %d, want 100", result.Profile.Followers)
	}
	if len(result.Profile.Raw) == 0 {
		t.Error("Profile.Raw not populated")
	}
}

func TestFetchOne_RequestHeaders(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetUserResponse("octocat", testutil.NewUserResponse("octocat"))

	c := newTestClient(t, mock, nil)
	c.FetchOne(context.Background(), "octocat")

	headers := mock.LastRequestHeader()
	if accept := headers.Get("Accept"); !strings.Contains(accept, "json") {
		t.Errorf("Accept = %q, want JSON media type", accept)
	}
	if ua := headers.Get("User-Agent"); ua != "ghlookup-test/0.0.0" {
		t.Errorf("User-Agent = %q", ua)
	}
	if auth := headers.Get("Authorization"); auth != "" {
		t.Errorf("Authorization = %q, want unset without token", auth)
	}
}

func TestFetchOne_AuthorizationWithToken(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetUserResponse("octocat", testutil.NewUserResponse("octocat"))

	c := newTestClient(t, mock, func(cfg *Config) {
		cfg.Token = "ghp_testtoken"
	})
	c.FetchOne(context.Background(), "octocat")

	if auth := mock.LastRequestHeader().Get("Authorization"); auth != "Bearer ghp_testtoken" {
		t.Errorf("Authorization = %q, want Bearer ghp_testtoken", auth)
	}
}

func TestFetchOne_CachesSuccess(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetUserResponse("octocat", testutil.NewUserResponse("octocat"))

	c := newTestClient(t, mock, nil)
	ctx := context.Background()

	first := c.FetchOne(ctx, "octocat")
	second := c.FetchOne(ctx, "octocat")

	if !first.OK() || !second.OK() {
		t.Fatalf("lookups failed: %v / %v", first.Err, second.Err)
	}
	if got := mock.RequestCountFor("octocat"); got != 1 {
		t.Errorf("Request count = %d, want 1 (second lookup served from cache)", got)
	}
	if !bytes.Equal(first.Profile.Raw, second.Profile.Raw) {
		t.Error("Cached payload not bit-identical to the fetched one")
	}
}

func TestFetchOne_CacheKeyIsCaseInsensitive(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetUserResponse("octocat", testutil.NewUserResponse("octocat"))

	c := newTestClient(t, mock, nil)
	ctx := context.Background()

	first := c.FetchOne(ctx, "OctoCat")
	if !first.OK() {
		t.Fatalf("FetchOne failed: %v", first.Err)
	}
	// Display casing is preserved even though the cache key is lowered.
	if first.Identifier != "OctoCat" {
		t.Errorf("Identifier = %q, want OctoCat", first.Identifier)
	}

	second := c.FetchOne(ctx, "octocat")
	if !second.OK() {
		t.Fatalf("second FetchOne failed: %v", second.Err)
	}
	if got := mock.RequestCountFor("octocat"); got != 1 {
		t.Errorf("Request count = %d, want 1 (differently-cased lookup shares the cache entry)", got)
	}
}

func TestFetchOne_NotFound(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetUserResponse("ghost", testutil.NewNotFoundResponse())

	c := newTestClient(t, mock, nil)
	ctx := context.Background()

	result := c.FetchOne(ctx, "ghost")
	if result.OK() {
		t.Fatal("Expected failure for missing user")
	}
	if result.Err.Kind != KindNotFound {
		t.Errorf("Kind = %s, want %s", result.Err.Kind, KindNotFound)
	}
	if result.Err.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", result.Err.StatusCode)
	}

	// Failures are not cached.
	c.FetchOne(ctx, "ghost")
	if got := mock.RequestCountFor("ghost"); got != 2 {
		t.Errorf("Request count = %d, want 2 (404 must not be cached)", got)
	}
}

func TestFetchOne_RateLimited(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetUserResponse("octocat", testutil.NewRateLimitResponse(30*time.Second))

	c := newTestClient(t, mock, nil)
	result := c.FetchOne(context.Background(), "octocat")

	if result.OK() {
		t.Fatal("Expected rate limited failure")
	}
	if result.Err.Kind != KindRateLimited {
		t.Errorf("Kind = %s, want %s", result.Err.Kind, KindRateLimited)
	}
	// Delay derives from X-RateLimit-Reset (~30s) plus a 1s buffer.
	if result.Err.RetryAfter < 25*time.Second || result.Err.RetryAfter > 35*time.Second {
		t.Errorf("RetryAfter = %v, want ~31s", result.Err.RetryAfter)
	}
}

func TestFetchOne_RateLimitedFallbackDelay(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	// Reset already in the past: the client falls back to BaseRetryDelay.
	mock.SetUserResponse("octocat", testutil.NewRateLimitResponse(-time.Minute))

	c := newTestClient(t, mock, func(cfg *Config) {
		cfg.BaseRetryDelay = 5 * time.Second
	})
	result := c.FetchOne(context.Background(), "octocat")

	if result.OK() || result.Err.Kind != KindRateLimited {
		t.Fatalf("Expected rate limited failure, got %+v", result)
	}
	if result.Err.RetryAfter != 5*time.Second {
		t.Errorf("RetryAfter = %v, want fallback 5s", result.Err.RetryAfter)
	}
}

func TestFetchOne_APIError(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetUserResponse("octocat", testutil.NewServerErrorResponse())

	c := newTestClient(t, mock, nil)
	result := c.FetchOne(context.Background(), "octocat")

	if result.OK() {
		t.Fatal("Expected failure for 500 response")
	}
	if result.Err.Kind != KindAPIError {
		t.Errorf("Kind = %s, want %s", result.Err.Kind, KindAPIError)
	}
}

func TestFetchOne_NetworkError(t *testing.T) {
	mock := testutil.NewMockGitHub()
	mock.Close() // Server down: every request fails at the transport.

	c := newTestClient(t, mock, nil)
	result := c.FetchOne(context.Background(), "octocat")

	if result.OK() {
		t.Fatal("Expected failure against closed server")
	}
	if result.Err.Kind != KindNetworkError {
		t.Errorf("Kind = %s, want %s", result.Err.Kind, KindNetworkError)
	}
}

func TestFetchOne_InvalidJSON(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetUserResponse("octocat", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       "not json{",
	})

	c := newTestClient(t, mock, nil)
	result := c.FetchOne(context.Background(), "octocat")

	if result.OK() {
		t.Fatal("Expected failure for malformed body")
	}
	if result.Err.Kind != KindAPIError {
		t.Errorf("Kind = %s, want %s", result.Err.Kind, KindAPIError)
	}
}

func TestFetchOne_UpdatesRateLimitInfo(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetUserResponse("octocat", testutil.NewUserResponse("octocat"))

	c := newTestClient(t, mock, nil)
	c.FetchOne(context.Background(), "octocat")

	info := c.RateLimit()
	if info.Remaining != 55 {
		t.Errorf("Remaining = %d, want 55 from response headers", info.Remaining)
	}
	if info.Limit != 60 {
		t.Errorf("Limit = %d, want 60", info.Limit)
	}
}
