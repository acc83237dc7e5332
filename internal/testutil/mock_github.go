// Package testutil provides a configurable mock GitHub API server for
// tests.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior of a mock endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockGitHub is a configurable mock of the GitHub users API.
type MockGitHub struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	requestCount      int
	perLoginCount     map[string]int
	lastRequestHeader http.Header
}

// NewMockGitHub creates a new mock server. Unconfigured logins get a 404.
func NewMockGitHub() *MockGitHub {
	mock := &MockGitHub{
		handlers:      make(map[string]func(w http.ResponseWriter, r *http.Request)),
		perLoginCount: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.lastRequestHeader = r.Header.Clone()
		if login, ok := strings.CutPrefix(r.URL.Path, "/users/"); ok {
			mock.perLoginCount[login]++
		}
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockGitHub) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGitHub) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockGitHub) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.perLoginCount = make(map[string]int)
	m.lastRequestHeader = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockGitHub) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetUserResponse configures the response for GET /users/{login}.
func (m *MockGitHub) SetUserResponse(login string, resp MockResponse) {
	m.SetHandler("/users/"+login, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// RequestCount returns the total number of requests served.
func (m *MockGitHub) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// RequestCountFor returns the number of requests for one login.
func (m *MockGitHub) RequestCountFor(login string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.perLoginCount[login]
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockGitHub) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRequestHeader
}

// defaultHandler answers 404 with healthy rate limit headers, like GitHub
// does for unknown users.
func (m *MockGitHub) defaultHandler(w http.ResponseWriter) {
	setRateLimitHeaders(w, 55, 60)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"message":"Not Found"}`))
}

func setRateLimitHeaders(w http.ResponseWriter, remaining, limit int) {
	w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
	w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", time.Now().Add(time.Hour).Unix()))
}

// UserBody renders a minimal profile payload for a login.
func UserBody(login string) string {
	return fmt.Sprintf(`{"login":%q,"id":42,"name":"Test User","public_repos":8,"followers":100,"following":9,"html_url":"https://github.com/%s","created_at":"2011-01-25T18:44:36Z"}`, login, login)
}

// NewUserResponse creates a 200 OK profile response with healthy rate
// limit headers.
func NewUserResponse(login string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       UserBody(login),
		Headers: map[string]string{
			"X-RateLimit-Remaining": "55",
			"X-RateLimit-Limit":     "60",
			"X-RateLimit-Reset":     fmt.Sprintf("%d", time.Now().Add(time.Hour).Unix()),
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates a 404 response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"message":"Not Found"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "54",
			"X-RateLimit-Limit":     "60",
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 403 throttled response whose window
// resets resetIn from now.
func NewRateLimitResponse(resetIn time.Duration) MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"message":"API rate limit exceeded"}`,
		Headers: map[string]string{
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Limit":     "60",
			"X-RateLimit-Reset":     fmt.Sprintf("%d", time.Now().Add(resetIn).Unix()),
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message":"Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// FlakyHandler fails with a dropped connection for the first failures
// requests, then serves the given response.
func FlakyHandler(failures int, resp MockResponse) func(w http.ResponseWriter, r *http.Request) {
	var mu sync.Mutex
	served := 0
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		served++
		fail := served <= failures
		mu.Unlock()

		if fail {
			// Hijack and drop the connection to simulate a network error.
			hj, ok := w.(http.Hijacker)
			if !ok {
				panic("mock server does not support hijacking")
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				panic(err)
			}
			conn.Close()
			return
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		w.Write([]byte(resp.Body))
	}
}
