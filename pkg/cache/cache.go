// Package cache stores successful profile lookups keyed by normalized
// login. Two backends are provided: an unbounded in-process store (the
// default for one-shot batch runs) and a Redis store with TTL for the
// long-running proxy deployment.
package cache

import (
	"context"
	"errors"
)

// ErrCacheMiss indicates the requested key was not found in cache.
var ErrCacheMiss = errors.New("cache miss")

// Store is a byte-payload cache keyed by normalized login. Only successful
// lookups are stored; failures always go back to the network.
type Store interface {
	// Get returns the cached payload for key, or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the payload for key, overwriting any previous value.
	Set(ctx context.Context, key string, payload []byte) error
}
