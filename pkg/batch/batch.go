// Package batch drives chunked, concurrent profile lookups. Identifiers
// are partitioned into ordered chunks; each chunk fans out through the
// retrying client and settles completely before the next chunk starts,
// with an inter-chunk delay to stay under the unauthenticated rate limit.
// Results and progress snapshots stream to callbacks as they happen.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ghlookup/ghlookup/pkg/client"
)

// Prometheus metrics for batch runs.
var (
	batchRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghlookup_batch_runs_total",
		Help: "Total batch runs by final status",
	}, []string{"status"}) // "completed", "cancelled"

	batchResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ghlookup_batch_results_total",
		Help: "Total batch results by outcome",
	}, []string{"outcome"}) // "success", "failure"

	batchChunkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ghlookup_batch_chunk_duration_seconds",
		Help:    "Time for a whole chunk to settle",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})
)

// ErrAlreadyRunning is returned when Run is invoked while a previous run
// on the same Runner has not completed.
var ErrAlreadyRunning = errors.New("batch already running")

// Fetcher looks up a single identifier, retries included. Implemented by
// *client.Client.
type Fetcher interface {
	FetchWithRetry(ctx context.Context, login string) client.Result
}

// ProgressFunc receives a snapshot before each chunk and once after the
// run finishes. Snapshots are delivered from the orchestrating goroutine.
type ProgressFunc func(Progress)

// ResultFunc receives each result the moment it settles. Calls are
// serialized; results within a chunk arrive in settle order.
type ResultFunc func(client.Result)

// Config holds orchestrator configuration.
type Config struct {
	// ChunkSize is the number of identifiers fetched concurrently.
	ChunkSize int

	// ChunkDelay is the pause between chunks, keeping an unauthenticated
	// caller under GitHub's rate limit.
	ChunkDelay time.Duration
}

// DefaultConfig returns safe defaults for unauthenticated use.
func DefaultConfig() Config {
	return Config{
		ChunkSize:  8,
		ChunkDelay: 750 * time.Millisecond,
	}
}

// Stats are the counters of one batch run.
type Stats struct {
	Processed     int
	Successful    int
	Failed        int
	RateLimitHits int
	StartTime     time.Time
	EndTime       time.Time
}

// Progress is a read-only snapshot streamed to ProgressFunc.
type Progress struct {
	// CurrentChunk is 1-based; 0 only in the degenerate empty-input run.
	CurrentChunk int
	TotalChunks  int

	Processed     int
	Total         int
	Successful    int
	Failed        int
	RateLimitHits int

	Complete  bool
	Cancelled bool
}

// Runner executes batch runs one at a time. A Runner may be reused for
// consecutive runs but never concurrently.
type Runner struct {
	fetcher Fetcher
	config  Config
	logger  zerolog.Logger

	running   atomic.Bool
	cancelled atomic.Bool

	mu    sync.Mutex
	stats Stats
}

// NewRunner creates a batch runner on top of a retrying fetcher.
func NewRunner(fetcher Fetcher, cfg Config) *Runner {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultConfig().ChunkSize
	}
	if cfg.ChunkDelay < 0 {
		cfg.ChunkDelay = DefaultConfig().ChunkDelay
	}

	return &Runner{
		fetcher: fetcher,
		config:  cfg,
		logger:  log.With().Str("component", "batch").Logger(),
	}
}

// IsRunning reports whether a run is in progress.
func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// Cancel requests a cooperative stop. The current chunk finishes; no
// further chunks start. Safe to call from any goroutine, including the
// progress/result callbacks.
func (r *Runner) Cancel() {
	r.cancelled.Store(true)
}

// Stats returns a snapshot of the most recent run's counters.
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Chunks partitions identifiers into ordered groups of at most size,
// preserving input order. Concatenating the chunks reproduces the input.
func Chunks(identifiers []string, size int) [][]string {
	if size <= 0 {
		size = DefaultConfig().ChunkSize
	}

	chunks := make([][]string, 0, (len(identifiers)+size-1)/size)
	for start := 0; start < len(identifiers); start += size {
		end := start + size
		if end > len(identifiers) {
			end = len(identifiers)
		}
		chunks = append(chunks, identifiers[start:end])
	}
	return chunks
}

// Run fetches all identifiers, streaming each result through onResult the
// moment it settles and a progress snapshot through onProgress before each
// chunk plus once at the end. Either callback may be nil. Individual
// failures never abort the run; the aggregate result slice always holds
// one entry per identifier processed. Returns ErrAlreadyRunning if a run
// is already in progress on this Runner.
func (r *Runner) Run(ctx context.Context, identifiers []string, onProgress ProgressFunc, onResult ResultFunc) ([]client.Result, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer r.running.Store(false)
	r.cancelled.Store(false)

	r.mu.Lock()
	r.stats = Stats{StartTime: time.Now()}
	r.mu.Unlock()

	chunks := Chunks(identifiers, r.config.ChunkSize)
	total := len(identifiers)
	results := make([]client.Result, 0, total)

	r.logger.Info().
		Int("identifiers", total).
		Int("chunks", len(chunks)).
		Int("chunk_size", r.config.ChunkSize).
		Msg("Starting batch run")

	cancelled := false
	for i, chunk := range chunks {
		r.emitProgress(onProgress, i+1, len(chunks), total, false, false)

		start := time.Now()
		results = append(results, r.processChunk(ctx, chunk, onResult)...)
		batchChunkDuration.Observe(time.Since(start).Seconds())

		if r.cancelled.Load() || ctx.Err() != nil {
			cancelled = true
			r.logger.Info().
				Int("chunks_done", i+1).
				Int("chunks_total", len(chunks)).
				Msg("Batch run cancelled")
			break
		}

		if i < len(chunks)-1 && r.config.ChunkDelay > 0 {
			select {
			case <-ctx.Done():
				cancelled = true
			case <-time.After(r.config.ChunkDelay):
				// Cancel may have landed during the delay.
				cancelled = r.cancelled.Load()
			}
			if cancelled {
				break
			}
		}
	}

	r.mu.Lock()
	r.stats.EndTime = time.Now()
	stats := r.stats
	r.mu.Unlock()

	currentChunk := (len(results) + r.config.ChunkSize - 1) / r.config.ChunkSize
	r.emitProgress(onProgress, currentChunk, len(chunks), total, !cancelled, cancelled)

	status := "completed"
	if cancelled {
		status = "cancelled"
	}
	batchRunsTotal.WithLabelValues(status).Inc()

	r.logger.Info().
		Int("processed", stats.Processed).
		Int("successful", stats.Successful).
		Int("failed", stats.Failed).
		Int("rate_limit_hits", stats.RateLimitHits).
		Dur("duration", stats.EndTime.Sub(stats.StartTime)).
		Str("status", status).
		Msg("Batch run finished")

	return results, nil
}

// processChunk fans out every identifier in the chunk concurrently and
// waits for all of them to settle. A panic escaping a lookup becomes a
// processing-error result for that identifier instead of losing it.
func (r *Runner) processChunk(ctx context.Context, chunk []string, onResult ResultFunc) []client.Result {
	results := make([]client.Result, 0, len(chunk))
	var mu sync.Mutex

	g := new(errgroup.Group)
	for _, login := range chunk {
		g.Go(func() error {
			result := r.fetchSafe(ctx, login)

			// The mutex also serializes onResult: the presentation
			// layer sees one result at a time.
			mu.Lock()
			results = append(results, result)
			r.record(result)
			if onResult != nil {
				onResult(result)
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// fetchSafe runs one lookup, converting a panic into a processing-error
// result.
func (r *Runner) fetchSafe(ctx context.Context, login string) (result client.Result) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().
				Str("login", login).
				Interface("panic", p).
				Msg("Lookup panicked")
			result = client.ProcessingFailure(login, fmt.Sprintf("lookup panicked: %v", p))
		}
	}()

	return r.fetcher.FetchWithRetry(ctx, login)
}

// record updates the run counters for one settled result.
func (r *Runner) record(result client.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.Processed++
	if result.OK() {
		r.stats.Successful++
		batchResultsTotal.WithLabelValues("success").Inc()
		return
	}

	r.stats.Failed++
	batchResultsTotal.WithLabelValues("failure").Inc()
	if result.Err.Kind == client.KindRateLimited {
		r.stats.RateLimitHits++
	}
}

// emitProgress builds a snapshot from current counters and delivers it.
func (r *Runner) emitProgress(onProgress ProgressFunc, currentChunk, totalChunks, total int, complete, cancelled bool) {
	if onProgress == nil {
		return
	}

	r.mu.Lock()
	stats := r.stats
	r.mu.Unlock()

	onProgress(Progress{
		CurrentChunk:  currentChunk,
		TotalChunks:   totalChunks,
		Processed:     stats.Processed,
		Total:         total,
		Successful:    stats.Successful,
		Failed:        stats.Failed,
		RateLimitHits: stats.RateLimitHits,
		Complete:      complete,
		Cancelled:     cancelled,
	})
}
