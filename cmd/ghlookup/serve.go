package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/ghlookup/ghlookup/pkg/cache"
	"github.com/ghlookup/ghlookup/pkg/client"
	"github.com/ghlookup/ghlookup/pkg/identifier"
	"github.com/ghlookup/ghlookup/pkg/logging"
)

type serveOptions struct {
	addr     string
	token    string
	redisURL string
	cacheTTL time.Duration
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a caching profile lookup service",
		Long:  "Serves GET /users/{login} through the cached, retrying lookup client, plus /healthz and Prometheus /metrics. With --redis, multiple instances share one profile cache.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.token, "token", "", "GitHub token (defaults to $GITHUB_TOKEN)")
	cmd.Flags().StringVar(&opts.redisURL, "redis", "", "Redis address for a shared profile cache (empty = in-memory)")
	cmd.Flags().DurationVar(&opts.cacheTTL, "cache-ttl", cache.DefaultRedisTTL, "TTL for Redis-cached profiles")

	return cmd
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	logger := logging.NewLogger("serve")

	cfg := client.DefaultConfig()
	cfg.UserAgent = "ghlookup/" + version
	cfg.Token = tokenOrEnv(opts.token)

	if opts.redisURL != "" {
		rdb := redis.NewClient(&redis.Options{Addr: opts.redisURL})
		if err := rdb.Ping(cmd.Context()).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", opts.redisURL, err)
		}
		cfg.Store = cache.NewRedisStore(rdb, opts.cacheTTL)
		logger.Info().Str("redis", opts.redisURL).Msg("Using shared Redis profile cache")
	}

	c, err := client.New(cfg)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/{login}", userHandler(c))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              opts.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", opts.addr).Msg("Profile lookup service listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// userHandler serves one profile lookup through the retrying client.
func userHandler(c *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		login := r.PathValue("login")
		if !identifier.Validate(login) {
			http.Error(w, `{"message":"invalid login"}`, http.StatusBadRequest)
			return
		}

		result := c.FetchWithRetry(r.Context(), login)
		if result.OK() {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			w.Write(result.Profile.Raw)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if result.Err.Kind == client.KindRateLimited && result.Err.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(result.Err.RetryAfter.Seconds())))
		}
		w.WriteHeader(statusFor(result.Err))
		fmt.Fprintf(w, `{"message":%s,"kind":%q}`, strconv.Quote(result.Err.Message), result.Err.Kind)
	}
}

// statusFor maps an error kind to the status this service answers with.
func statusFor(err *client.LookupError) int {
	switch err.Kind {
	case client.KindNotFound:
		return http.StatusNotFound
	case client.KindRateLimited:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
