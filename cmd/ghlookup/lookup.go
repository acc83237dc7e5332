package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ghlookup/ghlookup/pkg/batch"
	"github.com/ghlookup/ghlookup/pkg/client"
	"github.com/ghlookup/ghlookup/pkg/identifier"
)

type lookupOptions struct {
	token      string
	chunkSize  int
	chunkDelay time.Duration
	maxRetries int
	timeout    time.Duration
	jsonOut    bool
}

func newLookupCmd() *cobra.Command {
	var opts lookupOptions

	cmd := &cobra.Command{
		Use:   "lookup [logins...]",
		Short: "Look up one or more GitHub profiles",
		Long:  "Looks up the given logins (space- or comma-separated) in chunks, streaming each profile as it arrives. Invalid logins are reported and skipped.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd, opts, args)
		},
	}

	defaults := batch.DefaultConfig()
	clientDefaults := client.DefaultConfig()

	cmd.Flags().StringVar(&opts.token, "token", "", "GitHub token (defaults to $GITHUB_TOKEN)")
	cmd.Flags().IntVar(&opts.chunkSize, "chunk-size", defaults.ChunkSize, "identifiers fetched concurrently per chunk")
	cmd.Flags().DurationVar(&opts.chunkDelay, "chunk-delay", defaults.ChunkDelay, "pause between chunks")
	cmd.Flags().IntVar(&opts.maxRetries, "max-retries", clientDefaults.MaxRetries, "attempts per identifier")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", clientDefaults.RequestTimeout, "per-request timeout")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "emit results as JSON")

	return cmd
}

func runLookup(cmd *cobra.Command, opts lookupOptions, args []string) error {
	parsed := identifier.ParseBatch(strings.Join(args, ","))
	for _, bad := range parsed.Invalid {
		cmd.PrintErrf("skipping invalid login: %q\n", bad)
	}
	if len(parsed.Valid) == 0 {
		return fmt.Errorf("no valid logins to look up")
	}

	cfg := client.DefaultConfig()
	cfg.UserAgent = "ghlookup/" + version
	cfg.Token = tokenOrEnv(opts.token)
	cfg.MaxRetries = opts.maxRetries
	cfg.RequestTimeout = opts.timeout

	c, err := client.New(cfg)
	if err != nil {
		return err
	}

	runner := batch.NewRunner(c, batch.Config{
		ChunkSize:  opts.chunkSize,
		ChunkDelay: opts.chunkDelay,
	})

	// Ctrl-C finishes the current chunk, then stops.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	onProgress := func(p batch.Progress) {
		if p.Complete || p.Cancelled {
			return
		}
		cmd.PrintErrf("chunk %d/%d (%d/%d done)\n", p.CurrentChunk, p.TotalChunks, p.Processed, p.Total)
	}

	var onResult batch.ResultFunc
	if !opts.jsonOut {
		onResult = func(r client.Result) {
			cmd.Println(formatResult(r))
		}
	}

	results, err := runner.Run(ctx, parsed.Valid, onProgress, onResult)
	if err != nil {
		return err
	}

	if opts.jsonOut {
		if err := writeJSON(cmd, results); err != nil {
			return err
		}
	}

	stats := runner.Stats()
	cmd.PrintErrf("done: %d looked up, %d ok, %d failed in %s\n",
		stats.Processed, stats.Successful, stats.Failed,
		stats.EndTime.Sub(stats.StartTime).Round(time.Millisecond))

	if ctx.Err() != nil {
		return fmt.Errorf("interrupted after %d of %d lookups", stats.Processed, len(parsed.Valid))
	}
	return nil
}

func formatResult(r client.Result) string {
	if r.OK() {
		p := r.Profile
		name := p.Name
		if name == "" {
			name = p.Login
		}
		return fmt.Sprintf("ok   %-20s %s (repos %d, followers %d) %s",
			r.Identifier, name, p.PublicRepos, p.Followers, p.HTMLURL)
	}
	return fmt.Sprintf("fail %-20s %s", r.Identifier, r.Err.Error())
}

// jsonResult is the stable CLI output shape for one lookup.
type jsonResult struct {
	Identifier string          `json:"identifier"`
	Profile    *client.Profile `json:"profile,omitempty"`
	Error      *jsonError      `json:"error,omitempty"`
}

type jsonError struct {
	Kind    string `json:"kind"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
}

func writeJSON(cmd *cobra.Command, results []client.Result) error {
	out := make([]jsonResult, 0, len(results))
	for _, r := range results {
		jr := jsonResult{Identifier: r.Identifier, Profile: r.Profile}
		if r.Err != nil {
			jr.Error = &jsonError{
				Kind:    string(r.Err.Kind),
				Status:  r.Err.StatusCode,
				Message: r.Err.Message,
			}
		}
		out = append(out, jr)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
