// Command ghlookup looks up GitHub user profiles in rate-limit-respecting
// batches, either once from the command line or continuously as a small
// caching proxy service.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ghlookup/ghlookup/pkg/logging"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		debug  bool
		pretty bool
	)

	cmd := &cobra.Command{
		Use:     "ghlookup",
		Short:   "Batch GitHub profile lookup",
		Long:    "ghlookup fetches GitHub user profiles by login, in chunks that respect the API rate limit, with retries and streamed progress.",
		Version: version,
		Example: `  # Look up a few profiles
  ghlookup lookup octocat torvalds

  # Comma-separated input, JSON output, authenticated
  ghlookup lookup "octocat, torvalds" --json --token $GITHUB_TOKEN

  # Run the caching proxy with a shared Redis cache
  ghlookup serve --addr :8080 --redis localhost:6379`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := logging.LevelInfo
			if debug {
				level = logging.LevelDebug
			}
			logging.Setup(logging.Config{
				Level:  level,
				Pretty: pretty,
				Output: os.Stderr,
			})
		},
	}

	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "human-readable log output")
	cmd.AddCommand(newLookupCmd(), newServeCmd())

	return cmd
}

// tokenOrEnv prefers the flag value, falling back to GITHUB_TOKEN.
func tokenOrEnv(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("GITHUB_TOKEN")
}
