package cmd

import (
	"fmt"
	"time"

	gh "github.com/google/go-github/v57/github"
	"github.com/spf13/cobra"
	"github.com/spiffcs/linksync/internal/log"
)

// NewCmdRateLimit creates the ratelimit command.
func NewCmdRateLimit(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Check GitHub API rate limit status",
		Long:  `Display current GitHub API rate limit status including remaining quota and reset time.`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show current rate limit status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRateLimitStatus(cmd, opts)
		},
	})
	return cmd
}

func runRateLimitStatus(cmd *cobra.Command, opts *Options) error {
	ctx := cmd.Context()
	rt, cleanup, err := setupSession(ctx, opts, false)
	if err != nil {
		return err
	}
	defer cleanup()

	limits, err := rt.client.RateLimits(log.WithContext(ctx))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "GitHub API Rate Limits:")
	fmt.Fprintln(out)
	printRate(cmd, "Core API:  ", limits.GetCore())
	printRate(cmd, "Search API:", limits.GetSearch())
	printRate(cmd, "GraphQL:   ", limits.GetGraphQL())
	return nil
}

func printRate(cmd *cobra.Command, label string, r *gh.Rate) {
	if r == nil {
		return
	}
	resetIn := time.Until(r.Reset.Time).Round(time.Second)
	if resetIn < 0 {
		resetIn = 0
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %d/%d remaining (resets in %s)\n", label, r.Remaining, r.Limit, resetIn)
}
