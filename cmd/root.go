package cmd

import (
	"github.com/spf13/cobra"
)

// New creates the root command with all subcommands registered.
func New() *cobra.Command {
	opts := NewOptions()

	rootCmd := &cobra.Command{
		Use:   "linksync",
		Short: "Keep GitHub issues in step with the pull requests that reference them",
		Long: `linksync links pull requests to the issues they reference (#123 in the
title or body), reports how each issue's state relates to its pull requests,
and closes open issues once a referencing pull request has merged.

Credentials come from a GitHub App (LINKSYNC_APP_ID and
LINKSYNC_APP_PRIVATE_KEY) or, inside GitHub Actions with
LINKSYNC_USE_AMBIENT_TOKEN=true, from GITHUB_TOKEN.`,
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.CountVarP(&opts.Verbosity, "verbose", "v", "Increase verbosity (-v info, -vv debug, -vvv trace)")
	flags.StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	flags.BoolVar(&opts.NoHistory, "no-history", false, "Do not record this run in the local history")
	flags.StringVar(&opts.CPUProfile, "cpuprofile", "", "Write CPU profile to file")
	flags.StringVar(&opts.MemProfile, "memprofile", "", "Write memory profile to file")
	flags.StringVar(&opts.Trace, "trace", "", "Write execution trace to file")

	rootCmd.AddCommand(NewCmdReport(opts))
	rootCmd.AddCommand(NewCmdSync(opts))
	rootCmd.AddCommand(NewCmdPRs(opts))
	rootCmd.AddCommand(NewCmdLinks(opts))
	rootCmd.AddCommand(NewCmdAuth(opts))
	rootCmd.AddCommand(NewCmdConfig())
	rootCmd.AddCommand(NewCmdHistory(opts))
	rootCmd.AddCommand(NewCmdRateLimit(opts))
	rootCmd.AddCommand(NewCmdVersion())

	return rootCmd
}
