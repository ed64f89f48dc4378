package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spiffcs/linksync/internal/constants"
	"github.com/spiffcs/linksync/internal/log"
)

// NewCmdPRs creates the prs command.
func NewCmdPRs(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prs <owner/repo>",
		Short: "List pull requests with the issues they reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPRs(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.State, "state", constants.StateAll, "Pull request state (all, open, closed)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", constants.DefaultListLimit, "Maximum number of pull requests")
	cmd.Flags().StringVarP(&opts.Format, "format", "o", "", "Output format (table, json, markdown)")
	return cmd
}

func runPRs(cmd *cobra.Command, repo string, opts *Options) error {
	switch opts.State {
	case constants.StateAll, constants.StateOpen, constants.StateClosed:
	default:
		return fmt.Errorf("invalid state %q (must be all, open or closed)", opts.State)
	}

	ctx := cmd.Context()
	rt, cleanup, err := setupSession(ctx, opts, false)
	if err != nil {
		return err
	}
	defer cleanup()
	ctx = log.WithContext(ctx)

	formatter, err := rt.formatter()
	if err != nil {
		return err
	}

	prs, err := rt.service().GetPullRequests(ctx, repo, opts.State, opts.Limit)
	if err != nil {
		return err
	}
	return formatter.FormatPullRequests(prs, cmd.OutOrStdout())
}
