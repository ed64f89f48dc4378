package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spiffcs/linksync/internal/log"
)

// NewCmdLinks creates the links command.
func NewCmdLinks(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links <owner/repo>",
		Short: "Show the links of one issue or pull request",
		Long: `With --issue, list the pull requests that reference the issue.
With --pr, list the issues the pull request references.`,
		Example: `  linksync links acme/api --issue 123
  linksync links acme/api --pr 45`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLinks(cmd, args[0], opts)
		},
	}
	cmd.Flags().IntVar(&opts.Issue, "issue", 0, "Issue number")
	cmd.Flags().IntVar(&opts.PR, "pr", 0, "Pull request number")
	cmd.Flags().StringVarP(&opts.Format, "format", "o", "", "Output format (table, json, markdown)")
	cmd.MarkFlagsMutuallyExclusive("issue", "pr")
	cmd.MarkFlagsOneRequired("issue", "pr")
	return cmd
}

func runLinks(cmd *cobra.Command, repo string, opts *Options) error {
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
	svc := rt.service()

	if opts.Issue > 0 {
		prs, err := svc.LinkedPullRequests(ctx, repo, opts.Issue)
		if err != nil {
			return err
		}
		return formatter.FormatPullRequests(prs, cmd.OutOrStdout())
	}

	issues, err := svc.LinkedIssues(ctx, repo, opts.PR)
	if err != nil {
		return err
	}
	return formatter.FormatIssues(issues, cmd.OutOrStdout())
}
