package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spiffcs/linksync/internal/history"
	"github.com/spiffcs/linksync/internal/log"
	"github.com/spiffcs/linksync/internal/output"
	"github.com/spiffcs/linksync/internal/service"
	"github.com/spiffcs/linksync/internal/tui"
)

// NewCmdReport creates the report command.
func NewCmdReport(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [owner/repo...]",
		Short: "Report how issues relate to the pull requests that reference them",
		Long: `Build a synchronization report for one or more repositories: every issue
with its referencing pull requests, whether the issue state matches them, what
to do about it, and the pull requests and issues with no link at all.

Without arguments the repositories listed in the config file are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, args, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.Format, "format", "o", "", "Output format (table, json, markdown)")
	return cmd
}

func runReport(cmd *cobra.Command, args []string, opts *Options) error {
	ctx := cmd.Context()
	useTUI := shouldUseTUI(opts)
	rt, cleanup, err := setupSession(ctx, opts, useTUI)
	if err != nil {
		return err
	}
	defer cleanup()
	ctx = log.WithContext(ctx)

	repos := args
	if len(repos) == 0 {
		repos = rt.cfg.Repositories
	}
	if len(repos) == 0 {
		return fmt.Errorf("no repository given and none configured (see 'linksync config set repositories')")
	}

	format, err := rt.format()
	if err != nil {
		return err
	}
	formatter := output.NewFormatter(format)

	rt.startTUI(tui.ReportTasks())
	if err := rt.authenticate(ctx); err != nil {
		return err
	}

	svc := rt.service()
	rt.sendEvent(tui.TaskReport, tui.StatusRunning)
	fetcher := service.NewFetcher(svc, rt.cfg.Workers, func(completed, total int) {
		if total == 0 {
			return
		}
		rt.sendEvent(tui.TaskReport, tui.StatusRunning,
			tui.WithProgress(float64(completed)/float64(total)),
			tui.WithMessage(fmt.Sprintf("%d/%d repositories", completed, total)))
	})
	result := fetcher.FetchReports(ctx, repos)
	if result.RateLimited {
		status := rt.client.RateLimitStatus()
		tui.SendEvent(rt.events, tui.RateLimitEvent{Limited: true, ResetAt: status.ResetAt})
	}
	rt.sendEvent(tui.TaskReport, tui.StatusComplete, tui.WithCount(len(repos)-result.Failed()))
	rt.stopTUI()

	var runs []history.Run
	for _, rep := range result.Reports {
		if rep.Report != nil {
			runs = append(runs, history.FromReport(*rep.Report))
		}
	}
	rt.record(runs...)

	out := cmd.OutOrStdout()
	if len(repos) > 1 && format == output.FormatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		for i, rep := range result.Reports {
			if i > 0 {
				fmt.Fprintln(out)
			}
			if rep.Err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", rep.Repository, rep.Err)
				continue
			}
			if err := formatter.FormatReport(*rep.Report, out); err != nil {
				return err
			}
		}
	}

	if n := result.Failed(); n > 0 {
		if len(repos) == 1 {
			return result.Reports[0].Err
		}
		return fmt.Errorf("%d of %d reports failed", n, len(repos))
	}
	return nil
}
