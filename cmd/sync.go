package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spiffcs/linksync/internal/history"
	"github.com/spiffcs/linksync/internal/log"
	"github.com/spiffcs/linksync/internal/output"
	"github.com/spiffcs/linksync/internal/reconcile"
	"github.com/spiffcs/linksync/internal/service"
	"github.com/spiffcs/linksync/internal/tui"
)

// NewCmdSync creates the sync command.
func NewCmdSync(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync <owner/repo> [issue]",
		Short: "Close issues whose referencing pull requests have merged",
		Long: `Reconcile issue state with the pull requests that reference it. An open
issue with a merged referencing pull request is closed and receives a comment
listing the related pull requests. Issues are never reopened.

The issue may be a number, #number, or an issue URL. Use --all to reconcile
every issue in the repository.`,
		Example: `  linksync sync acme/api 123
  linksync sync https://github.com/acme/api/issues/123
  linksync sync acme/api --all --dry-run`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "Reconcile every issue in the repository")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Report what would change without writing")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "Issues reconciled concurrently (default from config)")
	cmd.Flags().StringVarP(&opts.Format, "format", "o", "", "Output format (table, json, markdown)")
	// TUI flag with tri-state: nil = auto, true = force, false = disable
	cmd.Flags().Var(newTUIFlag(opts), "tui", "Enable/disable TUI progress for --all (default: auto-detect)")
	cmd.Flags().Lookup("tui").NoOptDefVal = "true"

	return cmd
}

// syncTarget resolves the repository and issue number from the arguments.
func syncTarget(args []string, all bool) (repo string, number int, err error) {
	repo = args[0]
	ref := ""
	if len(args) == 2 {
		ref = args[1]
	}

	// A single issue URL names both.
	if len(args) == 1 && !all {
		if urlRepo, n, perr := service.ParseNumber(args[0]); perr == nil && urlRepo != "" {
			return urlRepo, n, nil
		}
	}

	switch {
	case all && ref != "":
		return "", 0, fmt.Errorf("--all cannot be combined with an issue")
	case all:
		return repo, 0, nil
	case ref == "":
		return "", 0, fmt.Errorf("specify an issue number or --all")
	}

	urlRepo, n, err := service.ParseNumber(ref)
	if err != nil {
		return "", 0, err
	}
	if urlRepo != "" && urlRepo != repo {
		return "", 0, fmt.Errorf("issue %s belongs to %s, not %s", ref, urlRepo, repo)
	}
	return repo, n, nil
}

func runSync(cmd *cobra.Command, args []string, opts *Options) error {
	repo, number, err := syncTarget(args, opts.All)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	useTUI := opts.All && shouldUseTUI(opts)
	rt, cleanup, err := setupSession(ctx, opts, useTUI)
	if err != nil {
		return err
	}
	defer cleanup()
	ctx = log.WithContext(ctx)

	formatter, err := rt.formatter()
	if err != nil {
		return err
	}

	if !opts.All {
		return syncOne(ctx, cmd, rt, formatter, repo, number)
	}

	rt.startTUI(tui.SyncTasks())
	if err := rt.authenticate(ctx); err != nil {
		return err
	}

	var fetched sync.Once
	markFetched := func() {
		fetched.Do(func() { rt.sendEvent(tui.TaskFetch, tui.StatusComplete) })
	}
	onIssue := tui.SyncProgress(rt.events)
	progress := func(result reconcile.IssueSyncResult, completed, total int) {
		markFetched()
		onIssue(result, completed, total)
	}

	rt.sendEvent(tui.TaskFetch, tui.StatusRunning)
	svc := rt.service(reconcile.WithProgress(progress))
	res, err := svc.SynchronizeAllIssues(ctx, repo)
	if err != nil {
		rt.sendEvent(tui.TaskFetch, tui.StatusError, tui.WithError(err))
		return err
	}
	markFetched()
	rt.sendEvent(tui.TaskReconcile, tui.StatusComplete,
		tui.WithMessage(fmt.Sprintf("%d closed, %d failed", res.Detail.ClosedCount, len(res.Detail.Failed))))
	rt.stopTUI()
	rt.record(history.FromBatch(res.Detail, opts.DryRun, time.Now()))

	if err := formatter.FormatBatchResult(res.Detail, cmd.OutOrStdout()); err != nil {
		return err
	}
	if n := len(res.Detail.Failed); n > 0 {
		return fmt.Errorf("%d issue(s) could not be synchronized", n)
	}
	return nil
}

func syncOne(ctx context.Context, cmd *cobra.Command, rt *session, formatter output.Formatter, repo string, number int) error {
	res, err := rt.service().SynchronizeIssue(ctx, repo, number)
	if err != nil {
		return err
	}
	if err := formatter.FormatSyncResult(res.Detail, cmd.OutOrStdout()); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("issue #%d was not synchronized", number)
	}
	return nil
}
