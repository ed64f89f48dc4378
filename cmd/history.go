package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spiffcs/linksync/internal/format"
	"github.com/spiffcs/linksync/internal/history"
	"github.com/spiffcs/linksync/internal/output"
)

// NewCmdHistory creates the history command.
func NewCmdHistory(opts *Options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [owner/repo]",
		Short: "Show recent sync and report runs",
		Long: `Show the runs recorded by 'linksync sync --all' and 'linksync report' on
this machine, newest last. Pass a repository to filter.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := ""
			if len(args) == 1 {
				repo = args[0]
			}
			store, err := history.NewStore()
			if err != nil {
				return err
			}
			return runHistory(cmd.OutOrStdout(), store, repo, limit, opts.Format, time.Now())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	cmd.Flags().StringVarP(&opts.Format, "format", "o", "", "Output format (table, json)")
	return cmd
}

func runHistory(w io.Writer, store *history.Store, repo string, limit int, formatName string, now time.Time) error {
	f, err := output.ParseFormat(formatName)
	if err != nil {
		return err
	}
	runs, err := store.Recent(repo, limit)
	if err != nil {
		return err
	}

	if f == output.FormatJSON {
		if runs == nil {
			runs = []history.Run{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	fmt.Fprintf(w, "%s %s %s %s\n", format.Cell("AGE", 5), format.Cell("REPOSITORY", 28), format.Cell("KIND", 7), "RESULT")
	for _, r := range runs {
		fmt.Fprintf(w, "%s %s %s %s\n",
			format.Cell(format.Since(r.Timestamp, now), 5),
			format.Cell(r.Repository, 28),
			format.Cell(string(r.Kind), 7),
			runSummary(r))
	}
	return nil
}

func runSummary(r history.Run) string {
	switch r.Kind {
	case history.KindSync:
		s := fmt.Sprintf("%d synchronized, %d closed", r.Synchronized, r.Closed)
		if r.Failed > 0 {
			s += fmt.Sprintf(", %d failed", r.Failed)
		}
		if r.DryRun {
			s += " (dry run)"
		}
		return s
	case history.KindReport:
		return fmt.Sprintf("%d issues, %d PRs, %d need update, %d conflicts",
			r.Issues, r.PullRequests, r.NeedsUpdate, r.Conflicts)
	}
	return "-"
}
