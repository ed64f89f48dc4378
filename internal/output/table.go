package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spiffcs/linksync/internal/auth"
	"github.com/spiffcs/linksync/internal/format"
	"github.com/spiffcs/linksync/internal/model"
	"github.com/spiffcs/linksync/internal/reconcile"
)

// TableFormatter formats output as a terminal table
type TableFormatter struct {
	// Now is used for relative ages. Defaults to time.Now.
	Now func() time.Time
}

func (f *TableFormatter) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

const (
	colNumber = 7
	colState  = 9
	colTitle  = 48
	colStatus = 13
	colLinks  = 16
	colAge    = 5
)

func colorStatus(s model.SyncStatus) string {
	label := format.StatusLabel(s)
	switch s {
	case model.StatusSynchronized:
		return color.GreenString(label)
	case model.StatusNeedsUpdate:
		return color.YellowString(label)
	case model.StatusConflict:
		return color.RedString(label)
	default:
		return label
	}
}

func colorPRState(pr model.PullRequest) string {
	text := format.PRStateMark(pr) + " " + pr.DisplayState()
	switch pr.DisplayState() {
	case "merged":
		return color.MagentaString(text)
	case "open":
		return color.GreenString(text)
	default:
		return color.RedString(text)
	}
}

func numberCell(n int, url string) string {
	text := "#" + strconv.Itoa(n)
	return format.PadRight(format.Hyperlink(text, url), len(text), colNumber)
}

func joinNumbers(ns []int) string {
	if len(ns) == 0 {
		return "-"
	}
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = "#" + strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func prNumbers(prs []model.PullRequest) []int {
	out := make([]int, len(prs))
	for i, pr := range prs {
		out[i] = pr.Number
	}
	return out
}

// FormatReport outputs the report as a summary plus relation table
func (f *TableFormatter) FormatReport(report model.SynchronizationReport, w io.Writer) error {
	s := report.Summary
	fmt.Fprintf(w, "Synchronization report for %s\n", color.New(color.Bold).Sprint(report.Repository))
	fmt.Fprintf(w, "Generated %s\n\n", report.GeneratedAt.Format(time.RFC3339))

	fmt.Fprintf(w, "  Issues: %d   Pull requests: %d\n", s.TotalIssues, s.TotalPRs)
	fmt.Fprintf(w, "  %s %d   %s %d   %s %d\n",
		color.GreenString("in sync:"), s.SynchronizedRelations,
		color.YellowString("needs update:"), s.NeedsUpdateRelations,
		color.RedString("conflict:"), s.ConflictedRelations)
	fmt.Fprintf(w, "  Orphaned PRs: %d   Orphaned issues: %d\n", s.OrphanedPRs, s.OrphanedIssues)

	if len(report.IssuePRRelations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%-*s  %-*s  %-*s  %-*s  %s\n",
			colNumber, "Issue",
			colState, "State",
			colStatus, "Status",
			colLinks, "PRs",
			"Action")
		fmt.Fprintln(w, strings.Repeat("-", colNumber+colState+colStatus+colLinks+40))
		for _, rel := range report.IssuePRRelations {
			label := format.StatusLabel(rel.SynchronizationStatus)
			fmt.Fprintf(w, "%s  %s  %s  %s  %s\n",
				numberCell(rel.Issue.Number, rel.Issue.HTMLURL),
				format.Cell(rel.Issue.State, colState),
				format.PadRight(colorStatus(rel.SynchronizationStatus), format.DisplayWidth(label), colStatus),
				format.Cell(joinNumbers(prNumbers(rel.RelatedPRs)), colLinks),
				rel.RecommendedAction)
		}
	}

	if len(report.OrphanedPRs) > 0 {
		fmt.Fprintln(w, "\nPull requests without issue references:")
		for _, pr := range report.OrphanedPRs {
			title, _ := format.Truncate(pr.Title, colTitle)
			fmt.Fprintf(w, "  %s  %s\n", numberCell(pr.Number, pr.HTMLURL), title)
		}
	}
	if len(report.OrphanedIssues) > 0 {
		fmt.Fprintln(w, "\nIssues without pull requests:")
		for _, issue := range report.OrphanedIssues {
			title, _ := format.Truncate(issue.Title, colTitle)
			fmt.Fprintf(w, "  %s  %s\n", numberCell(issue.Number, issue.HTMLURL), title)
		}
	}
	return nil
}

// FormatPullRequests outputs pull requests with their linked issues
func (f *TableFormatter) FormatPullRequests(prs []model.PullRequest, w io.Writer) error {
	if len(prs) == 0 {
		fmt.Fprintln(w, "No pull requests found.")
		return nil
	}

	fmt.Fprintf(w, "%-*s  %-*s  %-*s  %-*s  %s\n",
		colNumber, "PR",
		colState, "State",
		colTitle, "Title",
		colLinks, "Issues",
		"Age")
	fmt.Fprintln(w, strings.Repeat("-", colNumber+colState+colTitle+colLinks+colAge+8))

	now := f.now()
	for _, pr := range prs {
		stateText := format.PRStateMark(pr) + " " + pr.DisplayState()
		fmt.Fprintf(w, "%s  %s  %s  %s  %s\n",
			numberCell(pr.Number, pr.HTMLURL),
			format.PadRight(colorPRState(pr), format.DisplayWidth(stateText), colState),
			format.Cell(pr.Title, colTitle),
			format.Cell(joinNumbers(pr.LinkedIssueNumbers), colLinks),
			format.Since(pr.UpdatedAt, now))
	}
	fmt.Fprintf(w, "\n%d pull request(s)\n", len(prs))
	return nil
}

// FormatIssues outputs issues
func (f *TableFormatter) FormatIssues(issues []model.Issue, w io.Writer) error {
	if len(issues) == 0 {
		fmt.Fprintln(w, "No issues found.")
		return nil
	}

	fmt.Fprintf(w, "%-*s  %-*s  %-*s  %s\n",
		colNumber, "Issue",
		colState, "State",
		colTitle, "Title",
		"Age")
	fmt.Fprintln(w, strings.Repeat("-", colNumber+colState+colTitle+colAge+6))

	now := f.now()
	for _, issue := range issues {
		fmt.Fprintf(w, "%s  %s  %s  %s\n",
			numberCell(issue.Number, issue.HTMLURL),
			format.Cell(issue.State, colState),
			format.Cell(issue.Title, colTitle),
			format.Since(issue.UpdatedAt, now))
	}
	return nil
}

func syncLine(r reconcile.IssueSyncResult) string {
	switch {
	case !r.Success:
		return color.RedString("failed") + ": " + r.Error
	case r.Closed && r.DryRun:
		return color.CyanString("would close") + fmt.Sprintf(" (PR #%d merged)", r.CitedPR)
	case r.Closed:
		return color.GreenString("closed") + fmt.Sprintf(" (PR #%d merged)", r.CitedPR)
	default:
		return "no change"
	}
}

// FormatSyncResult outputs the result of one issue
func (f *TableFormatter) FormatSyncResult(result reconcile.IssueSyncResult, w io.Writer) error {
	fmt.Fprintf(w, "%s#%d: %s\n", result.Repository, result.IssueNumber, syncLine(result))
	if len(result.RelatedPRs) > 0 {
		fmt.Fprintf(w, "  related pull requests: %s\n", joinNumbers(result.RelatedPRs))
	}
	return nil
}

// FormatBatchResult outputs the per-issue lines of changed or failed issues
// followed by totals
func (f *TableFormatter) FormatBatchResult(result reconcile.BatchResult, w io.Writer) error {
	for _, r := range result.Results {
		if r.Closed || !r.Success {
			fmt.Fprintf(w, "  %s %s\n", numberCell(r.IssueNumber, ""), syncLine(r))
		}
	}
	if len(result.Results) > 0 {
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%s: %d issue(s) synchronized, %d closed", result.Repository, result.SynchronizedCount, result.ClosedCount)
	if n := len(result.Failed); n > 0 {
		fmt.Fprintf(w, ", %s", color.RedString("%d failed", n))
	}
	fmt.Fprintln(w)
	return nil
}

// FormatConnectivity outputs the auth check
func (f *TableFormatter) FormatConnectivity(result auth.ConnectivityResult, w io.Writer) error {
	if !result.Success {
		fmt.Fprintf(w, "%s using %s credentials\n", color.RedString("Authentication failed"), result.Strategy)
		fmt.Fprintf(w, "  %s\n", result.Error)
		return nil
	}

	fmt.Fprintf(w, "%s using %s credentials\n", color.GreenString("Authenticated"), result.Strategy)
	if result.InstallationID != 0 {
		fmt.Fprintf(w, "  Installation:  %d\n", result.InstallationID)
	}
	if !result.TokenExpiresAt.IsZero() {
		fmt.Fprintf(w, "  Token expires: %s\n", result.TokenExpiresAt.Format(time.RFC3339))
	}
	if len(result.Scopes) > 0 {
		fmt.Fprintf(w, "  Scopes:        %s\n", strings.Join(result.Scopes, ", "))
	}
	fmt.Fprintf(w, "  Repositories:  %d\n", len(result.Repositories))
	for _, repo := range result.Repositories {
		fmt.Fprintf(w, "    %s\n", repo)
	}
	return nil
}
