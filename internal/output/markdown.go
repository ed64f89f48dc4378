package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spiffcs/linksync/internal/auth"
	"github.com/spiffcs/linksync/internal/model"
	"github.com/spiffcs/linksync/internal/reconcile"
)

// MarkdownFormatter formats output as Markdown
type MarkdownFormatter struct{}

func statusEmoji(s model.SyncStatus) string {
	switch s {
	case model.StatusSynchronized:
		return "🟢"
	case model.StatusNeedsUpdate:
		return "🟡"
	case model.StatusConflict:
		return "🔴"
	default:
		return "📋"
	}
}

func mdLink(n int, url string) string {
	if url == "" {
		return "#" + strconv.Itoa(n)
	}
	return fmt.Sprintf("[#%d](%s)", n, url)
}

// escapeCell keeps titles from breaking table rows.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func mdNumbers(ns []int) string {
	if len(ns) == 0 {
		return "-"
	}
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = "#" + strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

// FormatReport outputs the report as Markdown
func (f *MarkdownFormatter) FormatReport(report model.SynchronizationReport, w io.Writer) error {
	s := report.Summary
	fmt.Fprintf(w, "# Synchronization Report: %s\n", report.Repository)
	fmt.Fprintf(w, "\n*Generated: %s*\n\n", report.GeneratedAt.Format("2006-01-02 15:04"))

	fmt.Fprintln(w, "## Summary")
	fmt.Fprintln(w, "| Metric | Count |")
	fmt.Fprintln(w, "|--------|-------|")
	fmt.Fprintf(w, "| Issues | %d |\n", s.TotalIssues)
	fmt.Fprintf(w, "| Pull requests | %d |\n", s.TotalPRs)
	fmt.Fprintf(w, "| %s Synchronized | %d |\n", statusEmoji(model.StatusSynchronized), s.SynchronizedRelations)
	fmt.Fprintf(w, "| %s Needs update | %d |\n", statusEmoji(model.StatusNeedsUpdate), s.NeedsUpdateRelations)
	fmt.Fprintf(w, "| %s Conflict | %d |\n", statusEmoji(model.StatusConflict), s.ConflictedRelations)
	fmt.Fprintf(w, "| Orphaned PRs | %d |\n", s.OrphanedPRs)
	fmt.Fprintf(w, "| Orphaned issues | %d |\n", s.OrphanedIssues)

	if len(report.IssuePRRelations) > 0 {
		fmt.Fprintln(w, "\n## Issue Relations")
		fmt.Fprintln(w, "| Issue | State | Status | Pull requests | Action |")
		fmt.Fprintln(w, "|-------|-------|--------|---------------|--------|")
		for _, rel := range report.IssuePRRelations {
			fmt.Fprintf(w, "| %s %s | %s | %s %s | %s | %s |\n",
				mdLink(rel.Issue.Number, rel.Issue.HTMLURL),
				escapeCell(rel.Issue.Title),
				rel.Issue.State,
				statusEmoji(rel.SynchronizationStatus),
				rel.SynchronizationStatus,
				mdNumbers(prNumbers(rel.RelatedPRs)),
				rel.RecommendedAction)
		}
	}

	if len(report.OrphanedPRs) > 0 {
		fmt.Fprintln(w, "\n## Orphaned Pull Requests")
		for _, pr := range report.OrphanedPRs {
			fmt.Fprintf(w, "- %s %s (%s)\n", mdLink(pr.Number, pr.HTMLURL), pr.Title, pr.DisplayState())
		}
	}
	if len(report.OrphanedIssues) > 0 {
		fmt.Fprintln(w, "\n## Orphaned Issues")
		for _, issue := range report.OrphanedIssues {
			fmt.Fprintf(w, "- %s %s\n", mdLink(issue.Number, issue.HTMLURL), issue.Title)
		}
	}
	return nil
}

// FormatPullRequests outputs pull requests as a Markdown table
func (f *MarkdownFormatter) FormatPullRequests(prs []model.PullRequest, w io.Writer) error {
	if len(prs) == 0 {
		fmt.Fprintln(w, "No pull requests found.")
		return nil
	}
	fmt.Fprintln(w, "| PR | Title | State | Linked issues | Updated |")
	fmt.Fprintln(w, "|----|-------|-------|---------------|---------|")
	for _, pr := range prs {
		fmt.Fprintf(w, "| %s | %s | %s | %s | %s |\n",
			mdLink(pr.Number, pr.HTMLURL),
			escapeCell(pr.Title),
			pr.DisplayState(),
			mdNumbers(pr.LinkedIssueNumbers),
			pr.UpdatedAt.Format("2006-01-02"))
	}
	return nil
}

// FormatIssues outputs issues as a Markdown list
func (f *MarkdownFormatter) FormatIssues(issues []model.Issue, w io.Writer) error {
	if len(issues) == 0 {
		fmt.Fprintln(w, "No issues found.")
		return nil
	}
	for _, issue := range issues {
		fmt.Fprintf(w, "- %s %s (%s)\n", mdLink(issue.Number, issue.HTMLURL), issue.Title, issue.State)
	}
	return nil
}

func mdOutcome(r reconcile.IssueSyncResult) string {
	switch {
	case !r.Success:
		return "❌ failed: " + r.Error
	case r.Closed && r.DryRun:
		return fmt.Sprintf("would close (PR #%d merged)", r.CitedPR)
	case r.Closed:
		return fmt.Sprintf("✅ closed (PR #%d merged)", r.CitedPR)
	default:
		return "no change"
	}
}

// FormatSyncResult outputs the result of one issue as Markdown
func (f *MarkdownFormatter) FormatSyncResult(result reconcile.IssueSyncResult, w io.Writer) error {
	fmt.Fprintf(w, "- **%s#%d:** %s\n", result.Repository, result.IssueNumber, mdOutcome(result))
	return nil
}

// FormatBatchResult outputs a repository-wide result as Markdown
func (f *MarkdownFormatter) FormatBatchResult(result reconcile.BatchResult, w io.Writer) error {
	fmt.Fprintf(w, "# Synchronization: %s\n\n", result.Repository)
	fmt.Fprintf(w, "- **Synchronized:** %d\n", result.SynchronizedCount)
	fmt.Fprintf(w, "- **Closed:** %d\n", result.ClosedCount)
	fmt.Fprintf(w, "- **Failed:** %s\n", mdNumbers(result.Failed))

	var changed []reconcile.IssueSyncResult
	for _, r := range result.Results {
		if r.Closed || !r.Success {
			changed = append(changed, r)
		}
	}
	if len(changed) > 0 {
		fmt.Fprintln(w, "\n## Issues")
		for _, r := range changed {
			fmt.Fprintf(w, "- #%d %s\n", r.IssueNumber, mdOutcome(r))
		}
	}
	return nil
}

// FormatConnectivity outputs the auth check as Markdown
func (f *MarkdownFormatter) FormatConnectivity(result auth.ConnectivityResult, w io.Writer) error {
	fmt.Fprintln(w, "# Authentication Status")
	fmt.Fprintf(w, "\n- **Strategy:** %s\n", result.Strategy)
	if !result.Success {
		fmt.Fprintf(w, "- **Error:** %s\n", result.Error)
		return nil
	}
	if result.InstallationID != 0 {
		fmt.Fprintf(w, "- **Installation:** %d\n", result.InstallationID)
	}
	if !result.TokenExpiresAt.IsZero() {
		fmt.Fprintf(w, "- **Token expires:** %s\n", result.TokenExpiresAt.Format(time.RFC3339))
	}
	if len(result.Scopes) > 0 {
		fmt.Fprintf(w, "- **Scopes:** `%s`\n", strings.Join(result.Scopes, "`, `"))
	}
	fmt.Fprintf(w, "- **Repositories:** %d\n", len(result.Repositories))
	return nil
}
