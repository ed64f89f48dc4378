package reconcile

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/spiffcs/linksync/internal/constants"
	"github.com/spiffcs/linksync/internal/model"
)

// GenerateSynchronizationReport builds the issue/PR graph of a repository
// from a single snapshot. An unavailable snapshot is an error; the report is
// never computed from partial data.
func (e *Engine) GenerateSynchronizationReport(ctx context.Context, repository string) (model.SynchronizationReport, error) {
	repo, err := parseRepo(repository)
	if err != nil {
		return model.SynchronizationReport{}, err
	}

	issues, prs, err := e.snapshot(ctx, repo)
	if err != nil {
		return model.SynchronizationReport{}, fmt.Errorf("generate report for %s: %w", repo.FullName(), err)
	}

	report := BuildReport(repo.FullName(), issues, prs)
	report.GeneratedAt = e.now().UTC()

	clog.FromContext(ctx).With("repository", repo.FullName()).Info("synchronization report generated",
		"synchronized", report.Summary.SynchronizedRelations,
		"needs_update", report.Summary.NeedsUpdateRelations,
		"conflicts", report.Summary.ConflictedRelations,
		"orphaned_prs", report.Summary.OrphanedPRs,
		"orphaned_issues", report.Summary.OrphanedIssues,
	)
	if e.observer != nil {
		e.observer.ReportGenerated(repo.FullName())
	}
	return report, nil
}

// BuildReport assembles a report from PRs whose LinkedIssueNumbers are
// already derived. Orphaned PRs are those with no linked numbers; orphaned
// issues are those no PR references.
func BuildReport(repository string, issues []model.Issue, prs []model.PullRequest) model.SynchronizationReport {
	report := model.SynchronizationReport{
		Repository:       repository,
		IssuePRRelations: []model.IssuePRRelation{},
		OrphanedPRs:      []model.PullRequest{},
		OrphanedIssues:   []model.Issue{},
	}

	byIssue := make(map[int][]model.PullRequest)
	for _, pr := range prs {
		if len(pr.LinkedIssueNumbers) == 0 {
			report.OrphanedPRs = append(report.OrphanedPRs, pr)
			continue
		}
		for _, n := range pr.LinkedIssueNumbers {
			byIssue[n] = append(byIssue[n], pr)
		}
	}

	for _, issue := range issues {
		related, ok := byIssue[issue.Number]
		if !ok {
			report.OrphanedIssues = append(report.OrphanedIssues, issue)
			continue
		}
		status := Status(issue, related)
		report.IssuePRRelations = append(report.IssuePRRelations, model.IssuePRRelation{
			Issue:                 issue,
			RelatedPRs:            related,
			SynchronizationStatus: status,
			RecommendedAction:     RecommendedAction(issue, related),
		})
		switch status {
		case model.StatusSynchronized:
			report.Summary.SynchronizedRelations++
		case model.StatusNeedsUpdate:
			report.Summary.NeedsUpdateRelations++
		case model.StatusConflict:
			report.Summary.ConflictedRelations++
		}
	}

	report.Summary.TotalIssues = len(issues)
	report.Summary.TotalPRs = len(prs)
	report.Summary.OrphanedPRs = len(report.OrphanedPRs)
	report.Summary.OrphanedIssues = len(report.OrphanedIssues)
	return report
}

// ExpectedState is the issue state implied by its linked PRs: closed if any
// merged, open if any still open, closed if all were closed unmerged, and
// open when there are none.
func ExpectedState(related []model.PullRequest) string {
	if len(related) == 0 {
		return constants.StateOpen
	}
	anyOpen := false
	for _, pr := range related {
		if pr.Merged {
			return constants.StateClosed
		}
		if pr.IsOpen() {
			anyOpen = true
		}
	}
	if anyOpen {
		return constants.StateOpen
	}
	return constants.StateClosed
}

func issueState(issue model.Issue) string {
	if issue.IsClosed() {
		return constants.StateClosed
	}
	return constants.StateOpen
}

// Status classifies an issue against its linked PRs.
func Status(issue model.Issue, related []model.PullRequest) model.SyncStatus {
	if issueState(issue) == ExpectedState(related) {
		return model.StatusSynchronized
	}
	var merged, open bool
	for _, pr := range related {
		switch {
		case pr.Merged:
			merged = true
		case pr.IsOpen():
			open = true
		}
	}
	if merged && open {
		return model.StatusConflict
	}
	return model.StatusNeedsUpdate
}

// RecommendedAction describes what a human should do to bring the issue in
// line with its PRs.
func RecommendedAction(issue model.Issue, related []model.PullRequest) string {
	state := issueState(issue)
	if state == ExpectedState(related) {
		return "No action needed - issue is synchronized"
	}

	var merged, open, closed int
	for _, pr := range related {
		switch {
		case pr.Merged:
			merged++
		case pr.IsOpen():
			open++
		default:
			closed++
		}
	}

	switch {
	case merged > 0 && state == constants.StateOpen:
		return fmt.Sprintf("Close issue - %d related PR(s) have been merged", merged)
	case open > 0 && state == constants.StateClosed:
		return fmt.Sprintf("Reopen issue - %d related PR(s) are still open", open)
	case closed > 0 && open == 0 && merged == 0 && state == constants.StateOpen:
		return fmt.Sprintf("Consider closing issue - all %d related PR(s) have been closed", closed)
	}
	return "Review manually - complex state relationship"
}
