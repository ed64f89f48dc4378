package reconcile

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/chainguard-dev/clog"
	"github.com/spiffcs/linksync/internal/constants"
	"github.com/spiffcs/linksync/internal/model"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// IssueSyncResult is the outcome of reconciling one issue.
type IssueSyncResult struct {
	Repository  string `json:"repository"`
	IssueNumber int    `json:"issueNumber"`
	// Success is false only when a read or write needed for the
	// reconciliation failed. Having nothing to do is success.
	Success bool `json:"success"`
	// Closed is true when this call closed the issue (or would have, in a
	// dry run).
	Closed     bool   `json:"closed"`
	DryRun     bool   `json:"dryRun,omitempty"`
	CitedPR    int    `json:"citedPR,omitempty"`
	RelatedPRs []int  `json:"relatedPRs,omitempty"`
	Err        error  `json:"-"`
	Error      string `json:"error,omitempty"`
}

// BatchResult aggregates a repository-wide reconciliation.
type BatchResult struct {
	Repository        string            `json:"repository"`
	SynchronizedCount int               `json:"synchronizedCount"`
	ClosedCount       int               `json:"closedCount"`
	Failed            []int             `json:"failed"`
	Results           []IssueSyncResult `json:"results"`
}

func (r *IssueSyncResult) fail(err error) {
	r.Success = false
	r.Err = err
	r.Error = err.Error()
}

func lockKey(repo model.Repository, issueNumber int) string {
	return repo.FullName() + "#" + strconv.Itoa(issueNumber)
}

// SynchronizeIssueWithPRs closes the issue if any linked PR has merged and
// the issue is still open. It returns an error only when the issue itself
// cannot be read; every other failure is reported as Success == false.
// Calling it again after a successful close is a no-op.
func (e *Engine) SynchronizeIssueWithPRs(ctx context.Context, repository string, issueNumber int) (IssueSyncResult, error) {
	repo, err := parseRepo(repository)
	if err != nil {
		return IssueSyncResult{Repository: repository, IssueNumber: issueNumber}, err
	}
	res := IssueSyncResult{Repository: repo.FullName(), IssueNumber: issueNumber}

	unlock := e.locks.Lock(lockKey(repo, issueNumber))
	defer unlock()

	issue, err := e.source.GetIssue(ctx, repo, issueNumber)
	if err != nil {
		return res, fmt.Errorf("fetch issue #%d: %w", issueNumber, err)
	}

	prs, err := e.listPRs(ctx, repo, constants.StateAll, e.fetchLimit)
	if err != nil {
		// An unavailable PR list is not "no linked PRs".
		res.fail(err)
		e.observe(OutcomeFailed)
		return res, nil
	}
	return e.reconcile(ctx, repo, issue, linkedTo(prs, issueNumber)), nil
}

// SynchronizeAllIssuesWithPRs reconciles every issue in the repository, up
// to the fetch limit, against one PR snapshot. Per-issue failures never
// abort the batch; the error return is reserved for an unavailable snapshot.
func (e *Engine) SynchronizeAllIssuesWithPRs(ctx context.Context, repository string) (BatchResult, error) {
	repo, err := parseRepo(repository)
	if err != nil {
		return BatchResult{Repository: repository}, err
	}
	batch := BatchResult{Repository: repo.FullName(), Failed: []int{}, Results: []IssueSyncResult{}}
	log := clog.FromContext(ctx).With("repository", repo.FullName())

	issues, prs, err := e.snapshot(ctx, repo)
	if err != nil {
		return batch, err
	}
	log.Info("synchronizing issues", "issues", len(issues), "pull_requests", len(prs), "dry_run", e.dryRun)

	var limiter *rate.Limiter
	if e.pacing > 0 {
		limiter = rate.NewLimiter(rate.Every(e.pacing), 1)
	}

	results := make([]IssueSyncResult, len(issues))
	var completed atomic.Int32
	var g errgroup.Group
	g.SetLimit(e.workers)
	for i, issue := range issues {
		g.Go(func() error {
			res := e.reconcileFromSnapshot(ctx, repo, issue, prs, limiter)
			results[i] = res
			n := completed.Add(1)
			if e.progress != nil {
				e.progress(res, int(n), len(issues))
			}
			return nil
		})
	}
	_ = g.Wait()

	batch.Results = results
	for _, res := range results {
		if res.Success {
			batch.SynchronizedCount++
		} else {
			batch.Failed = append(batch.Failed, res.IssueNumber)
		}
		if res.Closed && res.Success {
			batch.ClosedCount++
		}
	}
	log.Info("synchronization complete", "synchronized", batch.SynchronizedCount, "closed", batch.ClosedCount, "failed", len(batch.Failed))
	return batch, nil
}

// reconcileFromSnapshot skips all remote calls for issues the snapshot
// already shows need nothing, and re-reads the rest under the issue lock
// before writing.
func (e *Engine) reconcileFromSnapshot(ctx context.Context, repo model.Repository, issue model.Issue, prs []model.PullRequest, limiter *rate.Limiter) IssueSyncResult {
	related := linkedTo(prs, issue.Number)
	if _, ok := firstMerged(related); !ok || issue.IsClosed() {
		return e.reconcile(ctx, repo, issue, related)
	}

	res := IssueSyncResult{Repository: repo.FullName(), IssueNumber: issue.Number, RelatedPRs: numbers(related)}
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			res.fail(err)
			e.observe(OutcomeFailed)
			return res
		}
	}

	unlock := e.locks.Lock(lockKey(repo, issue.Number))
	defer unlock()

	fresh, err := e.source.GetIssue(ctx, repo, issue.Number)
	if err != nil {
		res.fail(fmt.Errorf("fetch issue #%d: %w", issue.Number, err))
		e.observe(OutcomeFailed)
		return res
	}
	return e.reconcile(ctx, repo, fresh, related)
}

// reconcile applies the close transition. The caller holds the issue lock
// whenever a write is possible.
func (e *Engine) reconcile(ctx context.Context, repo model.Repository, issue model.Issue, related []model.PullRequest) IssueSyncResult {
	res := IssueSyncResult{
		Repository:  repo.FullName(),
		IssueNumber: issue.Number,
		RelatedPRs:  numbers(related),
	}
	log := clog.FromContext(ctx).With("repository", repo.FullName(), "issue", issue.Number)

	cited, ok := firstMerged(related)
	switch {
	case !ok:
		log.Debug("no merged linked pull request", "related", len(related))
		res.Success = true
		e.observe(OutcomeNoop)
		return res
	case issue.IsClosed():
		log.Debug("issue already closed", "merged_pr", cited.Number)
		res.Success = true
		e.observe(OutcomeNoop)
		return res
	}

	res.CitedPR = cited.Number
	if e.dryRun {
		log.Info("would close issue", "merged_pr", cited.Number)
		res.Success, res.Closed, res.DryRun = true, true, true
		e.observe(OutcomeDryRun)
		return res
	}

	closed := constants.StateClosed
	if _, err := e.source.UpdateIssue(ctx, repo, issue.Number, model.IssueUpdate{State: &closed}); err != nil {
		log.Warn("failed to close issue", "error", err)
		res.fail(fmt.Errorf("close issue #%d: %w", issue.Number, err))
		e.observe(OutcomeFailed)
		return res
	}
	res.Closed = true

	if _, err := e.source.AddComment(ctx, repo, issue.Number, SynchronizationComment(issue, cited, related)); err != nil {
		log.Warn("issue closed but comment failed", "error", err)
		res.fail(fmt.Errorf("comment on issue #%d: %w", issue.Number, err))
		e.observe(OutcomeFailed)
		return res
	}

	log.Info("closed issue", "merged_pr", cited.Number)
	res.Success = true
	e.observe(OutcomeClosed)
	return res
}

func (e *Engine) observe(outcome string) {
	if e.observer != nil {
		e.observer.IssueReconciled(outcome)
	}
}

// firstMerged returns the first merged PR in discovery order.
func firstMerged(prs []model.PullRequest) (model.PullRequest, bool) {
	for _, pr := range prs {
		if pr.Merged {
			return pr, true
		}
	}
	return model.PullRequest{}, false
}

func numbers(prs []model.PullRequest) []int {
	if len(prs) == 0 {
		return nil
	}
	out := make([]int, len(prs))
	for i, pr := range prs {
		out[i] = pr.Number
	}
	return out
}

// snapshot reads issues and PRs once, in parallel.
func (e *Engine) snapshot(ctx context.Context, repo model.Repository) ([]model.Issue, []model.PullRequest, error) {
	var (
		issues []model.Issue
		prs    []model.PullRequest
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		issues, err = e.source.ListIssues(gctx, repo, constants.StateAll, e.fetchLimit)
		return err
	})
	g.Go(func() error {
		var err error
		prs, err = e.listPRs(gctx, repo, constants.StateAll, e.fetchLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return issues, prs, nil
}
