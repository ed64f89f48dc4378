// Package reconcile turns raw issues and pull requests into relations,
// detects orphans, and closes issues whose linked work has merged.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/spiffcs/linksync/internal/constants"
	"github.com/spiffcs/linksync/internal/ghclient"
	"github.com/spiffcs/linksync/internal/linkref"
	"github.com/spiffcs/linksync/internal/model"
)

// ErrInvalidRepository is returned for repository arguments that are not
// of the form "owner/name".
var ErrInvalidRepository = errors.New("repository must be of the form owner/name")

// Source is the remote data the engine reads and writes. *ghclient.Client
// implements it.
type Source interface {
	ListPullRequests(ctx context.Context, repo model.Repository, state string, limit int) ([]model.PullRequest, error)
	ListIssues(ctx context.Context, repo model.Repository, state string, limit int) ([]model.Issue, error)
	GetPullRequest(ctx context.Context, repo model.Repository, number int) (model.PullRequest, error)
	GetIssue(ctx context.Context, repo model.Repository, number int) (model.Issue, error)
	UpdateIssue(ctx context.Context, repo model.Repository, number int, update model.IssueUpdate) (model.Issue, error)
	AddComment(ctx context.Context, repo model.Repository, number int, body string) (model.Comment, error)
}

// Observer is notified of reconciliation outcomes.
type Observer interface {
	IssueReconciled(outcome string)
	ReportGenerated(repository string)
}

// Reconciliation outcomes reported to the Observer.
const (
	OutcomeClosed = "closed"
	OutcomeNoop   = "noop"
	OutcomeFailed = "failed"
	OutcomeDryRun = "dry_run"
)

// ProgressFunc is called after each issue of a batch completes.
type ProgressFunc func(result IssueSyncResult, completed, total int)

// Engine reconciles issue state with linked pull requests. It holds no
// state across calls other than the per-issue locks and the extraction memo.
type Engine struct {
	source     Source
	extractor  *linkref.Extractor
	fetchLimit int
	workers    int
	pacing     time.Duration
	dryRun     bool
	now        func() time.Time
	observer   Observer
	progress   ProgressFunc
	locks      *keyedMutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithFetchLimit bounds how many issues or PRs are read per snapshot.
func WithFetchLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.fetchLimit = n
		}
	}
}

// WithWorkers sets batch concurrency.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithPacing sets the minimum gap between reconciliations in a batch. Zero
// disables pacing.
func WithPacing(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.pacing = d
		}
	}
}

// WithDryRun computes transitions without writing them.
func WithDryRun(dryRun bool) Option {
	return func(e *Engine) { e.dryRun = dryRun }
}

// WithClock replaces time.Now for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithObserver registers an outcome observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithProgress registers a batch progress callback.
func WithProgress(f ProgressFunc) Option {
	return func(e *Engine) { e.progress = f }
}

// WithExtractor replaces the memoizing reference extractor.
func WithExtractor(x *linkref.Extractor) Option {
	return func(e *Engine) { e.extractor = x }
}

// New creates an Engine over source.
func New(source Source, opts ...Option) *Engine {
	e := &Engine{
		source:     source,
		fetchLimit: constants.DefaultFetchLimit,
		workers:    constants.DefaultWorkers,
		pacing:     constants.DefaultPacingInterval,
		now:        time.Now,
		locks:      newKeyedMutex(),
	}
	if x, err := linkref.NewExtractor(constants.ExtractionCacheSize); err == nil {
		e.extractor = x
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func parseRepo(repository string) (model.Repository, error) {
	repo, ok := model.ParseRepository(repository)
	if !ok {
		return model.Repository{}, fmt.Errorf("%w: %q", ErrInvalidRepository, repository)
	}
	return repo, nil
}

// withLinks fills LinkedIssueNumbers from each PR's title and body.
func (e *Engine) withLinks(prs []model.PullRequest) []model.PullRequest {
	for i := range prs {
		prs[i] = e.link(prs[i])
	}
	return prs
}

func (e *Engine) link(pr model.PullRequest) model.PullRequest {
	pr.LinkedIssueNumbers = e.extractor.ExtractAll(pr.Title, pr.Body).Sorted()
	return pr
}

// GetPullRequestsByRepository lists PRs and derives their linked issues.
func (e *Engine) GetPullRequestsByRepository(ctx context.Context, repository, state string, limit int) ([]model.PullRequest, error) {
	repo, err := parseRepo(repository)
	if err != nil {
		return nil, err
	}
	return e.listPRs(ctx, repo, state, limit)
}

func (e *Engine) listPRs(ctx context.Context, repo model.Repository, state string, limit int) ([]model.PullRequest, error) {
	prs, err := e.source.ListPullRequests(ctx, repo, state, limit)
	return e.withLinks(prs), err
}

// FindPullRequestsLinkedToIssue returns the PRs whose text references the
// issue.
func (e *Engine) FindPullRequestsLinkedToIssue(ctx context.Context, repository string, issueNumber int) ([]model.PullRequest, error) {
	repo, err := parseRepo(repository)
	if err != nil {
		return nil, err
	}
	prs, err := e.listPRs(ctx, repo, constants.StateAll, e.fetchLimit)
	return linkedTo(prs, issueNumber), err
}

func linkedTo(prs []model.PullRequest, issueNumber int) []model.PullRequest {
	related := []model.PullRequest{}
	for _, pr := range prs {
		if pr.LinksTo(issueNumber) {
			related = append(related, pr)
		}
	}
	return related
}

// FindIssuesLinkedToPullRequest returns the issues a PR references. Missing
// issues and issues that fail transiently are skipped; the PR itself must
// exist. Authorization and rate limit failures abort the lookup.
func (e *Engine) FindIssuesLinkedToPullRequest(ctx context.Context, repository string, prNumber int) ([]model.Issue, error) {
	repo, err := parseRepo(repository)
	if err != nil {
		return nil, err
	}
	pr, err := e.source.GetPullRequest(ctx, repo, prNumber)
	if err != nil {
		return nil, err
	}
	pr = e.link(pr)

	log := clog.FromContext(ctx).With("repository", repo.FullName(), "pr", prNumber)
	issues := []model.Issue{}
	for _, n := range pr.LinkedIssueNumbers {
		issue, err := e.source.GetIssue(ctx, repo, n)
		switch {
		case errors.Is(err, ghclient.ErrNotFound):
			log.Debug("skipping missing linked issue", "issue", n)
			continue
		case ghclient.IsTransient(err) && ctx.Err() == nil:
			log.Warn("skipping unreadable linked issue", "issue", n, "error", err)
			continue
		case err != nil:
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, nil
}
