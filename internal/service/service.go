// Package service exposes the synchronization operations to callers such as
// the CLI, with stable result shapes.
package service

import (
	"context"

	"github.com/spiffcs/linksync/internal/constants"
	"github.com/spiffcs/linksync/internal/model"
	"github.com/spiffcs/linksync/internal/reconcile"
)

// Engine is the subset of *reconcile.Engine the service uses.
type Engine interface {
	GetPullRequestsByRepository(ctx context.Context, repository, state string, limit int) ([]model.PullRequest, error)
	FindPullRequestsLinkedToIssue(ctx context.Context, repository string, issueNumber int) ([]model.PullRequest, error)
	FindIssuesLinkedToPullRequest(ctx context.Context, repository string, prNumber int) ([]model.Issue, error)
	SynchronizeIssueWithPRs(ctx context.Context, repository string, issueNumber int) (reconcile.IssueSyncResult, error)
	SynchronizeAllIssuesWithPRs(ctx context.Context, repository string) (reconcile.BatchResult, error)
	GenerateSynchronizationReport(ctx context.Context, repository string) (model.SynchronizationReport, error)
}

var _ Engine = (*reconcile.Engine)(nil)

// SyncService is the outbound surface of linksync.
type SyncService struct {
	engine Engine
}

// New creates a SyncService over engine.
func New(engine Engine) *SyncService {
	return &SyncService{engine: engine}
}

// SyncIssueResult is the outcome of SynchronizeIssue.
type SyncIssueResult struct {
	Success bool                      `json:"success"`
	Detail  reconcile.IssueSyncResult `json:"-"`
}

// SyncAllResult is the outcome of SynchronizeAllIssues.
type SyncAllResult struct {
	SynchronizedCount int                   `json:"synchronizedCount"`
	Detail            reconcile.BatchResult `json:"-"`
}

// GenerateSynchronizationReport returns the issue/PR report of a repository.
func (s *SyncService) GenerateSynchronizationReport(ctx context.Context, repository string) (model.SynchronizationReport, error) {
	return s.engine.GenerateSynchronizationReport(ctx, repository)
}

// SynchronizeIssue reconciles one issue. The error is non-nil only when the
// issue cannot be read or the repository is invalid.
func (s *SyncService) SynchronizeIssue(ctx context.Context, repository string, issueNumber int) (SyncIssueResult, error) {
	res, err := s.engine.SynchronizeIssueWithPRs(ctx, repository, issueNumber)
	if err != nil {
		return SyncIssueResult{Detail: res}, err
	}
	return SyncIssueResult{Success: res.Success, Detail: res}, nil
}

// SynchronizeAllIssues reconciles every issue of a repository.
func (s *SyncService) SynchronizeAllIssues(ctx context.Context, repository string) (SyncAllResult, error) {
	batch, err := s.engine.SynchronizeAllIssuesWithPRs(ctx, repository)
	return SyncAllResult{SynchronizedCount: batch.SynchronizedCount, Detail: batch}, err
}

// GetPullRequests lists PRs with derived links. An empty state means "all"
// and a non-positive limit means the default of 100.
func (s *SyncService) GetPullRequests(ctx context.Context, repository, state string, limit int) ([]model.PullRequest, error) {
	if state == "" {
		state = constants.StateAll
	}
	if limit <= 0 {
		limit = constants.DefaultListLimit
	}
	return s.engine.GetPullRequestsByRepository(ctx, repository, state, limit)
}

// LinkedPullRequests returns the PRs referencing an issue.
func (s *SyncService) LinkedPullRequests(ctx context.Context, repository string, issueNumber int) ([]model.PullRequest, error) {
	return s.engine.FindPullRequestsLinkedToIssue(ctx, repository, issueNumber)
}

// LinkedIssues returns the issues a PR references.
func (s *SyncService) LinkedIssues(ctx context.Context, repository string, prNumber int) ([]model.Issue, error) {
	return s.engine.FindIssuesLinkedToPullRequest(ctx, repository, prNumber)
}
