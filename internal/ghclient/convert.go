package ghclient

import (
	"time"

	gh "github.com/google/go-github/v57/github"
	"github.com/spiffcs/linksync/internal/model"
)

// pullRequestFromGitHub converts a REST pull request. List responses omit
// the merged flag, so a non-null merged_at also counts as merged.
// LinkedIssueNumbers is left empty; it is derived by the caller.
func pullRequestFromGitHub(repo model.Repository, pr *gh.PullRequest) model.PullRequest {
	return model.PullRequest{
		Repository:         repo.FullName(),
		Number:             pr.GetNumber(),
		Title:              pr.GetTitle(),
		Body:               pr.GetBody(),
		State:              pr.GetState(),
		Merged:             pr.GetMerged() || pr.MergedAt != nil,
		Author:             pr.GetUser().GetLogin(),
		HeadRef:            pr.GetHead().GetRef(),
		BaseRef:            pr.GetBase().GetRef(),
		HTMLURL:            pr.GetHTMLURL(),
		CreatedAt:          pr.GetCreatedAt().Time,
		UpdatedAt:          pr.GetUpdatedAt().Time,
		MergedAt:           timePtr(pr.MergedAt),
		ClosedAt:           timePtr(pr.ClosedAt),
		LinkedIssueNumbers: []int{},
	}
}

func issueFromGitHub(repo model.Repository, issue *gh.Issue) model.Issue {
	var labels []string
	for _, label := range issue.Labels {
		labels = append(labels, label.GetName())
	}

	var assignees []string
	for _, assignee := range issue.Assignees {
		assignees = append(assignees, assignee.GetLogin())
	}

	return model.Issue{
		Repository: repo.FullName(),
		Number:     issue.GetNumber(),
		Title:      issue.GetTitle(),
		Body:       issue.GetBody(),
		State:      issue.GetState(),
		Author:     issue.GetUser().GetLogin(),
		Labels:     labels,
		Assignees:  assignees,
		HTMLURL:    issue.GetHTMLURL(),
		CreatedAt:  issue.GetCreatedAt().Time,
		UpdatedAt:  issue.GetUpdatedAt().Time,
	}
}

func commentFromGitHub(c *gh.IssueComment) model.Comment {
	return model.Comment{
		ID:        c.GetID(),
		Body:      c.GetBody(),
		Author:    c.GetUser().GetLogin(),
		HTMLURL:   c.GetHTMLURL(),
		CreatedAt: c.GetCreatedAt().Time,
	}
}

func timePtr(ts *gh.Timestamp) *time.Time {
	if ts == nil {
		return nil
	}
	t := ts.Time
	return &t
}
