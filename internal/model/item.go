// Package model contains domain types for linksync.
// These types are independent of any external GitHub library.
package model

import (
	"slices"
	"strings"
	"time"
)

// Repository is an "owner/name" pair identifying a remote repository.
type Repository struct {
	Owner string
	Name  string
}

// ParseRepository splits "owner/name". It reports false when the input does
// not have exactly two non-empty segments.
func ParseRepository(s string) (Repository, bool) {
	owner, name, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repository{}, false
	}
	return Repository{Owner: owner, Name: name}, true
}

// FullName returns "owner/name".
func (r Repository) FullName() string {
	return r.Owner + "/" + r.Name
}

func (r Repository) String() string {
	return r.FullName()
}

// Issue is a remote issue. Identity is (Repository, Number).
type Issue struct {
	Repository string    `json:"repository"`
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	Body       string    `json:"body,omitempty"`
	State      string    `json:"state"`
	Author     string    `json:"author"`
	Labels     []string  `json:"labels,omitempty"`
	Assignees  []string  `json:"assignees,omitempty"`
	HTMLURL    string    `json:"htmlUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// IsClosed reports whether the issue state is closed.
func (i Issue) IsClosed() bool {
	return strings.EqualFold(i.State, "closed")
}

// PullRequest is a remote pull request.
//
// LinkedIssueNumbers is derived from Title and Body on every read and is
// never set independently of that text.
type PullRequest struct {
	Repository         string     `json:"repository"`
	Number             int        `json:"number"`
	Title              string     `json:"title"`
	Body               string     `json:"body,omitempty"`
	State              string     `json:"state"`
	Merged             bool       `json:"merged"`
	Author             string     `json:"author"`
	HeadRef            string     `json:"headRef"`
	BaseRef            string     `json:"baseRef"`
	HTMLURL            string     `json:"htmlUrl,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
	MergedAt           *time.Time `json:"mergedAt,omitempty"`
	ClosedAt           *time.Time `json:"closedAt,omitempty"`
	LinkedIssueNumbers []int      `json:"linkedIssueNumbers"`
}

// LinksTo reports whether the PR references the given issue number.
func (p PullRequest) LinksTo(issueNumber int) bool {
	return slices.Contains(p.LinkedIssueNumbers, issueNumber)
}

// IsOpen reports whether the PR is still open.
func (p PullRequest) IsOpen() bool {
	return strings.EqualFold(p.State, "open")
}

// DisplayState returns "merged" for merged PRs and the raw state otherwise.
func (p PullRequest) DisplayState() string {
	if p.Merged {
		return "merged"
	}
	return strings.ToLower(p.State)
}

// Comment is a comment posted on an issue or PR.
type Comment struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	Author    string    `json:"author"`
	HTMLURL   string    `json:"htmlUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// IssueUpdate describes a partial issue edit. Nil fields are left unchanged.
type IssueUpdate struct {
	State     *string
	Title     *string
	Body      *string
	Labels    *[]string
	Assignees *[]string
}

// IsEmpty reports whether the update would change nothing.
func (u IssueUpdate) IsEmpty() bool {
	return u.State == nil && u.Title == nil && u.Body == nil && u.Labels == nil && u.Assignees == nil
}
