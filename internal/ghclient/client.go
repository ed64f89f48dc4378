package ghclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/chainguard-dev/clog"
	gh "github.com/google/go-github/v57/github"
	"github.com/spiffcs/linksync/internal/constants"
	"github.com/spiffcs/linksync/internal/model"
)

// Client wraps the GitHub REST API for issues and pull requests.
type Client struct {
	client *gh.Client
	limits *RateLimitState
}

type options struct {
	baseURL    string
	transport  http.RoundTripper
	timeout    time.Duration
	maxRetries int
	newBackOff func() backoff.BackOff
	observer   RequestObserver
	now        func() time.Time
}

// Option configures a Client.
type Option func(*options)

// WithBaseURL points the client at a different API root.
func WithBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// WithTransport sets the innermost round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithTimeout bounds every call, retries included.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n int) Option {
	return func(o *options) { o.maxRetries = n }
}

// WithBackOff replaces the retry backoff policy.
func WithBackOff(f func() backoff.BackOff) Option {
	return func(o *options) { o.newBackOff = f }
}

// WithObserver registers a request observer.
func WithObserver(obs RequestObserver) Option {
	return func(o *options) { o.observer = obs }
}

// WithClock replaces time.Now for rate limit bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewClient creates a client that authenticates every request with a token
// from tokens.
func NewClient(tokens TokenSource, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}
	o := options{
		baseURL:    constants.DefaultAPIURL,
		transport:  http.DefaultTransport,
		timeout:    constants.DefaultRequestTimeout,
		maxRetries: constants.DefaultMaxRetries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.newBackOff == nil {
		timeout := o.timeout
		o.newBackOff = func() backoff.BackOff { return newRetryBackOff(timeout) }
	}

	limits := NewRateLimitState(o.now)
	var rt http.RoundTripper = &retryTransport{
		base:       o.transport,
		maxRetries: o.maxRetries,
		newBackOff: o.newBackOff,
	}
	rt = &authTransport{base: rt, tokens: tokens}
	rt = &rateLimitTransport{base: rt, state: limits, observer: o.observer}

	client := gh.NewClient(&http.Client{Transport: rt, Timeout: o.timeout})
	if o.baseURL != "" && o.baseURL != constants.DefaultAPIURL {
		base := o.baseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid API URL %q", o.baseURL)
		}
		client.BaseURL = u
	}
	client.UserAgent = constants.UserAgent

	return &Client{client: client, limits: limits}, nil
}

// RateLimitStatus returns the rate limit state observed so far.
func (c *Client) RateLimitStatus() RateLimitStatus {
	return c.limits.Status()
}

// RateLimits fetches the current GitHub API rate limit status.
func (c *Client) RateLimits(ctx context.Context) (*gh.RateLimits, error) {
	limits, _, err := c.client.RateLimit.Get(ctx)
	if err != nil {
		return nil, classify("get rate limits", err)
	}
	return limits, nil
}

func pageSize(limit int) int {
	if limit <= 0 || limit > constants.MaxPageSize {
		return constants.MaxPageSize
	}
	return limit
}

func normalizeState(state string) string {
	switch strings.ToLower(state) {
	case constants.StateOpen, constants.StateClosed:
		return strings.ToLower(state)
	default:
		return constants.StateAll
	}
}

// ListPullRequests returns up to limit PRs in the given state, most recently
// updated first. On failure it returns an empty slice and an error wrapping
// ErrDataUnavailable.
func (c *Client) ListPullRequests(ctx context.Context, repo model.Repository, state string, limit int) ([]model.PullRequest, error) {
	if limit <= 0 {
		limit = constants.DefaultListLimit
	}
	opts := &gh.PullRequestListOptions{
		State:       normalizeState(state),
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: pageSize(limit)},
	}

	prs := []model.PullRequest{}
	for len(prs) < limit {
		page, resp, err := c.client.PullRequests.List(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			clog.FromContext(ctx).With("repository", repo.FullName()).Warn("pull request list unavailable", "error", err)
			return []model.PullRequest{}, fmt.Errorf("%w: %w", ErrDataUnavailable, classify("list pull requests", err))
		}
		for _, pr := range page {
			if len(prs) == limit {
				break
			}
			prs = append(prs, pullRequestFromGitHub(repo, pr))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return prs, nil
}

// ListIssues returns up to limit issues in the given state, excluding pull
// requests. On failure it returns an empty slice and an error wrapping
// ErrDataUnavailable.
func (c *Client) ListIssues(ctx context.Context, repo model.Repository, state string, limit int) ([]model.Issue, error) {
	if limit <= 0 {
		limit = constants.DefaultFetchLimit
	}
	opts := &gh.IssueListByRepoOptions{
		State:       normalizeState(state),
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: gh.ListOptions{PerPage: pageSize(limit)},
	}

	issues := []model.Issue{}
	for len(issues) < limit {
		page, resp, err := c.client.Issues.ListByRepo(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			clog.FromContext(ctx).With("repository", repo.FullName()).Warn("issue list unavailable", "error", err)
			return []model.Issue{}, fmt.Errorf("%w: %w", ErrDataUnavailable, classify("list issues", err))
		}
		for _, issue := range page {
			if issue.IsPullRequest() {
				continue
			}
			if len(issues) == limit {
				break
			}
			issues = append(issues, issueFromGitHub(repo, issue))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return issues, nil
}

// GetPullRequest fetches one PR. A missing PR yields ErrNotFound.
func (c *Client) GetPullRequest(ctx context.Context, repo model.Repository, number int) (model.PullRequest, error) {
	pr, _, err := c.client.PullRequests.Get(ctx, repo.Owner, repo.Name, number)
	if err != nil {
		return model.PullRequest{}, classify(fmt.Sprintf("get pull request #%d", number), err)
	}
	return pullRequestFromGitHub(repo, pr), nil
}

// GetIssue fetches one issue. A missing issue, or a number that belongs to
// a pull request, yields ErrNotFound.
func (c *Client) GetIssue(ctx context.Context, repo model.Repository, number int) (model.Issue, error) {
	issue, _, err := c.client.Issues.Get(ctx, repo.Owner, repo.Name, number)
	if err != nil {
		return model.Issue{}, classify(fmt.Sprintf("get issue #%d", number), err)
	}
	if issue.IsPullRequest() {
		return model.Issue{}, fmt.Errorf("get issue #%d: %w: number refers to a pull request", number, ErrNotFound)
	}
	return issueFromGitHub(repo, issue), nil
}

// UpdateIssue applies a partial edit and returns the updated issue.
func (c *Client) UpdateIssue(ctx context.Context, repo model.Repository, number int, update model.IssueUpdate) (model.Issue, error) {
	if update.IsEmpty() {
		return c.GetIssue(ctx, repo, number)
	}
	req := &gh.IssueRequest{
		State:     update.State,
		Title:     update.Title,
		Body:      update.Body,
		Labels:    update.Labels,
		Assignees: update.Assignees,
	}
	if update.State != nil && *update.State == constants.StateClosed {
		req.StateReason = gh.String("completed")
	}
	issue, _, err := c.client.Issues.Edit(ctx, repo.Owner, repo.Name, number, req)
	if err != nil {
		return model.Issue{}, classify(fmt.Sprintf("update issue #%d", number), err)
	}
	return issueFromGitHub(repo, issue), nil
}

// AddComment posts a comment on an issue or PR.
func (c *Client) AddComment(ctx context.Context, repo model.Repository, number int, body string) (model.Comment, error) {
	comment, _, err := c.client.Issues.CreateComment(ctx, repo.Owner, repo.Name, number, &gh.IssueComment{Body: gh.String(body)})
	if err != nil {
		return model.Comment{}, classify(fmt.Sprintf("comment on #%d", number), err)
	}
	return commentFromGitHub(comment), nil
}
