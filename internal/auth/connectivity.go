package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v57/github"
	"github.com/spiffcs/linksync/internal/constants"
	"golang.org/x/oauth2"
)

// ConnectivityResult describes what a token can reach.
type ConnectivityResult struct {
	Success        bool      `json:"success"`
	Strategy       string    `json:"strategy"`
	InstallationID int64     `json:"installationId,omitempty"`
	Repositories   []string  `json:"repositories,omitempty"`
	Scopes         []string  `json:"scopes,omitempty"`
	TokenExpiresAt time.Time `json:"tokenExpiresAt,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// TestConnectivity acquires a token and lists the repositories it can
// access. Failures are reported in the result rather than returned, except
// for a cancelled context.
func (p *Provider) TestConnectivity(ctx context.Context) (ConnectivityResult, error) {
	res := ConnectivityResult{Strategy: p.Strategy().String()}

	tok, err := p.Token(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Error = err.Error()
		return res, nil
	}
	res.Scopes = tok.Scopes
	res.TokenExpiresAt = tok.ExpiresAt

	p.mu.Lock()
	res.InstallationID = p.installationID
	p.mu.Unlock()
	if p.creds.InstallationID > 0 {
		res.InstallationID = p.creds.InstallationID
	}

	client := gh.NewClient(&http.Client{
		Transport: &oauth2.Transport{Source: oauth2.StaticTokenSource(tok.OAuth2()), Base: p.base},
		Timeout:   p.timeout,
	})
	client.BaseURL = p.baseURL
	client.UserAgent = constants.UserAgent

	opts := &gh.ListOptions{PerPage: constants.MaxPageSize}
	for {
		page, resp, err := client.Apps.ListRepos(ctx, opts)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Error = fmt.Sprintf("list accessible repositories: %v", err)
			return res, nil
		}
		for _, r := range page.Repositories {
			res.Repositories = append(res.Repositories, r.GetFullName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	res.Success = true
	return res, nil
}
