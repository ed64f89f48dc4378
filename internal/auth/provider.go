package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/chainguard-dev/clog"
	gh "github.com/google/go-github/v57/github"
	"github.com/spiffcs/linksync/internal/constants"
)

// Observer is notified of every token acquisition so callers can count them.
type Observer interface {
	TokenAcquired(strategy string, cached bool, err error)
}

// Provider issues access tokens and caches them until shortly before they
// expire. It is safe for concurrent use; refreshes are serialized so callers
// never observe a half-written token.
type Provider struct {
	creds    Credentials
	baseURL  *url.URL
	base     http.RoundTripper
	timeout  time.Duration
	margin   time.Duration
	now      func() time.Time
	observer Observer

	mu             sync.Mutex
	cached         *AccessToken
	installationID int64
}

// Option configures a Provider.
type Option func(*Provider)

// WithBaseURL points the provider at a different API root.
func WithBaseURL(u string) Option {
	return func(p *Provider) {
		if parsed, err := parseBaseURL(u); err == nil {
			p.baseURL = parsed
		}
	}
}

// WithTransport sets the round tripper used for outbound calls.
func WithTransport(rt http.RoundTripper) Option {
	return func(p *Provider) {
		if rt != nil {
			p.base = rt
		}
	}
}

// WithTimeout bounds every outbound call.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// WithObserver registers an acquisition observer.
func WithObserver(o Observer) Option {
	return func(p *Provider) {
		p.observer = o
	}
}

// NewProvider creates a Provider. Credentials are not checked until the first
// token is requested.
func NewProvider(creds Credentials, opts ...Option) *Provider {
	u, _ := parseBaseURL(constants.DefaultAPIURL)
	p := &Provider{
		creds:   creds,
		baseURL: u,
		base:    http.DefaultTransport,
		timeout: constants.DefaultRequestTimeout,
		margin:  constants.TokenRefreshMargin,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func parseBaseURL(raw string) (*url.URL, error) {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API URL %q", raw)
	}
	return u, nil
}

// Strategy reports which acquisition strategy the provider will use.
func (p *Provider) Strategy() Strategy {
	return p.creds.Strategy()
}

// Token returns a valid access token, reusing the cached one while it has
// more than the refresh margin left.
func (p *Provider) Token(ctx context.Context) (AccessToken, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	strategy := p.creds.Strategy()
	if p.cached != nil && p.cached.ValidAt(p.now(), p.margin) {
		clog.DebugContext(ctx, "using cached access token", "expires_at", p.cached.ExpiresAt)
		p.observe(strategy, true, nil)
		return *p.cached, nil
	}

	var (
		tok AccessToken
		err error
	)
	switch strategy {
	case StrategyAmbient:
		tok = p.ambientToken()
	default:
		tok, err = p.installationToken(ctx)
	}
	p.observe(strategy, false, err)
	if err != nil {
		return AccessToken{}, err
	}

	clog.InfoContext(ctx, "acquired access token", "strategy", strategy.String(), "expires_at", tok.ExpiresAt)
	p.cached = &tok
	return tok, nil
}

// Invalidate drops the cached token if it still holds rejected, so that the
// next Token call acquires a fresh one. An empty rejected value drops the
// cache unconditionally.
func (p *Provider) Invalidate(rejected string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached == nil {
		return
	}
	if rejected == "" || p.cached.value == rejected {
		p.cached = nil
	}
}

func (p *Provider) observe(strategy Strategy, cached bool, err error) {
	if p.observer != nil {
		p.observer.TokenAcquired(strategy.String(), cached, err)
	}
}

func (p *Provider) ambientToken() AccessToken {
	return AccessToken{
		value:     p.creds.AmbientToken,
		ExpiresAt: p.now().Add(constants.AmbientTokenLifetime),
		Scopes:    []string{constants.AmbientScope},
	}
}

// appClient returns a client that authenticates as the app itself with a
// freshly signed assertion on every request.
func (p *Provider) appClient() (*gh.Client, error) {
	if err := p.creds.validateApp(); err != nil {
		return nil, err
	}
	tr, err := ghinstallation.NewAppsTransport(p.base, p.creds.AppID, normalizeKey(p.creds.PrivateKey))
	if err != nil {
		return nil, &CredentialError{Input: EnvPrivateKey, Reason: ReasonInvalidKey, Err: err}
	}
	tr.BaseURL = strings.TrimSuffix(p.baseURL.String(), "/")

	client := gh.NewClient(&http.Client{Transport: tr, Timeout: p.timeout})
	client.BaseURL = p.baseURL
	client.UserAgent = constants.UserAgent
	return client, nil
}

func (p *Provider) installationToken(ctx context.Context) (AccessToken, error) {
	client, err := p.appClient()
	if err != nil {
		return AccessToken{}, err
	}

	id, err := p.resolveInstallation(ctx, client)
	if err != nil {
		return AccessToken{}, err
	}

	clog.DebugContext(ctx, "exchanging app assertion for installation token", "installation_id", id)
	it, _, err := client.Apps.CreateInstallationToken(ctx, id, nil)
	if err != nil {
		if status := statusOf(err); status == http.StatusNotFound {
			return AccessToken{}, &CredentialError{
				Input:  EnvInstallationID,
				Reason: ReasonUnknownInstallation,
				Detail: strconv.FormatInt(id, 10),
				Err:    err,
			}
		} else if status == http.StatusUnauthorized {
			return AccessToken{}, &CredentialError{Input: EnvAppID, Reason: ReasonRejected, Err: err}
		}
		return AccessToken{}, fmt.Errorf("exchange installation token: %w", err)
	}
	if it.GetToken() == "" {
		return AccessToken{}, errors.New("exchange installation token: empty token in response")
	}

	return AccessToken{
		value:     it.GetToken(),
		ExpiresAt: it.GetExpiresAt().Time,
		Scopes:    scopesFromPermissions(it.GetPermissions()),
	}, nil
}

// resolveInstallation returns the configured installation, or discovers it
// once per process. Zero or ambiguous candidates are fatal.
func (p *Provider) resolveInstallation(ctx context.Context, client *gh.Client) (int64, error) {
	if p.creds.InstallationID > 0 {
		return p.creds.InstallationID, nil
	}
	if p.installationID > 0 {
		return p.installationID, nil
	}

	var all []*gh.Installation
	opts := &gh.ListOptions{PerPage: constants.MaxPageSize}
	for {
		page, resp, err := client.Apps.ListInstallations(ctx, opts)
		if err != nil {
			if statusOf(err) == http.StatusUnauthorized {
				return 0, &CredentialError{Input: EnvAppID, Reason: ReasonRejected, Err: err}
			}
			return 0, fmt.Errorf("list installations: %w", err)
		}
		all = append(all, page...)
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	id, err := selectInstallation(all, p.creds.InstallationOwner)
	if err != nil {
		return 0, err
	}
	clog.InfoContext(ctx, "resolved installation", "installation_id", id)
	p.installationID = id
	return id, nil
}

func selectInstallation(all []*gh.Installation, owner string) (int64, error) {
	if owner != "" {
		var matches []*gh.Installation
		for _, inst := range all {
			if strings.EqualFold(inst.GetAccount().GetLogin(), owner) {
				matches = append(matches, inst)
			}
		}
		switch len(matches) {
		case 0:
			return 0, &CredentialError{
				Input:  EnvInstallationOwner,
				Reason: ReasonNoInstallation,
				Detail: "no installation for account " + owner,
			}
		case 1:
			return matches[0].GetID(), nil
		default:
			return 0, &CredentialError{
				Input:  EnvInstallationID,
				Reason: ReasonAmbiguous,
				Detail: fmt.Sprintf("%d installations for account %s", len(matches), owner),
			}
		}
	}

	switch len(all) {
	case 0:
		return 0, &CredentialError{Input: EnvInstallationID, Reason: ReasonNoInstallation, Detail: "the app has no installations"}
	case 1:
		return all[0].GetID(), nil
	default:
		return 0, &CredentialError{
			Input:  EnvInstallationID,
			Reason: ReasonAmbiguous,
			Detail: fmt.Sprintf("%d installations found, set %s or %s", len(all), EnvInstallationID, EnvInstallationOwner),
		}
	}
}

// scopesFromPermissions flattens the granted permission set into sorted
// "name:level" entries.
func scopesFromPermissions(perms *gh.InstallationPermissions) []string {
	if perms == nil {
		return nil
	}
	raw, err := json.Marshal(perms)
	if err != nil {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	scopes := make([]string, 0, len(m))
	for name, level := range m {
		scopes = append(scopes, name+":"+level)
	}
	sort.Strings(scopes)
	return scopes
}

func statusOf(err error) int {
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode
	}
	return 0
}
