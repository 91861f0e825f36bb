package github

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v54/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// DefaultPerPage is the page size requested when none is configured
const DefaultPerPage = 100

// GithubClient collects repository activity from the GitHub REST API. All
// calls are made one at a time; a GithubClient is meant to serve a single
// collection run since it owns the display-name cache of that run.
type GithubClient struct {
	client  *github.Client
	logger  *zap.SugaredLogger
	gate    *RateLimitGate
	names   *NameResolver
	perPage int
	state   string
	backoff time.Duration
	sleep   func(context.Context, time.Duration)
}

// Option configures a GithubClient
type Option func(*GithubClient)

// WithPerPage sets the page size of every list request
func WithPerPage(perPage int) Option {
	return func(c *GithubClient) {
		if perPage > 0 {
			c.perPage = perPage
		}
	}
}

// WithState filters listed issues and pull requests by state
func WithState(state string) Option {
	return func(c *GithubClient) {
		c.state = state
	}
}

// WithBaseURL points the client at another API root, like a GitHub
// Enterprise instance or a test server
func WithBaseURL(baseURL *url.URL) Option {
	return func(c *GithubClient) {
		u := *baseURL
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		c.client.BaseURL = &u
	}
}

// WithClock replaces the wall clock and the sleeping function used for rate
// limit waits and retry backoff
func WithClock(now func() time.Time, sleep func(context.Context, time.Duration)) Option {
	return func(c *GithubClient) {
		c.gate.now = now
		c.gate.sleep = sleep
		c.sleep = sleep
	}
}

// NewTokenClient returns a GithubClient that authenticates every request
// with the provided token
func NewTokenClient(ctx context.Context, token string, logger *zap.SugaredLogger, opts ...Option) *GithubClient {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return NewClient(oauth2.NewClient(ctx, ts), logger, opts...)
}

// NewClient returns a GithubClient using the provided http client for
// transport. A nil http client results in unauthenticated requests.
func NewClient(httpClient *http.Client, logger *zap.SugaredLogger, opts ...Option) *GithubClient {
	gate := NewRateLimitGate(logger)

	s := &GithubClient{
		client:  github.NewClient(httpClient),
		logger:  logger,
		gate:    gate,
		perPage: DefaultPerPage,
		backoff: retryBackoff,
		sleep:   sleepContext,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.names = NewNameResolver(s.client.Users.Get, s.gate, logger)
	return s
}

// NameStats reports how the display-name cache was used so far
func (s *GithubClient) NameStats() NameStats {
	return s.names.Stats()
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
