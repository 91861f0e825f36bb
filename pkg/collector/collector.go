// package collector drives a collection run: it gathers the events of every
// configured repository, removes commits mirrored from the canonical
// repository and hands the sorted dataset to the configured sinks.
package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/open-sauced/pizza/activity/pkg/common"
	"github.com/open-sauced/pizza/activity/pkg/config"
	"github.com/open-sauced/pizza/activity/pkg/github"
	"github.com/open-sauced/pizza/activity/pkg/insights"
)

// ErrTruncated is returned by strict runs when an endpoint could not be
// paginated to the end
var ErrTruncated = errors.New("activity is incomplete")

// EventSource provides the events of a single repository per activity kind
type EventSource interface {
	Commits(ctx context.Context, repo string) github.Result[insights.Event]
	PullRequests(ctx context.Context, repo string) github.Result[insights.Event]
	Issues(ctx context.Context, repo string) github.Result[insights.Event]
	IssueComments(ctx context.Context, repo string) github.Result[insights.Event]
	ReviewComments(ctx context.Context, repo string) github.Result[insights.Event]
	NameStats() github.NameStats
}

// Sink persists a finalized dataset
type Sink interface {
	Write(ctx context.Context, dataset *insights.Dataset) error
}

// RemoteCheck reports whether a git remote URL is reachable
type RemoteCheck func(repoURL string) (bool, error)

// Truncation records an endpoint whose pagination was abandoned
type Truncation struct {
	Repository string
	Endpoint   string
	Items      int
	Err        error
}

// Report summarizes a collection run
type Report struct {
	Dataset    *insights.Dataset
	Truncated  []Truncation
	Names      github.NameStats
	StartedAt  time.Time
	FinishedAt time.Time
}

// Collector runs the activity collection for a configured list of repositories
type Collector struct {
	source       EventSource
	logger       *zap.SugaredLogger
	repositories []string
	canonical    string
	strict       bool
	sinks        []Sink
	remoteCheck  RemoteCheck

	now   func() time.Time
	runID func() uuid.UUID
}

// NewCollector returns a Collector reading from source and writing to sinks.
// The configuration is expected to be normalized.
func NewCollector(source EventSource, cfg *config.Config, logger *zap.SugaredLogger, sinks ...Sink) *Collector {
	return &Collector{
		source:       source,
		logger:       logger,
		repositories: cfg.Repositories,
		canonical:    cfg.Canonical,
		strict:       cfg.Strict,
		sinks:        sinks,
		now:          time.Now,
		runID:        uuid.New,
	}
}

// WithRemoteCheck makes Run verify every repository is reachable before any
// activity is fetched
func (c *Collector) WithRemoteCheck(check RemoteCheck) *Collector {
	c.remoteCheck = check
	return c
}

// Run collects the activity of every repository, finalizes the dataset and
// writes it to every sink. The report is returned even when writing fails.
func (c *Collector) Run(ctx context.Context) (*Report, error) {
	report, err := c.Collect(ctx)
	if err != nil {
		return report, err
	}

	if c.strict && len(report.Truncated) > 0 {
		return report, fmt.Errorf("%w: %d endpoints were truncated", ErrTruncated, len(report.Truncated))
	}

	for _, sink := range c.sinks {
		if err := sink.Write(ctx, report.Dataset); err != nil {
			return report, fmt.Errorf("could not write activity dataset: %w", err)
		}
	}

	c.logger.Infof("Wrote %d events for run %s", len(report.Dataset.Events), report.Dataset.RunID)
	return report, nil
}

// Collect gathers and finalizes the dataset without writing it anywhere
func (c *Collector) Collect(ctx context.Context) (*Report, error) {
	report := &Report{StartedAt: c.now()}

	if err := c.verifyRemotes(); err != nil {
		return report, err
	}

	// Fetch the canonical commits first, mirrors are filtered against them
	c.logger.Infof("Fetching commits for canonical repository: %s", c.canonical)
	canonicalCommits := c.take(report, c.canonical, "commits", c.source.Commits(ctx, c.canonical))

	var events []insights.Event
	for _, repo := range c.repositories {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		c.logger.Infof("Fetching data for repository: %s", repo)

		if repo == c.canonical {
			events = append(events, canonicalCommits...)
		} else {
			commits := c.take(report, repo, "commits", c.source.Commits(ctx, repo))
			filtered := insights.FilterDuplicateCommits(canonicalCommits, commits)
			c.logger.Debugf("Dropped %d commits of %s already in %s", len(commits)-len(filtered), repo, c.canonical)
			events = append(events, filtered...)
		}

		events = append(events, c.take(report, repo, "pulls", c.source.PullRequests(ctx, repo))...)
		events = append(events, c.take(report, repo, "issues", c.source.Issues(ctx, repo))...)
		events = append(events, c.take(report, repo, "issue comments", c.source.IssueComments(ctx, repo))...)
		events = append(events, c.take(report, repo, "review comments", c.source.ReviewComments(ctx, repo))...)
	}

	report.FinishedAt = c.now()
	report.Names = c.source.NameStats()
	report.Dataset = &insights.Dataset{
		RunID:     c.runID(),
		CreatedAt: report.FinishedAt,
		Events:    insights.Finalize(events),
		Complete:  len(report.Truncated) == 0,
	}

	c.logger.Infof("Collected %d events from %d repositories (%d profile lookups, %d cache hits)",
		len(report.Dataset.Events), len(c.repositories), report.Names.Lookups, report.Names.Hits)

	return report, nil
}

// take returns the events of a result, recording it when truncated
func (c *Collector) take(report *Report, repo, endpoint string, result github.Result[insights.Event]) []insights.Event {
	if !result.Complete {
		c.logger.Warnf("Activity of %s %s is incomplete, keeping %d events: %v", repo, endpoint, len(result.Items), result.Err)
		report.Truncated = append(report.Truncated, Truncation{
			Repository: repo,
			Endpoint:   endpoint,
			Items:      len(result.Items),
			Err:        result.Err,
		})
	}

	return result.Items
}

func (c *Collector) verifyRemotes() error {
	if c.remoteCheck == nil {
		return nil
	}

	for _, repo := range c.repositories {
		repoURL := common.RepoGitURL(repo)
		c.logger.Debugf("Verifying remote: %s", repoURL)

		ok, err := c.remoteCheck(repoURL)
		if err != nil {
			return fmt.Errorf("could not verify repository %s: %w", repo, err)
		}
		if !ok {
			return fmt.Errorf("repository %s is not reachable", repo)
		}
	}

	return nil
}
