package github

import (
	"context"
	"time"

	"github.com/google/go-github/v54/github"
	"go.uber.org/zap"
)

const (
	headerRateRemaining = "X-RateLimit-Remaining"

	// minRateLimitWait is the shortest pause taken once the quota is spent,
	// even when the reset time already passed
	minRateLimitWait = time.Second
)

// RateLimitGate pauses the caller until the API quota window resets whenever
// a response reports that no calls remain.
type RateLimitGate struct {
	logger *zap.SugaredLogger
	now    func() time.Time
	sleep  func(context.Context, time.Duration)
}

// NewRateLimitGate returns a RateLimitGate that sleeps on the wall clock
func NewRateLimitGate(logger *zap.SugaredLogger) *RateLimitGate {
	return &RateLimitGate{
		logger: logger,
		now:    time.Now,
		sleep:  sleepContext,
	}
}

// Check inspects the rate limit state of the most recent response and, when
// the remaining call count is zero, sleeps until one second past the reset
// time. It returns the remaining call count: 1 when the response carries no
// rate limit information and -1 when there is no response at all.
//
// The triggering call is not retried here.
func (g *RateLimitGate) Check(ctx context.Context, resp *github.Response) int {
	if resp == nil || resp.Response == nil {
		return -1
	}

	// go-github reports a zero rate when the headers are missing, which must
	// not be mistaken for an exhausted quota.
	reset := resp.Rate.Reset.Time
	if resp.Header.Get(headerRateRemaining) == "" && reset.IsZero() {
		return 1
	}

	remaining := resp.Rate.Remaining
	if remaining != 0 || reset.IsZero() {
		return remaining
	}

	wait := reset.Sub(g.now().Truncate(time.Second)) + time.Second
	if wait < minRateLimitWait {
		wait = minRateLimitWait
	}

	g.logger.Warnf("Rate limit exceeded. Sleeping for %s until %s", wait, reset.UTC().Format(time.RFC3339))
	g.sleep(ctx, wait)

	return remaining
}
