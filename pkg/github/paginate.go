package github

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v54/github"
)

const (
	// maxAttempts is the number of tries a single page gets before
	// pagination of the endpoint is abandoned
	maxAttempts = 3

	// retryBackoff is the pause between two attempts at the same page
	retryBackoff = time.Second
)

// Result holds the items gathered from a paginated endpoint. When a page could
// not be fetched, Complete is false and Err holds the last failure; Items then
// contains everything fetched before the failing page.
type Result[T any] struct {
	Items    []T
	Complete bool
	Err      error
}

// fetchAll requests pages 1, 2, 3, ... of an endpoint until a page comes back
// empty, concatenating the items in page order. A page that fails maxAttempts
// times in a row ends pagination with a partial Result.
func fetchAll[T any](ctx context.Context, s *GithubClient, endpoint string, list func(context.Context, github.ListOptions) ([]T, *github.Response, error)) Result[T] {
	var result Result[T]

	for page := 1; ; page++ {
		s.logger.Debugf("Fetching page %d of %s", page, endpoint)

		items, err := fetchPage(ctx, s, endpoint, page, list)
		if err != nil {
			s.logger.Warnf("Stopped paginating %s, keeping %d items: %v", endpoint, len(result.Items), err)
			result.Err = err
			return result
		}

		if len(items) == 0 {
			result.Complete = true
			return result
		}

		result.Items = append(result.Items, items...)
	}
}

func fetchPage[T any](ctx context.Context, s *GithubClient, endpoint string, page int, list func(context.Context, github.ListOptions) ([]T, *github.Response, error)) ([]T, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		items, resp, err := list(ctx, github.ListOptions{Page: page, PerPage: s.perPage})
		s.gate.Check(ctx, resp)
		if err == nil {
			return items, nil
		}

		lastErr = err
		s.logger.Warnf("Failed to fetch %s page %d (attempt %d of %d): %v", endpoint, page, attempt, maxAttempts, err)
		s.sleep(ctx, s.backoff)
	}

	return nil, fmt.Errorf("could not fetch %s page %d after %d attempts: %w", endpoint, page, maxAttempts, lastErr)
}
