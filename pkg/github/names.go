package github

import (
	"context"

	"github.com/google/go-github/v54/github"
	"go.uber.org/zap"
)

// userFunc fetches a single user profile
type userFunc func(ctx context.Context, login string) (*github.User, *github.Response, error)

// NameStats describes the use of the display-name cache
type NameStats struct {
	// Lookups is the number of profile requests made
	Lookups int

	// Hits is the number of resolutions answered from the cache
	Hits int

	// Unresolved is the number of logins cached with an empty name
	Unresolved int
}

// NameResolver maps a login to the display name of its profile. Every login
// is looked up at most once; failed lookups are remembered as an empty name
// so callers can apply their own fallback.
type NameResolver struct {
	getUser userFunc
	gate    *RateLimitGate
	logger  *zap.SugaredLogger

	cache map[string]string
	stats NameStats
}

// NewNameResolver returns a NameResolver with an empty cache
func NewNameResolver(getUser userFunc, gate *RateLimitGate, logger *zap.SugaredLogger) *NameResolver {
	return &NameResolver{
		getUser: getUser,
		gate:    gate,
		logger:  logger,
		cache:   make(map[string]string),
	}
}

// Resolve returns the display name of login, or an empty string when the
// profile has no name or could not be fetched
func (r *NameResolver) Resolve(ctx context.Context, login string) string {
	if name, ok := r.cache[login]; ok {
		r.stats.Hits++
		return name
	}

	r.logger.Debugf("Fetching display name for %s", login)
	r.stats.Lookups++

	user, resp, err := r.getUser(ctx, login)
	r.gate.Check(ctx, resp)
	if err != nil {
		r.logger.Warnf("Failed to fetch user profile for %s: %v", login, err)
		r.cache[login] = ""
		r.stats.Unresolved++
		return ""
	}

	name := user.GetName()
	r.cache[login] = name
	if name == "" {
		r.stats.Unresolved++
	}

	return name
}

// Stats returns the cache usage so far
func (r *NameResolver) Stats() NameStats {
	return r.stats
}
