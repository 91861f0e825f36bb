package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v54/github"

	"github.com/open-sauced/pizza/activity/pkg/common"
	"github.com/open-sauced/pizza/activity/pkg/insights"
)

// Commits returns one commit event per commit of the repository's default
// branch. Events keep their sha so mirrored commits can be filtered later.
func (s *GithubClient) Commits(ctx context.Context, repo string) Result[insights.Event] {
	owner, name, err := common.SplitRepo(repo)
	if err != nil {
		return Result[insights.Event]{Err: err}
	}

	raw := fetchAll(ctx, s, fmt.Sprintf("repos/%s/commits", repo), func(ctx context.Context, opts github.ListOptions) ([]*github.RepositoryCommit, *github.Response, error) {
		return s.client.Repositories.ListCommits(ctx, owner, name, &github.CommitsListOptions{ListOptions: opts})
	})

	events := make([]insights.Event, 0, len(raw.Items))
	for _, commit := range raw.Items {
		author := commit.GetCommit().GetAuthor()

		username := loginOf(commit.GetAuthor())
		displayName := ""
		if username != insights.UnknownUser {
			displayName = s.names.Resolve(ctx, username)
		}

		// Fallback to the commit author's name if no display name is set
		if displayName == "" {
			displayName = author.GetName()
		}
		if displayName == "" {
			displayName = insights.UnknownUser
		}

		events = append(events, insights.Event{
			Timestamp:  author.GetDate().Time,
			Username:   username,
			Name:       displayName,
			ActionType: insights.ActionCommit,
			Repository: repo,
			SHA:        commit.GetSHA(),
		})
	}

	return convert(raw, events)
}

// PullRequests returns one "PR opened" event per pull request
func (s *GithubClient) PullRequests(ctx context.Context, repo string) Result[insights.Event] {
	owner, name, err := common.SplitRepo(repo)
	if err != nil {
		return Result[insights.Event]{Err: err}
	}

	raw := fetchAll(ctx, s, fmt.Sprintf("repos/%s/pulls", repo), func(ctx context.Context, opts github.ListOptions) ([]*github.PullRequest, *github.Response, error) {
		return s.client.PullRequests.List(ctx, owner, name, &github.PullRequestListOptions{State: s.state, ListOptions: opts})
	})

	events := make([]insights.Event, 0, len(raw.Items))
	for _, pr := range raw.Items {
		events = append(events, s.userEvent(ctx, pr.GetUser(), pr.GetCreatedAt(), insights.ActionPROpened, repo))
	}

	return convert(raw, events)
}

// Issues returns one "issue opened" event per issue. The issues endpoint also
// lists pull requests, those are skipped.
func (s *GithubClient) Issues(ctx context.Context, repo string) Result[insights.Event] {
	owner, name, err := common.SplitRepo(repo)
	if err != nil {
		return Result[insights.Event]{Err: err}
	}

	raw := fetchAll(ctx, s, fmt.Sprintf("repos/%s/issues", repo), func(ctx context.Context, opts github.ListOptions) ([]*github.Issue, *github.Response, error) {
		return s.client.Issues.ListByRepo(ctx, owner, name, &github.IssueListByRepoOptions{State: s.state, ListOptions: opts})
	})

	events := make([]insights.Event, 0, len(raw.Items))
	for _, issue := range raw.Items {
		if issue.IsPullRequest() {
			continue
		}
		events = append(events, s.userEvent(ctx, issue.GetUser(), issue.GetCreatedAt(), insights.ActionIssueOpened, repo))
	}

	return convert(raw, events)
}

// IssueComments returns one event per comment on any issue or pull request
// conversation of the repository
func (s *GithubClient) IssueComments(ctx context.Context, repo string) Result[insights.Event] {
	owner, name, err := common.SplitRepo(repo)
	if err != nil {
		return Result[insights.Event]{Err: err}
	}

	raw := fetchAll(ctx, s, fmt.Sprintf("repos/%s/issues/comments", repo), func(ctx context.Context, opts github.ListOptions) ([]*github.IssueComment, *github.Response, error) {
		// Issue number 0 lists the comments of every issue in the repository
		return s.client.Issues.ListComments(ctx, owner, name, 0, &github.IssueListCommentsOptions{ListOptions: opts})
	})

	events := make([]insights.Event, 0, len(raw.Items))
	for _, comment := range raw.Items {
		events = append(events, s.userEvent(ctx, comment.GetUser(), comment.GetCreatedAt(), insights.ActionIssueComment, repo))
	}

	return convert(raw, events)
}

// ReviewComments returns one "PR comment" event per review comment left on
// the diff of any pull request of the repository
func (s *GithubClient) ReviewComments(ctx context.Context, repo string) Result[insights.Event] {
	owner, name, err := common.SplitRepo(repo)
	if err != nil {
		return Result[insights.Event]{Err: err}
	}

	raw := fetchAll(ctx, s, fmt.Sprintf("repos/%s/pulls/comments", repo), func(ctx context.Context, opts github.ListOptions) ([]*github.PullRequestComment, *github.Response, error) {
		// Pull request number 0 lists the review comments of every pull request
		return s.client.PullRequests.ListComments(ctx, owner, name, 0, &github.PullRequestListCommentsOptions{ListOptions: opts})
	})

	events := make([]insights.Event, 0, len(raw.Items))
	for _, comment := range raw.Items {
		events = append(events, s.userEvent(ctx, comment.GetUser(), comment.GetCreatedAt(), insights.ActionPRComment, repo))
	}

	return convert(raw, events)
}

// userEvent builds the event of a non-commit item. Items without a user skip
// the profile lookup entirely and are attributed to UnknownUser.
func (s *GithubClient) userEvent(ctx context.Context, user *github.User, createdAt github.Timestamp, action insights.ActionType, repo string) insights.Event {
	username := loginOf(user)

	displayName := insights.UnknownUser
	if username != insights.UnknownUser {
		displayName = s.names.Resolve(ctx, username)
	}

	return insights.Event{
		Timestamp:  createdAt.Time,
		Username:   username,
		Name:       displayName,
		ActionType: action,
		Repository: repo,
	}
}

func loginOf(user *github.User) string {
	if login := user.GetLogin(); login != "" {
		return login
	}
	return insights.UnknownUser
}

func convert[T any](raw Result[T], events []insights.Event) Result[insights.Event] {
	return Result[insights.Event]{
		Items:    events,
		Complete: raw.Complete,
		Err:      raw.Err,
	}
}
