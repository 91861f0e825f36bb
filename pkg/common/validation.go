package common

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/storage/memory"
)

// GithubHost is the host used to build clone URLs for repository identifiers
const GithubHost = "github.com"

// IsValidGitRepo returns true if the provided git repo URL is a valid and reachable
// git repository. This is equivalent to running "git ls-remote" on the provided
// URL string. This may result in some unexpected "authentication required" or
// "repository not found" errors which is standard for git to return in these
// situations.
func IsValidGitRepo(repoURL string) (bool, error) {
	remoteConfig := &config.RemoteConfig{
		Name: "source",
		URLs: []string{
			repoURL,
		},
	}

	remote := git.NewRemote(memory.NewStorage(), remoteConfig)

	_, err := remote.List(&git.ListOptions{})
	if err != nil {
		return false, fmt.Errorf("could not list remote repository: %s", err.Error())
	}

	return true, nil
}

// NormalizeRepo takes a raw repository reference, either an "owner/name"
// identifier or a git URL, and returns the "owner/name" identifier used for
// API calls and in the activity dataset.
func NormalizeRepo(repo string) (string, error) {
	repo = strings.TrimSpace(repo)

	if strings.Contains(repo, "://") {
		parsedURL, err := url.Parse(repo)
		if err != nil {
			return "", err
		}

		// Check if it has a valid protocol specified (e.g., https, git)
		if parsedURL.Scheme != "git" && parsedURL.Scheme != "https" {
			return "", fmt.Errorf("repo URL missing valid protocol scheme (https, git): %s", repo)
		}

		if parsedURL.Host != GithubHost {
			return "", fmt.Errorf("repo URL is not hosted on %s: %s", GithubHost, repo)
		}

		repo = parsedURL.Path
	}

	// Trim slashes and the .git suffix if present
	// Example: https://github.com/apache/arrow.git/ to apache/arrow
	repo = strings.Trim(repo, "/")
	repo = strings.TrimSuffix(repo, ".git")

	if _, _, err := SplitRepo(repo); err != nil {
		return "", err
	}

	return repo, nil
}

// SplitRepo splits an "owner/name" identifier into its owner and name.
func SplitRepo(repo string) (string, string, error) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository must be in the form owner/name: %q", repo)
	}

	return parts[0], parts[1], nil
}

// RepoGitURL returns the https clone URL of an "owner/name" identifier
func RepoGitURL(repo string) string {
	return fmt.Sprintf("https://%s/%s", GithubHost, repo)
}
