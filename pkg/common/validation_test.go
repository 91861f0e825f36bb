package common

import "testing"

func TestNormalizeRepo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		repo     string
		expected string
	}{
		{
			name:     "Keeps plain identifiers",
			repo:     "apache/arrow",
			expected: "apache/arrow",
		},
		{
			name:     "Fully normalizes URLs",
			repo:     "https://github.com/apache/arrow-rs.git/",
			expected: "apache/arrow-rs",
		},
		{
			name:     "Removes trailing .git",
			repo:     "https://github.com/apache/arrow-go.git",
			expected: "apache/arrow-go",
		},
		{
			name:     "Removes surrounding slashes and space",
			repo:     " /apache/arrow-site/ ",
			expected: "apache/arrow-site",
		},
		{
			name:     "Accepts git protocol",
			repo:     "git://github.com/apache/arrow-julia",
			expected: "apache/arrow-julia",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalized, err := NormalizeRepo(tt.repo)
			if err != nil {
				t.Fatalf("unexpected error: %s", err.Error())
			}

			if normalized != tt.expected {
				t.Fatalf("normalized repo: %s is not expected: %s", normalized, tt.expected)
			}
		})
	}
}

func TestNormalizeRepoError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		repo string
	}{
		{
			name: "Missing name fails",
			repo: "apache",
		},
		{
			name: "Too many segments fail",
			repo: "apache/arrow/tree",
		},
		{
			name: "Unusable protocol fails",
			repo: "ssh://github.com/apache/arrow",
		},
		{
			name: "Other hosts fail",
			repo: "https://gitlab.com/apache/arrow",
		},
		{
			name: "Empty fails",
			repo: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalized, err := NormalizeRepo(tt.repo)
			if err == nil {
				t.Fatalf("expected error, got none: %s", normalized)
			}
		})
	}
}

func TestRepoGitURL(t *testing.T) {
	t.Parallel()

	if got := RepoGitURL("apache/arrow"); got != "https://github.com/apache/arrow" {
		t.Fatalf("unexpected git URL: %s", got)
	}
}
