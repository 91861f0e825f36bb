package github

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-github/v54/github"
)

func listCommits(s *GithubClient) func(context.Context, github.ListOptions) ([]*github.RepositoryCommit, *github.Response, error) {
	return func(ctx context.Context, opts github.ListOptions) ([]*github.RepositoryCommit, *github.Response, error) {
		return s.client.Repositories.ListCommits(ctx, "org", "core", &github.CommitsListOptions{ListOptions: opts})
	}
}

func shaPage(shas ...string) []map[string]any {
	var page []map[string]any
	for _, sha := range shas {
		page = append(page, map[string]any{"sha": sha})
	}
	return page
}

func TestFetchAll(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pages    [][]map[string]any
		expected []string
		lastPage int
	}{
		{
			name:     "Concatenates pages in order until an empty page",
			pages:    [][]map[string]any{shaPage("a", "b"), shaPage("c", "d"), shaPage("e")},
			expected: []string{"a", "b", "c", "d", "e"},
			lastPage: 4,
		},
		{
			name:     "Empty first page yields nothing",
			pages:    nil,
			expected: []string{},
			lastPage: 1,
		},
		{
			name:     "Ignores pages after the first empty one",
			pages:    [][]map[string]any{shaPage("a"), {}, shaPage("never")},
			expected: []string{"a"},
			lastPage: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHits()
			mux := http.NewServeMux()
			mux.HandleFunc("/repos/org/core/commits", pagedHandler(t, h, "commits", tt.pages...))

			client, clock := newTestClient(t, mux)
			result := fetchAll(context.Background(), client, "repos/org/core/commits", listCommits(client))

			if !result.Complete || result.Err != nil {
				t.Fatalf("expected a complete result, got err: %v", result.Err)
			}

			if len(result.Items) != len(tt.expected) {
				t.Fatalf("unexpected item count. Expected: %d. Actual: %d.", len(tt.expected), len(result.Items))
			}

			for i, item := range result.Items {
				if item.GetSHA() != tt.expected[i] {
					t.Fatalf("unexpected item %d. Expected: %s. Actual: %s.", i, tt.expected[i], item.GetSHA())
				}
			}

			// Exactly one request per page up to and including the empty one
			for page := 1; page <= tt.lastPage; page++ {
				if n := h.get("commits?page=" + strconv.Itoa(page)); n != 1 {
					t.Fatalf("page %d requested %d times", page, n)
				}
			}
			if n := h.get("commits?page=" + strconv.Itoa(tt.lastPage+1)); n != 0 {
				t.Fatalf("page after the empty page was requested %d times", n)
			}

			if len(clock.Sleeps()) != 0 {
				t.Fatalf("unexpected sleeps: %v", clock.Sleeps())
			}
		})
	}
}

func TestFetchAllPerPage(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/org/core/commits", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("per_page"); got != "25" {
			t.Errorf("unexpected per_page: %s", got)
		}
		writeJSON(t, w, []map[string]any{})
	})

	client, _ := newTestClient(t, mux, WithPerPage(25))
	result := fetchAll(context.Background(), client, "repos/org/core/commits", listCommits(client))
	if !result.Complete {
		t.Fatalf("expected a complete result, got err: %v", result.Err)
	}
}

func TestFetchAllRetries(t *testing.T) {
	t.Parallel()

	h := newHits()
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/org/core/commits", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		n := h.add("commits?page=" + page)

		switch {
		case page == "1":
			writeJSON(t, w, shaPage("a"))
		case page == "2" && n < 3:
			http.Error(w, `{"message":"Server Error"}`, http.StatusBadGateway)
		case page == "2":
			writeJSON(t, w, shaPage("b"))
		default:
			writeJSON(t, w, []map[string]any{})
		}
	})

	client, clock := newTestClient(t, mux)
	result := fetchAll(context.Background(), client, "repos/org/core/commits", listCommits(client))

	if !result.Complete || result.Err != nil {
		t.Fatalf("expected a complete result, got err: %v", result.Err)
	}

	if len(result.Items) != 2 {
		t.Fatalf("unexpected item count: %d", len(result.Items))
	}

	if n := h.get("commits?page=2"); n != 3 {
		t.Fatalf("expected page 2 to be requested 3 times, got %d", n)
	}

	sleeps := clock.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != time.Second || sleeps[1] != time.Second {
		t.Fatalf("expected two 1s backoffs, got %v", sleeps)
	}
}

func TestFetchAllTruncates(t *testing.T) {
	t.Parallel()

	h := newHits()
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/org/core/commits", func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		h.add("commits?page=" + page)

		if page == "1" {
			writeJSON(t, w, shaPage("a", "b"))
			return
		}
		http.Error(w, `{"message":"Server Error"}`, http.StatusInternalServerError)
	})

	client, _ := newTestClient(t, mux)
	result := fetchAll(context.Background(), client, "repos/org/core/commits", listCommits(client))

	if result.Complete {
		t.Fatal("expected a truncated result")
	}

	if result.Err == nil {
		t.Fatal("expected the last failure to be reported")
	}

	if len(result.Items) != 2 {
		t.Fatalf("expected the first page to be kept, got %d items", len(result.Items))
	}

	if n := h.get("commits?page=2"); n != maxAttempts {
		t.Fatalf("expected page 2 to be requested %d times, got %d", maxAttempts, n)
	}

	if n := h.get("commits?page=3"); n != 0 {
		t.Fatalf("pagination continued after giving up: page 3 requested %d times", n)
	}
}

func TestFetchAllCanceled(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/org/core/commits", pagedHandler(t, newHits(), "commits", shaPage("a")))

	client, _ := newTestClient(t, mux)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := fetchAll(ctx, client, "repos/org/core/commits", listCommits(client))
	if result.Complete || result.Err == nil {
		t.Fatal("expected a canceled context to end pagination with an error")
	}
}
