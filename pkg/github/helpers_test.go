package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

// fakeClock stands in for the wall clock. It runs an hour behind real time so
// reset instants computed from it already lie in the past for the API
// client's own rate limit bookkeeping.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().Add(-time.Hour).Truncate(time.Second)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Sleep(_ context.Context, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sleeps = append(f.sleeps, d)
	f.now = f.now.Add(d)
}

func (f *fakeClock) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.sleeps...)
}

// hits counts requests per key across handler goroutines
type hits struct {
	mu     sync.Mutex
	counts map[string]int
}

func newHits() *hits {
	return &hits{counts: make(map[string]int)}
}

func (h *hits) add(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.counts[key]++
	return h.counts[key]
}

func (h *hits) get(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.counts[key]
}

func newTestClient(t *testing.T, mux *http.ServeMux, opts ...Option) (*GithubClient, *fakeClock) {
	t.Helper()

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	baseURL, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("unexpected err parsing test server URL: %s", err.Error())
	}

	clock := newFakeClock()
	opts = append([]Option{WithBaseURL(baseURL), WithClock(clock.Now, clock.Sleep)}, opts...)

	return NewClient(server.Client(), zaptest.NewLogger(t).Sugar(), opts...), clock
}

// pagedHandler serves pages[i] for page i+1 and an empty list past the end
func pagedHandler(t *testing.T, h *hits, key string, pages ...[]map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil {
			t.Errorf("request without a page number: %s", r.URL.String())
			page = 1
		}
		h.add(fmt.Sprintf("%s?page=%d", key, page))

		items := []map[string]any{}
		if page <= len(pages) {
			items = pages[page-1]
		}
		writeJSON(t, w, items)
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("could not encode response: %s", err.Error())
	}
}

func userHandler(h *hits, names map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		login := r.URL.Path[len("/users/"):]
		h.add("users/" + login)

		name, ok := names[login]
		if !ok {
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if name == "" {
			fmt.Fprintf(w, `{"login":%q}`, login)
			return
		}
		fmt.Fprintf(w, `{"login":%q,"name":%q}`, login, name)
	}
}
