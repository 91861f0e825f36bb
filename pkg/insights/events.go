// package insights provides the data structures for the activity insights
// collected by the service: one normalized Event per commit, opened issue,
// opened pull request, issue comment or pull request review comment.
package insights

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// ActionType names the kind of activity an Event records.
type ActionType string

const (
	ActionCommit       ActionType = "commit"
	ActionIssueComment ActionType = "issue comment"
	ActionPRComment    ActionType = "PR comment"
	ActionPROpened     ActionType = "PR opened"
	ActionIssueOpened  ActionType = "issue opened"
)

// UnknownUser stands in for both the login and the display name when the API
// returns no user for an item, typically because the account was deleted.
const UnknownUser = "Unknown"

// Event is the main internal data structure that represents a single
// activity occurrence in a single repository.
type Event struct {
	Timestamp  time.Time
	Username   string
	Name       string
	ActionType ActionType
	Repository string

	// SHA is only set on commit events and only until the dataset is
	// finalized. It exists so mirrored commits can be filtered out.
	SHA string
}

// FilterDuplicateCommits returns the commits of target whose sha is not
// present in canonical. Target ordering is preserved.
func FilterDuplicateCommits(canonical, target []Event) []Event {
	seen := make(map[string]struct{}, len(canonical))
	for _, c := range canonical {
		seen[c.SHA] = struct{}{}
	}

	filtered := make([]Event, 0, len(target))
	for _, t := range target {
		if _, ok := seen[t.SHA]; ok {
			continue
		}
		filtered = append(filtered, t)
	}
	return filtered
}

// Finalize turns collected events into the output dataset: the sha column is
// dropped and rows are sorted ascending by timestamp. Rows with equal
// timestamps keep their collection order. The input slice is not modified.
func Finalize(events []Event) []Event {
	dataset := make([]Event, len(events))
	copy(dataset, events)

	for i := range dataset {
		dataset[i].SHA = ""
		dataset[i].Timestamp = dataset[i].Timestamp.UTC()
	}

	sort.SliceStable(dataset, func(i, j int) bool {
		return dataset[i].Timestamp.Before(dataset[j].Timestamp)
	})
	return dataset
}

// Dataset is the finalized output of one collection run, handed to every sink
type Dataset struct {
	RunID     uuid.UUID
	CreatedAt time.Time
	Events    []Event

	// Complete is false when at least one endpoint could not be paginated
	// to the end and the dataset is missing items
	Complete bool
}
