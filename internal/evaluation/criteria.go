// Package evaluation derives the displayed evaluation list and its
// statistics from the full in-memory set fetched for a candidate. Every
// function here is pure: inputs are never mutated and absent optional fields
// resolve to defined fallbacks instead of errors.
package evaluation

import "github.com/noah-isme/promptcraft-portal/pkg/promptcraft"

// Record is the evaluation record the derivations operate on.
type Record = promptcraft.Evaluation

// Criteria narrows the displayed list. A nil field imposes no constraint.
type Criteria struct {
	Status     *string  `json:"status,omitempty"`
	Difficulty *string  `json:"difficulty,omitempty"`
	Language   *string  `json:"language,omitempty"`
	MinScore   *float64 `json:"min_score,omitempty"`
	MaxScore   *float64 `json:"max_score,omitempty"`
}

// IsZero reports whether the criteria is the identity filter.
func (c Criteria) IsZero() bool {
	return c.Status == nil && c.Difficulty == nil && c.Language == nil && c.MinScore == nil && c.MaxScore == nil
}

// SortKey selects the comparison key.
type SortKey string

const (
	SortByDate   SortKey = "date"
	SortByScore  SortKey = "score"
	SortByTask   SortKey = "task"
	SortByStatus SortKey = "status"
)

// SortOrder is the sort direction.
type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// SortSpec pairs a key with a direction.
type SortSpec struct {
	By    SortKey   `json:"sort_by"`
	Order SortOrder `json:"sort_order"`
}

// DefaultSort is most recent first.
func DefaultSort() SortSpec {
	return SortSpec{By: SortByDate, Order: Descending}
}

// Toggle returns the sort after the user picks key: the active key flips
// direction, a new key starts descending.
func (s SortSpec) Toggle(key SortKey) SortSpec {
	if s.By == key {
		if s.Order == Ascending {
			return SortSpec{By: key, Order: Descending}
		}
		return SortSpec{By: key, Order: Ascending}
	}
	return SortSpec{By: key, Order: Descending}
}

// Query is the full transient view state: what to show and in which order.
type Query struct {
	Criteria Criteria
	Sort     SortSpec
}

// DefaultQuery is the state a view resets to.
func DefaultQuery() Query {
	return Query{Sort: DefaultSort()}
}
