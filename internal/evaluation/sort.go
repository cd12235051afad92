package evaluation

import (
	"cmp"
	"slices"
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses the backend's created_at formats. Values without a
// zone are read as UTC.
func ParseTimestamp(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// Sort returns a new slice ordered by spec. Equal keys keep their input
// order in both directions. Unknown keys leave the order unchanged.
func Sort(records []Record, spec SortSpec) []Record {
	sorted := slices.Clone(records)
	if sorted == nil {
		sorted = []Record{}
	}

	compare := comparator(spec.By)
	if compare == nil {
		return sorted
	}

	if spec.Order == Ascending {
		slices.SortStableFunc(sorted, compare)
	} else {
		slices.SortStableFunc(sorted, func(a, b Record) int { return compare(b, a) })
	}
	return sorted
}

func comparator(key SortKey) func(a, b Record) int {
	switch key {
	case SortByDate:
		return func(a, b Record) int {
			// Unparsable timestamps sort as the zero instant.
			at, _ := ParseTimestamp(a.CreatedAt)
			bt, _ := ParseTimestamp(b.CreatedAt)
			return at.Compare(bt)
		}
	case SortByScore:
		return func(a, b Record) int {
			return cmp.Compare(ScoreOrZero(a), ScoreOrZero(b))
		}
	case SortByTask:
		return func(a, b Record) int {
			return cmp.Compare(a.TaskID, b.TaskID)
		}
	case SortByStatus:
		return func(a, b Record) int {
			return strings.Compare(a.Status, b.Status)
		}
	default:
		return nil
	}
}
