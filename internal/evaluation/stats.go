package evaluation

import "sort"

// Stats describes the whole fetched set, independent of any active filter.
type Stats struct {
	Total            int            `json:"total"`
	AverageScore     float64        `json:"average_score"`
	BestScore        float64        `json:"best_score"`
	WorstScore       float64        `json:"worst_score"`
	ScoredCount      int            `json:"scored_count"`
	StatusCounts     map[string]int `json:"status_counts"`
	DifficultyCounts map[string]int `json:"difficulty_counts"`
}

// AverageScore is the mean over records that carry a score. With no scored
// records it is 0.
func AverageScore(records []Record) float64 {
	var sum float64
	var count int
	for _, record := range records {
		if record.OverallScore == nil {
			continue
		}
		sum += *record.OverallScore
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// StatusCounts buckets records by their exact status string.
func StatusCounts(records []Record) map[string]int {
	counts := make(map[string]int)
	for _, record := range records {
		counts[record.Status]++
	}
	return counts
}

// DifficultyCounts buckets records by difficulty, skipping records without one.
func DifficultyCounts(records []Record) map[string]int {
	counts := make(map[string]int)
	for _, record := range records {
		if record.DifficultyLevel == nil {
			continue
		}
		counts[*record.DifficultyLevel]++
	}
	return counts
}

// ScoreRange returns the best and worst defined scores, 0 and 0 when none.
func ScoreRange(records []Record) (best, worst float64) {
	seen := false
	for _, record := range records {
		if record.OverallScore == nil {
			continue
		}
		score := *record.OverallScore
		if !seen {
			best, worst = score, score
			seen = true
			continue
		}
		if score > best {
			best = score
		}
		if score < worst {
			worst = score
		}
	}
	return best, worst
}

// ComputeStats reduces the full record set into its statistics.
func ComputeStats(records []Record) Stats {
	best, worst := ScoreRange(records)
	scored := 0
	for _, record := range records {
		if record.OverallScore != nil {
			scored++
		}
	}

	return Stats{
		Total:            len(records),
		AverageScore:     AverageScore(records),
		BestScore:        best,
		WorstScore:       worst,
		ScoredCount:      scored,
		StatusCounts:     StatusCounts(records),
		DifficultyCounts: DifficultyCounts(records),
	}
}

// Options lists the distinct values each filter control can offer.
type Options struct {
	Statuses     []string `json:"statuses"`
	Difficulties []string `json:"difficulties"`
	Languages    []string `json:"languages"`
}

// AvailableOptions collects sorted distinct statuses, difficulties and languages.
func AvailableOptions(records []Record) Options {
	statuses := map[string]struct{}{}
	difficulties := map[string]struct{}{}
	languages := map[string]struct{}{}

	for _, record := range records {
		if record.Status != "" {
			statuses[record.Status] = struct{}{}
		}
		if record.DifficultyLevel != nil && *record.DifficultyLevel != "" {
			difficulties[*record.DifficultyLevel] = struct{}{}
		}
		if record.ProgrammingLanguage != nil && *record.ProgrammingLanguage != "" {
			languages[*record.ProgrammingLanguage] = struct{}{}
		}
	}

	return Options{
		Statuses:     sortedKeys(statuses),
		Difficulties: sortedKeys(difficulties),
		Languages:    sortedKeys(languages),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
