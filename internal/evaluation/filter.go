package evaluation

// Filter returns the records matching every defined criterion, in input order.
func Filter(records []Record, criteria Criteria) []Record {
	result := make([]Record, 0, len(records))
	for _, record := range records {
		if matches(record, criteria) {
			result = append(result, record)
		}
	}
	return result
}

func matches(record Record, c Criteria) bool {
	if c.Status != nil && record.Status != *c.Status {
		return false
	}
	if c.Difficulty != nil && !equalsOptional(record.DifficultyLevel, *c.Difficulty) {
		return false
	}
	if c.Language != nil && !equalsOptional(record.ProgrammingLanguage, *c.Language) {
		return false
	}

	// An absent score counts as 0 for range checks, unlike AverageScore.
	score := ScoreOrZero(record)
	if c.MinScore != nil && score < *c.MinScore {
		return false
	}
	if c.MaxScore != nil && score > *c.MaxScore {
		return false
	}
	return true
}

func equalsOptional(value *string, want string) bool {
	return value != nil && *value == want
}

// ScoreOrZero returns the overall score, or 0 when absent.
func ScoreOrZero(record Record) float64 {
	if record.OverallScore == nil {
		return 0
	}
	return *record.OverallScore
}
