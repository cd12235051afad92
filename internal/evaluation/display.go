package evaluation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Category is a neutral display tone the UI maps to colours.
type Category string

const (
	CategorySuccess Category = "success"
	CategoryWarning Category = "warning"
	CategoryInfo    Category = "info"
	CategoryDanger  Category = "danger"
	CategoryNeutral Category = "neutral"
)

// ScoreBand buckets an overall score for display.
type ScoreBand string

const (
	ScoreHigh ScoreBand = "high"
	ScoreGood ScoreBand = "good"
	ScoreFair ScoreBand = "fair"
	ScoreLow  ScoreBand = "low"
)

const displayDateLayout = "Jan 2, 2006, 03:04 PM"

// FormatDate renders a created_at value for display, returning the input
// unchanged when it cannot be parsed.
func FormatDate(value string) string {
	parsed, ok := ParseTimestamp(value)
	if !ok {
		return value
	}
	return parsed.Format(displayDateLayout)
}

// StatusCategory maps a status to its tone. Unknown statuses are neutral.
func StatusCategory(status string) Category {
	switch strings.ToLower(status) {
	case "completed":
		return CategorySuccess
	case "pending":
		return CategoryWarning
	case "reviewed":
		return CategoryInfo
	default:
		return CategoryNeutral
	}
}

// DifficultyCategory maps a difficulty to its tone; absent is neutral.
func DifficultyCategory(difficulty *string) Category {
	if difficulty == nil {
		return CategoryNeutral
	}
	switch strings.ToLower(*difficulty) {
	case "easy":
		return CategorySuccess
	case "medium":
		return CategoryWarning
	case "hard":
		return CategoryDanger
	default:
		return CategoryNeutral
	}
}

// ScoreCategory bands a 0-10 score.
func ScoreCategory(score float64) ScoreBand {
	switch {
	case score >= 8:
		return ScoreHigh
	case score >= 6:
		return ScoreGood
	case score >= 4:
		return ScoreFair
	default:
		return ScoreLow
	}
}

// StatusLabel capitalises the first letter of a status.
func StatusLabel(status string) string {
	if status == "" {
		return status
	}
	first, size := utf8.DecodeRuneInString(status)
	return string(unicode.ToUpper(first)) + status[size:]
}
