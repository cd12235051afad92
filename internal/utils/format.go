package utils

import (
	"math"
	"strconv"
)

// FormatNumber abbreviates large counters with a K or M suffix.
func FormatNumber(value float64) string {
	switch {
	case value >= 1_000_000:
		return strconv.FormatFloat(value/1_000_000, 'f', 1, 64) + "M"
	case value >= 1_000:
		return strconv.FormatFloat(value/1_000, 'f', 1, 64) + "K"
	default:
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
}

// FormatPercentage renders a rate with two decimals and no sign.
func FormatPercentage(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}

// FormatMetricValue picks the percentage or counter format from the unit.
func FormatMetricValue(value float64, unit string) string {
	if unit == "%" {
		return FormatPercentage(value)
	}
	return FormatNumber(value)
}

// Trend is the direction of a metric against its previous period.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// TrendDisplay is the rendered badge for a metric change.
type TrendDisplay struct {
	Direction Trend  `json:"direction"`
	Text      string `json:"text"`
}

// DescribeTrend signs the absolute change by direction. Unknown directions
// are rendered unsigned as stable.
func DescribeTrend(trend string, changePercent float64) TrendDisplay {
	change := FormatPercentage(math.Abs(changePercent))
	switch Trend(trend) {
	case TrendUp:
		return TrendDisplay{Direction: TrendUp, Text: "+" + change + "%"}
	case TrendDown:
		return TrendDisplay{Direction: TrendDown, Text: "-" + change + "%"}
	default:
		return TrendDisplay{Direction: TrendStable, Text: change + "%"}
	}
}

// Share is one slice of a distribution.
type Share struct {
	Key     string  `json:"key"`
	Value   float64 `json:"value"`
	Percent string  `json:"percent"`
}

// DistributionShares computes each key's share of the total with one
// decimal, in the order of keys. It returns nil when the total is zero.
func DistributionShares(keys []string, values map[string]float64) []Share {
	var total float64
	for _, key := range keys {
		total += values[key]
	}
	if total == 0 {
		return nil
	}

	shares := make([]Share, 0, len(keys))
	for _, key := range keys {
		value := values[key]
		shares = append(shares, Share{
			Key:     key,
			Value:   value,
			Percent: strconv.FormatFloat(value/total*100, 'f', 1, 64),
		})
	}
	return shares
}
