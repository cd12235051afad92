package dto

import (
	"sort"

	"github.com/noah-isme/promptcraft-portal/internal/utils"
	"github.com/noah-isme/promptcraft-portal/pkg/promptcraft"
)

// MetricCard is a key metric rendered for display.
type MetricCard struct {
	Name            string             `json:"name"`
	Unit            string             `json:"unit"`
	Value           float64            `json:"value"`
	Display         string             `json:"display"`
	PreviousDisplay *string            `json:"previous_display,omitempty"`
	Trend           utils.TrendDisplay `json:"trend"`
}

// NewMetricCard formats a metric. The previous value is only shown when positive.
func NewMetricCard(metric promptcraft.MetricSummary) MetricCard {
	card := MetricCard{
		Name:    metric.Name,
		Unit:    metric.Unit,
		Value:   metric.CurrentValue,
		Display: withUnit(utils.FormatMetricValue(metric.CurrentValue, metric.Unit), metric.Unit),
		Trend:   utils.DescribeTrend(metric.Trend, metric.ChangePercent),
	}
	if metric.PreviousValue > 0 {
		previous := withUnit(utils.FormatMetricValue(metric.PreviousValue, metric.Unit), metric.Unit)
		card.PreviousDisplay = &previous
	}
	return card
}

func withUnit(value, unit string) string {
	if unit == "" {
		return value
	}
	return value + " " + unit
}

// Distribution is a share breakdown; Empty is set when the total is zero.
type Distribution struct {
	Shares []utils.Share `json:"shares"`
	Empty  bool          `json:"empty"`
}

// NewDistribution orders keys alphabetically for a stable rendering.
func NewDistribution(values map[string]float64) Distribution {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	shares := utils.DistributionShares(keys, values)
	if shares == nil {
		return Distribution{Shares: []utils.Share{}, Empty: true}
	}
	return Distribution{Shares: shares}
}

// EngagementSummary holds the headline counters already formatted.
type EngagementSummary struct {
	TotalUsers             string `json:"total_users"`
	VerifiedUsers          string `json:"verified_users"`
	RetentionRate          string `json:"retention_rate"`
	TotalSubmissions       string `json:"total_submissions"`
	SubmissionsPerUser     string `json:"submissions_per_user"`
	CompletionRate         string `json:"completion_rate"`
	SubmissionsPerQuestion string `json:"submissions_per_question"`
}

// DashboardView is the analytics page: raw server metrics plus display values.
type DashboardView struct {
	Analytics              promptcraft.DashboardAnalytics `json:"analytics"`
	KeyMetrics             []MetricCard                   `json:"key_metrics"`
	Summary                EngagementSummary              `json:"summary"`
	DifficultyDistribution Distribution                   `json:"difficulty_distribution"`
	LanguageDistribution   Distribution                   `json:"language_distribution"`
}

// NewDashboardView formats server-computed analytics.
func NewDashboardView(analytics promptcraft.DashboardAnalytics) DashboardView {
	cards := make([]MetricCard, 0, len(analytics.KeyMetrics))
	for _, metric := range analytics.KeyMetrics {
		cards = append(cards, NewMetricCard(metric))
	}

	return DashboardView{
		Analytics:  analytics,
		KeyMetrics: cards,
		Summary: EngagementSummary{
			TotalUsers:             utils.FormatNumber(analytics.UserEngagement.TotalUsers),
			VerifiedUsers:          utils.FormatNumber(analytics.UserEngagement.VerifiedUsers),
			RetentionRate:          utils.FormatPercentage(analytics.UserEngagement.RetentionRate) + "%",
			TotalSubmissions:       utils.FormatNumber(analytics.SubmissionMetrics.TotalSubmissions),
			SubmissionsPerUser:     utils.FormatPercentage(analytics.SubmissionMetrics.AvgSubmissionsPerUser),
			CompletionRate:         utils.FormatPercentage(analytics.SubmissionMetrics.CompletionRate) + "%",
			SubmissionsPerQuestion: utils.FormatPercentage(analytics.QuestionMetrics.AvgSubmissionsPerQuestion),
		},
		DifficultyDistribution: NewDistribution(analytics.QuestionMetrics.DifficultyDistribution),
		LanguageDistribution:   NewDistribution(analytics.QuestionMetrics.LanguageDistribution),
	}
}
