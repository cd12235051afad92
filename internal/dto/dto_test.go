package dto

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/promptcraft-portal/internal/evaluation"
	"github.com/noah-isme/promptcraft-portal/pkg/promptcraft"
)

func TestEvaluationQueryDefaults(t *testing.T) {
	query, err := EvaluationQuery{}.ToQuery()
	require.NoError(t, err)
	require.True(t, query.Criteria.IsZero())
	require.Equal(t, evaluation.DefaultSort(), query.Sort)
}

func TestEvaluationQueryParsesCriteria(t *testing.T) {
	query, err := EvaluationQuery{
		Status:    "completed",
		MinScore:  "0",
		MaxScore:  "7.5",
		SortBy:    "score",
		SortOrder: "asc",
	}.ToQuery()
	require.NoError(t, err)
	require.Equal(t, "completed", *query.Criteria.Status)
	require.Equal(t, 0.0, *query.Criteria.MinScore)
	require.Equal(t, 7.5, *query.Criteria.MaxScore)
	require.Nil(t, query.Criteria.Difficulty)
	require.Equal(t, evaluation.SortSpec{By: evaluation.SortByScore, Order: evaluation.Ascending}, query.Sort)

	_, err = EvaluationQuery{MinScore: "high"}.ToQuery()
	require.ErrorContains(t, err, "min_score")
}

func TestNewEvaluationItemCleansFreeText(t *testing.T) {
	score := 8.2
	code := "<script>alert(1)</script>print('hi')"
	difficulty := "hard"
	record := promptcraft.Evaluation{
		ID:                     4,
		TaskID:                 2,
		EvaluatorUsername:      "grace",
		PromptEvaluated:        "Write a parser",
		GeneratedCodeEvaluated: &code,
		EvaluationNotes:        "Good <b>structure</b>",
		Scores:                 map[string]json.RawMessage{"clarity": json.RawMessage(`9`), "notes": json.RawMessage(`"ok"`)},
		CriteriaUsed:           json.RawMessage(`["clarity","accuracy"]`),
		OverallScore:           &score,
		Status:                 "reviewed",
		CreatedAt:              "2024-01-03T10:00:00Z",
		DifficultyLevel:        &difficulty,
	}

	strip := func(value string) string {
		return strings.NewReplacer("<script>", "", "</script>", "", "<b>", "", "</b>", "").Replace(value)
	}
	item := NewEvaluationItem(record, strip)

	require.Equal(t, "grace", item.Evaluator)
	require.Equal(t, "Good structure", item.Notes)
	require.Equal(t, code, *item.GeneratedCode)
	require.Equal(t, "high", item.ScoreBand)
	require.Equal(t, "Reviewed", item.StatusLabel)
	require.Equal(t, evaluation.CategoryInfo, item.StatusCategory)
	require.Equal(t, evaluation.CategoryDanger, item.DifficultyCategory)
	require.Equal(t, "Jan 3, 2024, 10:00 AM", item.CreatedAtDisplay)
	require.Equal(t, map[string]string{"clarity": "9", "notes": "ok"}, item.Scores)
	require.Equal(t, []string{"clarity", "accuracy"}, item.Criteria)
}

func TestNewEvaluationItemWithoutScore(t *testing.T) {
	item := NewEvaluationItem(promptcraft.Evaluation{ID: 1, Status: "pending", CreatedAt: "garbage"}, func(s string) string { return s })
	require.Nil(t, item.OverallScore)
	require.Empty(t, item.ScoreBand)
	require.Equal(t, "garbage", item.CreatedAtDisplay)
	require.Equal(t, evaluation.CategoryNeutral, item.DifficultyCategory)
}

func TestNewMetricCard(t *testing.T) {
	card := NewMetricCard(promptcraft.MetricSummary{
		Name:          "Active users",
		CurrentValue:  1500,
		PreviousValue: 0,
		ChangePercent: 12.5,
		Trend:         "up",
		Unit:          "users",
	})
	require.Equal(t, "1.5K users", card.Display)
	require.Nil(t, card.PreviousDisplay)
	require.Equal(t, "+12.50%", card.Trend.Text)

	rate := NewMetricCard(promptcraft.MetricSummary{Name: "Completion", CurrentValue: 45.5, PreviousValue: 40, Trend: "down", ChangePercent: -5, Unit: "%"})
	require.Equal(t, "45.50 %", rate.Display)
	require.Equal(t, "40.00 %", *rate.PreviousDisplay)
	require.Equal(t, "-5.00%", rate.Trend.Text)
}

func TestNewDistribution(t *testing.T) {
	empty := NewDistribution(map[string]float64{"easy": 0})
	require.True(t, empty.Empty)
	require.Empty(t, empty.Shares)

	dist := NewDistribution(map[string]float64{"python": 3, "go": 1})
	require.False(t, dist.Empty)
	require.Equal(t, "go", dist.Shares[0].Key)
	require.Equal(t, "25.0", dist.Shares[0].Percent)
	require.Equal(t, "75.0", dist.Shares[1].Percent)
}

func TestLeaderboardViewMarksCurrentUser(t *testing.T) {
	full := "Ada Lovelace"
	rank := 2
	board := promptcraft.Leaderboard{
		Entries: []promptcraft.LeaderboardEntry{
			{UserID: 3, Username: "grace", Rank: 1},
			{UserID: 7, Username: "ada", FullName: &full, Rank: 2},
		},
		TotalUsers:       2,
		CurrentUserRank:  &rank,
		CurrentUserEntry: &promptcraft.LeaderboardEntry{UserID: 7, Username: "ada", FullName: &full, Rank: 2},
	}

	view := NewLeaderboardView(board, "weekly", 7)
	require.False(t, view.Entries[0].IsCurrentUser)
	require.True(t, view.Entries[1].IsCurrentUser)
	require.Equal(t, "Ada Lovelace", view.Entries[1].DisplayName)
	require.Equal(t, "grace", view.Entries[0].DisplayName)
	require.NotNil(t, view.CurrentUser)
	require.Equal(t, "weekly", view.Period)
}

func TestQueryDefaults(t *testing.T) {
	params := LeaderboardQuery{}.ToParams()
	require.Equal(t, 50, params.Limit)
	require.Equal(t, "all_time", params.Period)

	page := SubmissionListQuery{}.Normalize()
	require.Equal(t, 1, page.Page)
	require.Equal(t, 10, page.Limit)

	history := NewSubmissionHistoryResponse(promptcraft.SubmissionHistory{TotalCount: 21, Page: 1, Limit: 10})
	require.Equal(t, 3, history.TotalPages)
	require.NotNil(t, history.Items)
}
