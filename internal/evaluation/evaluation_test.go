package evaluation

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func strPtr(v string) *string     { return &v }
func floatPtr(v float64) *float64 { return &v }

func record(id uint, status string, score *float64, createdAt string) Record {
	return Record{ID: id, Status: status, OverallScore: score, CreatedAt: createdAt}
}

func ids(records []Record) []uint {
	out := make([]uint, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func scenario() []Record {
	return []Record{
		record(1, "completed", floatPtr(9), "2024-01-03"),
		record(2, "pending", nil, "2024-01-01"),
		record(3, "completed", floatPtr(5), "2024-01-02"),
	}
}

func TestFilterIdentity(t *testing.T) {
	all := scenario()
	result := Filter(all, Criteria{})
	require.Equal(t, all, result)
}

func TestFilterMonotonicity(t *testing.T) {
	all := []Record{
		{ID: 1, Status: "completed", OverallScore: floatPtr(9), DifficultyLevel: strPtr("hard"), ProgrammingLanguage: strPtr("go")},
		{ID: 2, Status: "completed", OverallScore: floatPtr(4), DifficultyLevel: strPtr("easy"), ProgrammingLanguage: strPtr("python")},
		{ID: 3, Status: "pending", DifficultyLevel: strPtr("hard")},
		{ID: 4, Status: "reviewed", OverallScore: floatPtr(7), ProgrammingLanguage: strPtr("go")},
	}

	steps := []Criteria{
		{},
		{Status: strPtr("completed")},
		{Status: strPtr("completed"), Language: strPtr("go")},
		{Status: strPtr("completed"), Language: strPtr("go"), MinScore: floatPtr(5)},
		{Status: strPtr("completed"), Language: strPtr("go"), MinScore: floatPtr(5), MaxScore: floatPtr(8)},
	}

	previous := len(all) + 1
	for _, criteria := range steps {
		size := len(Filter(all, criteria))
		require.LessOrEqual(t, size, previous)
		previous = size
	}
	require.Zero(t, previous)
}

func TestFilterAbsentScoreCountsAsZero(t *testing.T) {
	all := []Record{record(1, "pending", nil, "2024-01-01")}

	require.Empty(t, Filter(all, Criteria{MinScore: floatPtr(0.1)}))
	require.Len(t, Filter(all, Criteria{MinScore: floatPtr(0)}), 1)
	require.Len(t, Filter(all, Criteria{}), 1)
	require.Len(t, Filter(all, Criteria{MaxScore: floatPtr(0)}), 1)
}

func TestFilterOptionalFieldsRequirePresence(t *testing.T) {
	all := []Record{
		{ID: 1, DifficultyLevel: strPtr("easy")},
		{ID: 2},
	}
	require.Equal(t, []uint{1}, ids(Filter(all, Criteria{Difficulty: strPtr("easy")})))
	require.Empty(t, Filter(all, Criteria{Language: strPtr("go")}))
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	all := scenario()
	snapshot := slices.Clone(all)
	_ = Filter(all, Criteria{Status: strPtr("pending")})
	_ = Sort(all, SortSpec{By: SortByScore, Order: Ascending})
	require.Equal(t, snapshot, all)
}

func TestSortStableInBothDirections(t *testing.T) {
	all := []Record{
		record(1, "completed", floatPtr(5), "2024-01-01"),
		record(2, "completed", floatPtr(7), "2024-01-02"),
		record(3, "completed", floatPtr(5), "2024-01-03"),
		record(4, "completed", floatPtr(7), "2024-01-04"),
	}

	asc := Sort(all, SortSpec{By: SortByScore, Order: Ascending})
	require.Equal(t, []uint{1, 3, 2, 4}, ids(asc))

	desc := Sort(all, SortSpec{By: SortByScore, Order: Descending})
	require.Equal(t, []uint{2, 4, 1, 3}, ids(desc))

	byStatus := Sort(all, SortSpec{By: SortByStatus, Order: Descending})
	require.Equal(t, []uint{1, 2, 3, 4}, ids(byStatus))
}

func TestSortAscendingReversedEqualsDescending(t *testing.T) {
	all := []Record{
		{ID: 1, TaskID: 30, Status: "reviewed", OverallScore: floatPtr(3), CreatedAt: "2024-02-01T10:00:00Z"},
		{ID: 2, TaskID: 10, Status: "completed", OverallScore: floatPtr(9), CreatedAt: "2024-01-15T08:30:00Z"},
		{ID: 3, TaskID: 20, Status: "pending", OverallScore: floatPtr(6.5), CreatedAt: "2024-03-20T23:59:59Z"},
	}

	for _, key := range []SortKey{SortByDate, SortByScore, SortByTask, SortByStatus} {
		t.Run(string(key), func(t *testing.T) {
			asc := Sort(all, SortSpec{By: key, Order: Ascending})
			slices.Reverse(asc)
			desc := Sort(all, SortSpec{By: key, Order: Descending})
			require.Equal(t, ids(desc), ids(asc))
		})
	}
}

func TestSortUnknownKeyKeepsOrder(t *testing.T) {
	all := scenario()
	sorted := Sort(all, SortSpec{By: "evaluator", Order: Descending})
	require.Equal(t, ids(all), ids(sorted))
}

func TestSortUnparsableDateSortsFirstAscending(t *testing.T) {
	all := []Record{
		record(1, "completed", nil, "2024-01-02"),
		record(2, "completed", nil, "not a date"),
	}
	sorted := Sort(all, SortSpec{By: SortByDate, Order: Ascending})
	require.Equal(t, []uint{2, 1}, ids(sorted))
}

func TestSortNilInput(t *testing.T) {
	sorted := Sort(nil, DefaultSort())
	require.NotNil(t, sorted)
	require.Empty(t, sorted)
}

func TestSortToggle(t *testing.T) {
	current := DefaultSort()
	require.Equal(t, SortSpec{By: SortByDate, Order: Ascending}, current.Toggle(SortByDate))
	require.Equal(t, SortSpec{By: SortByDate, Order: Descending}, current.Toggle(SortByDate).Toggle(SortByDate))
	require.Equal(t, SortSpec{By: SortByScore, Order: Descending}, current.Toggle(SortByScore))
}

func TestAverageScoreNeutrality(t *testing.T) {
	require.Zero(t, AverageScore(nil))
	require.Zero(t, AverageScore([]Record{{ID: 1}}))
	require.Equal(t, 7.0, AverageScore([]Record{
		{ID: 1, OverallScore: floatPtr(8)},
		{ID: 2, OverallScore: floatPtr(6)},
	}))
}

func TestStatsIndependentOfFilters(t *testing.T) {
	all := scenario()
	stats := ComputeStats(all)
	before := map[string]int{}
	for k, v := range stats.StatusCounts {
		before[k] = v
	}

	_ = Filter(all, Criteria{Status: strPtr("pending")})
	_ = Filter(all, Criteria{MinScore: floatPtr(6)})

	require.Equal(t, before, stats.StatusCounts)
	require.Equal(t, stats, ComputeStats(all))
}

func TestConcreteScenario(t *testing.T) {
	all := scenario()

	filtered := Filter(all, Criteria{Status: strPtr("completed")})
	require.Equal(t, []uint{1, 3}, ids(filtered))

	sorted := Sort(filtered, SortSpec{By: SortByDate, Order: Descending})
	require.Equal(t, []uint{1, 3}, ids(sorted))

	require.Equal(t, 7.0, AverageScore(all))
	require.Equal(t, map[string]int{"completed": 2, "pending": 1}, StatusCounts(all))

	stats := ComputeStats(all)
	require.Equal(t, 3, stats.Total)
	require.Equal(t, 2, stats.ScoredCount)
	require.Equal(t, 9.0, stats.BestScore)
	require.Equal(t, 5.0, stats.WorstScore)
}

func TestDifficultyCountsSkipsAbsent(t *testing.T) {
	all := []Record{
		{ID: 1, DifficultyLevel: strPtr("easy")},
		{ID: 2},
		{ID: 3, DifficultyLevel: strPtr("easy")},
		{ID: 4, DifficultyLevel: strPtr("hard")},
	}
	require.Equal(t, map[string]int{"easy": 2, "hard": 1}, DifficultyCounts(all))
}

func TestAvailableOptions(t *testing.T) {
	all := []Record{
		{Status: "pending", ProgrammingLanguage: strPtr("python")},
		{Status: "completed", DifficultyLevel: strPtr("medium"), ProgrammingLanguage: strPtr("go")},
		{Status: "completed", DifficultyLevel: strPtr("easy")},
	}
	options := AvailableOptions(all)
	require.Equal(t, []string{"completed", "pending"}, options.Statuses)
	require.Equal(t, []string{"easy", "medium"}, options.Difficulties)
	require.Equal(t, []string{"go", "python"}, options.Languages)
}

func TestDisplayHelpers(t *testing.T) {
	require.Equal(t, "Jan 3, 2024, 10:05 AM", FormatDate("2024-01-03T10:05:00Z"))
	require.Equal(t, "yesterday", FormatDate("yesterday"))

	require.Equal(t, CategorySuccess, StatusCategory("completed"))
	require.Equal(t, CategoryWarning, StatusCategory("pending"))
	require.Equal(t, CategoryInfo, StatusCategory("reviewed"))
	require.Equal(t, CategoryNeutral, StatusCategory("archived"))

	require.Equal(t, CategoryDanger, DifficultyCategory(strPtr("hard")))
	require.Equal(t, CategoryNeutral, DifficultyCategory(nil))

	require.Equal(t, ScoreHigh, ScoreCategory(8))
	require.Equal(t, ScoreGood, ScoreCategory(6))
	require.Equal(t, ScoreFair, ScoreCategory(4.5))
	require.Equal(t, ScoreLow, ScoreCategory(0))

	require.Equal(t, "Completed", StatusLabel("completed"))
	require.Equal(t, "", StatusLabel(""))
}
