package dto

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/promptcraft-portal/internal/evaluation"
	"github.com/noah-isme/promptcraft-portal/internal/fetch"
	"github.com/noah-isme/promptcraft-portal/pkg/promptcraft"
)

// EvaluationQuery is the query string of the evaluations view.
type EvaluationQuery struct {
	Status     string `query:"status" validate:"omitempty,max=32"`
	Difficulty string `query:"difficulty" validate:"omitempty,max=32"`
	Language   string `query:"language" validate:"omitempty,max=64"`
	MinScore   string `query:"min_score" validate:"omitempty,numeric"`
	MaxScore   string `query:"max_score" validate:"omitempty,numeric"`
	SortBy     string `query:"sort_by" validate:"omitempty,oneof=date score task status"`
	SortOrder  string `query:"sort_order" validate:"omitempty,oneof=asc desc"`
}

// ToQuery converts the raw parameters into derivation inputs. Empty values
// impose no constraint; the sort defaults to date descending.
func (q EvaluationQuery) ToQuery() (evaluation.Query, error) {
	query := evaluation.DefaultQuery()

	query.Criteria.Status = optionalString(q.Status)
	query.Criteria.Difficulty = optionalString(q.Difficulty)
	query.Criteria.Language = optionalString(q.Language)

	var err error
	if query.Criteria.MinScore, err = optionalFloat("min_score", q.MinScore); err != nil {
		return evaluation.Query{}, err
	}
	if query.Criteria.MaxScore, err = optionalFloat("max_score", q.MaxScore); err != nil {
		return evaluation.Query{}, err
	}

	if by := strings.TrimSpace(q.SortBy); by != "" {
		query.Sort.By = evaluation.SortKey(by)
	}
	if order := strings.TrimSpace(q.SortOrder); order != "" {
		query.Sort.Order = evaluation.SortOrder(order)
	}
	return query, nil
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func optionalFloat(name, value string) (*float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", name, err)
	}
	return &parsed, nil
}

// EvaluationItem is one displayed evaluation card.
type EvaluationItem struct {
	ID                 uint                `json:"id"`
	CandidateID        string              `json:"candidate_id"`
	TaskID             uint                `json:"task_id"`
	SubmissionID       *uint               `json:"submission_id,omitempty"`
	Evaluator          string              `json:"evaluator"`
	PromptEvaluated    string              `json:"prompt_evaluated"`
	GeneratedCode      *string             `json:"generated_code,omitempty"`
	Notes              string              `json:"notes"`
	Criteria           []string            `json:"criteria,omitempty"`
	Scores             map[string]string   `json:"scores,omitempty"`
	OverallScore       *float64            `json:"overall_score"`
	ScoreBand          string              `json:"score_band,omitempty"`
	Status             string              `json:"status"`
	StatusLabel        string              `json:"status_label"`
	StatusCategory     evaluation.Category `json:"status_category"`
	Difficulty         *string             `json:"difficulty,omitempty"`
	DifficultyCategory evaluation.Category `json:"difficulty_category"`
	Language           *string             `json:"language,omitempty"`
	TaskDescription    *string             `json:"task_description,omitempty"`
	CreatedAt          string              `json:"created_at"`
	CreatedAtDisplay   string              `json:"created_at_display"`
}

// NewEvaluationItem renders a record, passing prose fields through clean.
// Generated code is kept verbatim.
func NewEvaluationItem(record promptcraft.Evaluation, clean func(string) string) EvaluationItem {
	item := EvaluationItem{
		ID:                 record.ID,
		CandidateID:        record.CandidateID,
		TaskID:             record.TaskID,
		SubmissionID:       record.SubmissionID,
		GeneratedCode:      record.GeneratedCodeEvaluated,
		Evaluator:          clean(record.EvaluatorName()),
		PromptEvaluated:    clean(record.PromptEvaluated),
		Notes:              clean(record.EvaluationNotes),
		Criteria:           record.Criteria(),
		Scores:             record.ScoreStrings(),
		OverallScore:       record.OverallScore,
		Status:             record.Status,
		StatusLabel:        evaluation.StatusLabel(record.Status),
		StatusCategory:     evaluation.StatusCategory(record.Status),
		Difficulty:         record.DifficultyLevel,
		DifficultyCategory: evaluation.DifficultyCategory(record.DifficultyLevel),
		Language:           record.ProgrammingLanguage,
		CreatedAt:          record.CreatedAt,
		CreatedAtDisplay:   evaluation.FormatDate(record.CreatedAt),
	}

	if record.OverallScore != nil {
		item.ScoreBand = string(evaluation.ScoreCategory(*record.OverallScore))
	}
	if record.TaskDescription != nil {
		description := clean(*record.TaskDescription)
		item.TaskDescription = &description
	}
	return item
}

// FetchState is the data/loading/error triple exposed to the page.
type FetchState struct {
	Status    fetch.Status `json:"status"`
	Loading   bool         `json:"loading"`
	HasData   bool         `json:"has_data"`
	Error     string       `json:"error,omitempty"`
	Stale     bool         `json:"stale"`
	UpdatedAt *time.Time   `json:"updated_at,omitempty"`
}

// NewFetchState drops the data from a resource state.
func NewFetchState[T any](state fetch.State[T]) FetchState {
	out := FetchState{
		Status:  state.Status,
		Loading: state.Loading(),
		HasData: state.HasData,
		Error:   state.Error,
		Stale:   state.Stale,
	}
	if !state.UpdatedAt.IsZero() {
		updated := state.UpdatedAt
		out.UpdatedAt = &updated
	}
	return out
}

// EvaluationView is the composed evaluations page: the displayed list plus
// statistics over the full fetched set.
type EvaluationView struct {
	Items         []EvaluationItem    `json:"items"`
	Stats         evaluation.Stats    `json:"stats"`
	Total         int                 `json:"total"`
	FilteredCount int                 `json:"filtered_count"`
	Filters       evaluation.Criteria `json:"filters"`
	Sorting       evaluation.SortSpec `json:"sorting"`
	Options       evaluation.Options  `json:"options"`
	State         FetchState          `json:"state"`
}

// StreamMessage is pushed to websocket followers of the evaluations view.
type StreamMessage struct {
	Type  string          `json:"type"`
	View  *EvaluationView `json:"view,omitempty"`
	Error string          `json:"error,omitempty"`
}
