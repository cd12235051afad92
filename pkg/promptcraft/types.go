package promptcraft

import (
	"encoding/json"
	"fmt"
	"strings"
)

// User is the authenticated account profile returned by /auth/users/me.
type User struct {
	ID                   uint    `json:"id"`
	Email                string  `json:"email"`
	Username             string  `json:"username"`
	FullName             *string `json:"full_name,omitempty"`
	IsActive             bool    `json:"is_active"`
	IsVerified           bool    `json:"is_verified"`
	CreatedAt            *string `json:"created_at,omitempty"`
	ProfilePhotoURL      *string `json:"profile_photo_url,omitempty"`
	ProfilePhotoIPFSHash *string `json:"profile_photo_ipfs_hash,omitempty"`
}

// DisplayName prefers the full name and falls back to the username.
func (u User) DisplayName() string {
	if u.FullName != nil && strings.TrimSpace(*u.FullName) != "" {
		return strings.TrimSpace(*u.FullName)
	}
	return u.Username
}

// Token is the credential pair issued by /auth/login.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// RegisterRequest creates a new platform account.
type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Username string  `json:"username" validate:"required,min=3,max=50"`
	Password string  `json:"password" validate:"required,min=8"`
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=100"`
}

// Message is the generic `{message}` acknowledgement payload.
type Message struct {
	Message string `json:"message"`
}

// Question is a challenge in the question bank.
type Question struct {
	ID          uint   `json:"id"`
	Description string `json:"description"`
}

// QuestionDetail extends Question with grading metadata.
type QuestionDetail struct {
	Question
	ExpectedOutcome     *string  `json:"expected_outcome,omitempty"`
	EvaluationCriteria  []string `json:"evaluation_criteria"`
	ProgrammingLanguage *string  `json:"programming_language,omitempty"`
	DifficultyLevel     *string  `json:"difficulty_level,omitempty"`
}

// SubmissionRequest submits a prompt against a question.
type SubmissionRequest struct {
	TaskID uint   `json:"task_id" validate:"required,gt=0"`
	Prompt string `json:"prompt" validate:"required,min=1,max=10000"`
}

// SubmissionResponse carries the code generated for a submitted prompt.
type SubmissionResponse struct {
	SubmissionID      uint   `json:"submission_id"`
	GeneratedCode     string `json:"generated_code"`
	Message           string `json:"message"`
	SubmittedByUserID uint   `json:"submitted_by_user_id"`
}

// SubmissionHistoryItem is a single past submission.
type SubmissionHistoryItem struct {
	ID                  uint   `json:"id"`
	QuestionID          uint   `json:"question_id"`
	QuestionDescription string `json:"question_description"`
	Prompt              string `json:"prompt"`
	GeneratedCode       string `json:"generated_code"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
}

// SubmissionHistory is a page of the caller's submissions.
type SubmissionHistory struct {
	Submissions []SubmissionHistoryItem `json:"submissions"`
	TotalCount  int                     `json:"total_count"`
	Page        int                     `json:"page"`
	Limit       int                     `json:"limit"`
}

// Evaluation is an expert evaluation of a candidate's prompt. Optional
// fields are pointers so absence stays distinguishable from zero values.
type Evaluation struct {
	ID                     uint                       `json:"id"`
	CandidateID            string                     `json:"candidate_id"`
	TaskID                 uint                       `json:"task_id"`
	SubmissionID           *uint                      `json:"submission_id,omitempty"`
	EvaluatorUserID        uint                       `json:"evaluator_user_id"`
	EvaluatorUsername      string                     `json:"evaluator_username"`
	EvaluatorFullName      *string                    `json:"evaluator_full_name,omitempty"`
	PromptEvaluated        string                     `json:"prompt_evaluated"`
	GeneratedCodeEvaluated *string                    `json:"generated_code_evaluated,omitempty"`
	EvaluationNotes        string                     `json:"evaluation_notes"`
	CriteriaUsed           json.RawMessage            `json:"evaluation_criteria_used,omitempty"`
	Scores                 map[string]json.RawMessage `json:"scores,omitempty"`
	OverallScore           *float64                   `json:"overall_score,omitempty"`
	Status                 string                     `json:"status"`
	CreatedAt              string                     `json:"created_at"`
	UpdatedAt              string                     `json:"updated_at"`
	TaskDescription        *string                    `json:"task_description,omitempty"`
	ProgrammingLanguage    *string                    `json:"programming_language,omitempty"`
	DifficultyLevel        *string                    `json:"difficulty_level,omitempty"`
}

// EvaluatorName prefers the evaluator's full name.
func (e Evaluation) EvaluatorName() string {
	if e.EvaluatorFullName != nil && strings.TrimSpace(*e.EvaluatorFullName) != "" {
		return *e.EvaluatorFullName
	}
	return e.EvaluatorUsername
}

// ScoreStrings renders each sub-metric value the way it is displayed.
func (e Evaluation) ScoreStrings() map[string]string {
	if len(e.Scores) == 0 {
		return nil
	}
	out := make(map[string]string, len(e.Scores))
	for name, raw := range e.Scores {
		out[name] = rawDisplay(raw)
	}
	return out
}

// Criteria returns the evaluation criteria list when the backend sent one.
func (e Evaluation) Criteria() []string {
	if len(e.CriteriaUsed) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(e.CriteriaUsed, &list); err != nil {
		return nil
	}
	return list
}

func rawDisplay(raw json.RawMessage) string {
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return string(raw)
	}
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case float64, bool:
		return fmt.Sprint(v)
	default:
		return string(raw)
	}
}

// EvaluationRequest records an evaluation for a candidate's task.
type EvaluationRequest struct {
	TaskID                 uint                   `json:"task_id" validate:"required,gt=0"`
	SubmissionID           *uint                  `json:"submission_id,omitempty"`
	PromptEvaluated        string                 `json:"prompt_evaluated" validate:"required"`
	GeneratedCodeEvaluated *string                `json:"generated_code_evaluated,omitempty"`
	EvaluationNotes        string                 `json:"evaluation_notes" validate:"required"`
	Scores                 map[string]interface{} `json:"scores,omitempty"`
	OverallScore           *float64               `json:"overall_score,omitempty" validate:"omitempty,gte=0,lte=10"`
}

// EvaluationResponse acknowledges a created evaluation.
type EvaluationResponse struct {
	EvaluationID    uint   `json:"evaluation_id"`
	Message         string `json:"message"`
	EvaluatorUserID uint   `json:"evaluator_user_id"`
}

// LeaderboardParams selects a leaderboard page.
type LeaderboardParams struct {
	Limit  int
	Offset int
	Period string
}

// LeaderboardEntry is one ranked user.
type LeaderboardEntry struct {
	UserID             uint    `json:"user_id"`
	Username           string  `json:"username"`
	FullName           *string `json:"full_name,omitempty"`
	ProfilePhotoURL    *string `json:"profile_photo_url,omitempty"`
	Rank               int     `json:"rank"`
	Score              float64 `json:"score"`
	TotalSubmissions   int     `json:"total_submissions"`
	CompletedQuestions int     `json:"completed_questions"`
	AvgScore           float64 `json:"avg_score"`
	RecentActivity     *string `json:"recent_activity,omitempty"`
	Badge              *string `json:"badge,omitempty"`
}

// Leaderboard is a ranking page plus the caller's own position.
type Leaderboard struct {
	Entries          []LeaderboardEntry `json:"entries"`
	TotalUsers       int                `json:"total_users"`
	CurrentUserRank  *int               `json:"current_user_rank,omitempty"`
	CurrentUserEntry *LeaderboardEntry  `json:"current_user_entry,omitempty"`
}

// UserStats summarises a single user's activity.
type UserStats struct {
	UserID             uint    `json:"user_id"`
	Username           string  `json:"username"`
	TotalSubmissions   int     `json:"total_submissions"`
	CompletedQuestions int     `json:"completed_questions"`
	AvgScore           float64 `json:"avg_score"`
	BestScore          float64 `json:"best_score"`
	RecentSubmissions  int     `json:"recent_submissions"`
	StreakDays         int     `json:"streak_days"`
	Rank               int     `json:"rank"`
	Percentile         float64 `json:"percentile"`
}

// TimeSeriesPoint is one sample of an analytics series.
type TimeSeriesPoint struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
	Label     *string `json:"label,omitempty"`
}

// MetricSummary is a key metric with its trend against the previous period.
type MetricSummary struct {
	Name          string  `json:"name"`
	CurrentValue  float64 `json:"current_value"`
	PreviousValue float64 `json:"previous_value"`
	ChangePercent float64 `json:"change_percent"`
	Trend         string  `json:"trend"`
	Unit          string  `json:"unit"`
}

// UserEngagementMetrics are aggregated account activity counters.
type UserEngagementMetrics struct {
	TotalUsers       float64 `json:"total_users"`
	ActiveUsersToday float64 `json:"active_users_today"`
	ActiveUsersWeek  float64 `json:"active_users_week"`
	ActiveUsersMonth float64 `json:"active_users_month"`
	NewUsersToday    float64 `json:"new_users_today"`
	NewUsersWeek     float64 `json:"new_users_week"`
	NewUsersMonth    float64 `json:"new_users_month"`
	VerifiedUsers    float64 `json:"verified_users"`
	RetentionRate    float64 `json:"retention_rate"`
}

// SubmissionMetrics are aggregated submission counters.
type SubmissionMetrics struct {
	TotalSubmissions      float64 `json:"total_submissions"`
	SubmissionsToday      float64 `json:"submissions_today"`
	SubmissionsWeek       float64 `json:"submissions_week"`
	SubmissionsMonth      float64 `json:"submissions_month"`
	AvgSubmissionsPerUser float64 `json:"avg_submissions_per_user"`
	AvgCodeLength         float64 `json:"avg_code_length"`
	AvgPromptLength       float64 `json:"avg_prompt_length"`
	CompletionRate        float64 `json:"completion_rate"`
}

// QuestionMetrics describe question bank usage.
type QuestionMetrics struct {
	TotalQuestions            float64            `json:"total_questions"`
	QuestionsWithSubmissions  float64            `json:"questions_with_submissions"`
	AvgSubmissionsPerQuestion float64            `json:"avg_submissions_per_question"`
	MostPopularQuestionID     *uint              `json:"most_popular_question_id,omitempty"`
	MostPopularQuestionTitle  *string            `json:"most_popular_question_title,omitempty"`
	DifficultyDistribution    map[string]float64 `json:"difficulty_distribution"`
	LanguageDistribution      map[string]float64 `json:"language_distribution"`
}

// DashboardAnalytics is the server-computed analytics dashboard.
type DashboardAnalytics struct {
	UserEngagement    UserEngagementMetrics        `json:"user_engagement"`
	SubmissionMetrics SubmissionMetrics            `json:"submission_metrics"`
	QuestionMetrics   QuestionMetrics              `json:"question_metrics"`
	KeyMetrics        []MetricSummary              `json:"key_metrics"`
	TimeSeries        map[string][]TimeSeriesPoint `json:"time_series"`
}
