package promptcraft

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Login exchanges credentials for tokens. The backend expects an OAuth2
// password form, not JSON.
func (c *Client) Login(ctx context.Context, username, password string) (Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var token Token
	err := c.do(ctx, call{
		endpoint:    "auth.login",
		method:      http.MethodPost,
		path:        "/auth/login",
		body:        []byte(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
		anonymous:   true,
	}, &token)
	return token, err
}

// Register creates an account. It does not log the user in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (User, error) {
	cl, err := jsonCall("auth.register", http.MethodPost, "/auth/register", req)
	if err != nil {
		return User{}, err
	}
	cl.anonymous = true

	var user User
	err = c.do(ctx, cl, &user)
	return user, err
}

// CurrentUser returns the profile bound to the active credentials.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var user User
	err := c.do(ctx, call{endpoint: "auth.me", method: http.MethodGet, path: "/auth/users/me"}, &user)
	return user, err
}

// RequestEmailVerification asks the backend to send a verification email.
func (c *Client) RequestEmailVerification(ctx context.Context, email string) (Message, error) {
	cl, err := jsonCall("auth.request_verification", http.MethodPost, "/auth/request-email-verification", map[string]string{"email": email})
	if err != nil {
		return Message{}, err
	}
	cl.anonymous = true

	var msg Message
	err = c.do(ctx, cl, &msg)
	return msg, err
}

// VerifyEmail confirms an email address with the emailed token.
func (c *Client) VerifyEmail(ctx context.Context, token string) (Message, error) {
	cl, err := jsonCall("auth.verify_email", http.MethodPost, "/auth/verify-email", map[string]string{"token": token})
	if err != nil {
		return Message{}, err
	}
	cl.anonymous = true

	var msg Message
	err = c.do(ctx, cl, &msg)
	return msg, err
}

// ListQuestions returns the question bank.
func (c *Client) ListQuestions(ctx context.Context) ([]Question, error) {
	questions := make([]Question, 0)
	err := c.do(ctx, call{endpoint: "questions.list", method: http.MethodGet, path: "/questions"}, &questions)
	return questions, err
}

// GetQuestion returns a single question with its grading metadata.
func (c *Client) GetQuestion(ctx context.Context, id uint) (QuestionDetail, error) {
	var question QuestionDetail
	err := c.do(ctx, call{
		endpoint: "questions.get",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/questions/%d", id),
	}, &question)
	return question, err
}

// CreateSubmission submits a prompt and returns the generated code.
func (c *Client) CreateSubmission(ctx context.Context, req SubmissionRequest) (SubmissionResponse, error) {
	cl, err := jsonCall("submissions.create", http.MethodPost, "/submissions", req)
	if err != nil {
		return SubmissionResponse{}, err
	}

	var response SubmissionResponse
	err = c.do(ctx, cl, &response)
	return response, err
}

// ListMySubmissions pages through the caller's submission history.
func (c *Client) ListMySubmissions(ctx context.Context, page, limit int) (SubmissionHistory, error) {
	query := url.Values{}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var history SubmissionHistory
	err := c.do(ctx, call{endpoint: "submissions.mine", method: http.MethodGet, path: "/submissions/my", query: query}, &history)
	return history, err
}

// GetSubmission returns one of the caller's submissions.
func (c *Client) GetSubmission(ctx context.Context, id uint) (SubmissionHistoryItem, error) {
	var item SubmissionHistoryItem
	err := c.do(ctx, call{
		endpoint: "submissions.get",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/submissions/%d", id),
	}, &item)
	return item, err
}

// ListEvaluations fetches every evaluation recorded for a candidate. The
// backend neither filters nor sorts; the full set is returned.
func (c *Client) ListEvaluations(ctx context.Context, candidateID string) ([]Evaluation, error) {
	evaluations := make([]Evaluation, 0)
	err := c.do(ctx, call{
		endpoint: "evaluations.list",
		method:   http.MethodGet,
		path:     "/evaluations/candidate/" + url.PathEscape(candidateID),
		schema:   evaluationsSchema,
	}, &evaluations)
	return evaluations, err
}

// CreateEvaluation records an evaluation of a candidate's task.
func (c *Client) CreateEvaluation(ctx context.Context, candidateID string, taskID uint, req EvaluationRequest) (EvaluationResponse, error) {
	path := fmt.Sprintf("/evaluations/candidate/%s/task/%d", url.PathEscape(candidateID), taskID)
	cl, err := jsonCall("evaluations.create", http.MethodPost, path, req)
	if err != nil {
		return EvaluationResponse{}, err
	}

	var response EvaluationResponse
	err = c.do(ctx, cl, &response)
	return response, err
}

// Leaderboard returns a page of the ranking.
func (c *Client) Leaderboard(ctx context.Context, params LeaderboardParams) (Leaderboard, error) {
	query := url.Values{}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Offset > 0 {
		query.Set("offset", strconv.Itoa(params.Offset))
	}
	if params.Period != "" {
		query.Set("period", params.Period)
	}

	var board Leaderboard
	err := c.do(ctx, call{endpoint: "leaderboard.list", method: http.MethodGet, path: "/leaderboard/", query: query}, &board)
	return board, err
}

// UserStats returns ranking statistics for a user.
func (c *Client) UserStats(ctx context.Context, userID uint) (UserStats, error) {
	var stats UserStats
	err := c.do(ctx, call{
		endpoint: "leaderboard.stats",
		method:   http.MethodGet,
		path:     fmt.Sprintf("/leaderboard/stats/%d", userID),
	}, &stats)
	return stats, err
}

// MyStats returns ranking statistics for the caller.
func (c *Client) MyStats(ctx context.Context) (UserStats, error) {
	var stats UserStats
	err := c.do(ctx, call{endpoint: "leaderboard.my_stats", method: http.MethodGet, path: "/leaderboard/my-stats"}, &stats)
	return stats, err
}

// AnalyticsDashboard returns the server-aggregated analytics dashboard.
func (c *Client) AnalyticsDashboard(ctx context.Context) (DashboardAnalytics, error) {
	var dashboard DashboardAnalytics
	err := c.do(ctx, call{endpoint: "analytics.dashboard", method: http.MethodGet, path: "/analytics/dashboard"}, &dashboard)
	return dashboard, err
}
