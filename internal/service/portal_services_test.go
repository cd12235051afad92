package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/promptcraft-portal/internal/dto"
	"github.com/noah-isme/promptcraft-portal/internal/session"
	"github.com/noah-isme/promptcraft-portal/pkg/promptcraft"
)

func TestAuthServiceLoginIssuesPortalToken(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.manager, f.validate, zerolog.Nop())
	ctx := context.Background()

	resp, err := svc.Login(ctx, dto.LoginRequest{Username: "ada", Password: "s3cret"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	require.Equal(t, "bearer", resp.TokenType)
	require.True(t, resp.ExpiresAt.After(time.Now()))
	require.Equal(t, testCandidate, resp.User.CandidateID)
	require.Equal(t, "ada", resp.User.DisplayName)

	claims, err := f.manager.ParseToken(resp.Token)
	require.NoError(t, err)
	sess, err := f.manager.Open(ctx, claims.SessionID)
	require.NoError(t, err)

	me, err := svc.Me(sess)
	require.NoError(t, err)
	require.Equal(t, uint(7), me.ID)

	require.NoError(t, svc.Logout(ctx, sess))
	_, err = svc.Me(sess)
	require.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestAuthServiceLoginValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewAuthService(f.manager, f.validate, zerolog.Nop())

	_, err := svc.Login(context.Background(), dto.LoginRequest{Password: "s3cret"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Username: "ada", Password: "nope"})
	require.True(t, promptcraft.IsUnauthorized(err))
}

func TestQuestionServiceCachesList(t *testing.T) {
	f := newFixture(t)
	svc := NewQuestionService(f.redis, time.Minute, zerolog.Nop())
	sess := f.login(t)
	ctx := context.Background()

	first, err := svc.List(ctx, sess)
	require.NoError(t, err)
	require.False(t, first.CacheHit)
	require.Len(t, first.Items, 2)

	second, err := svc.List(ctx, sess)
	require.NoError(t, err)
	require.True(t, second.CacheHit)
	require.Equal(t, first.Items, second.Items)

	_, questionCalls := f.backend.calls()
	require.Equal(t, 1, questionCalls)

	require.NoError(t, svc.Invalidate(ctx))
	third, err := svc.List(ctx, sess)
	require.NoError(t, err)
	require.False(t, third.CacheHit)

	_, questionCalls = f.backend.calls()
	require.Equal(t, 2, questionCalls)

	f.mini.FastForward(2 * time.Minute)
	require.False(t, f.mini.Exists(questionCacheKey))
}

func TestQuestionServiceWithoutCache(t *testing.T) {
	f := newFixture(t)
	svc := NewQuestionService(nil, 0, zerolog.Nop())
	sess := f.login(t)

	for i := 0; i < 2; i++ {
		result, err := svc.List(context.Background(), sess)
		require.NoError(t, err)
		require.False(t, result.CacheHit)
	}
	_, questionCalls := f.backend.calls()
	require.Equal(t, 2, questionCalls)
	require.NoError(t, svc.Invalidate(context.Background()))
}

func TestSubmissionServiceValidates(t *testing.T) {
	f := newFixture(t)
	svc := NewSubmissionService(f.validate, zerolog.Nop())

	_, err := svc.Create(context.Background(), f.login(t), dto.SubmissionCreateRequest{})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
}

func TestLeaderboardServiceMarksCurrentUser(t *testing.T) {
	f := newFixture(t)
	rank := 2
	f.backend.leaderboard = promptcraft.Leaderboard{
		Entries: []promptcraft.LeaderboardEntry{
			{UserID: 3, Username: "grace", FullName: strPtr("Grace Hopper"), Rank: 1, Score: 97},
			{UserID: 7, Username: "ada", Rank: 2, Score: 90},
		},
		TotalUsers:      2,
		CurrentUserRank: &rank,
	}
	svc := NewLeaderboardService(f.validate, zerolog.Nop())

	view, err := svc.List(context.Background(), f.login(t), dto.LeaderboardQuery{})
	require.NoError(t, err)
	require.Equal(t, "all_time", view.Period)
	require.Len(t, view.Entries, 2)
	require.Equal(t, "Grace Hopper", view.Entries[0].DisplayName)
	require.False(t, view.Entries[0].IsCurrentUser)
	require.True(t, view.Entries[1].IsCurrentUser)
	require.Equal(t, 2, *view.CurrentUserRank)

	_, err = svc.List(context.Background(), f.login(t), dto.LeaderboardQuery{Period: "daily"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
}

func TestAnalyticsServiceFormatsDashboard(t *testing.T) {
	f := newFixture(t)
	f.backend.dashboard = promptcraft.DashboardAnalytics{
		UserEngagement:    promptcraft.UserEngagementMetrics{TotalUsers: 1500, RetentionRate: 42.5},
		SubmissionMetrics: promptcraft.SubmissionMetrics{TotalSubmissions: 2500000},
		QuestionMetrics: promptcraft.QuestionMetrics{
			DifficultyDistribution: map[string]float64{"easy": 3, "hard": 1},
		},
		KeyMetrics: []promptcraft.MetricSummary{
			{Name: "Active users", CurrentValue: 120, PreviousValue: 100, ChangePercent: 20, Trend: "up"},
		},
	}
	svc := NewAnalyticsService(zerolog.Nop())

	view, err := svc.Dashboard(context.Background(), f.login(t))
	require.NoError(t, err)
	require.Equal(t, "1.5K", view.Summary.TotalUsers)
	require.Equal(t, "2.5M", view.Summary.TotalSubmissions)
	require.Equal(t, "42.50%", view.Summary.RetentionRate)
	require.Len(t, view.KeyMetrics, 1)
	require.False(t, view.DifficultyDistribution.Empty)
	require.Len(t, view.DifficultyDistribution.Shares, 2)
	require.True(t, view.LanguageDistribution.Empty)
}
