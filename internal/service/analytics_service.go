package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/promptcraft-portal/internal/dto"
	"github.com/noah-isme/promptcraft-portal/internal/session"
)

// AnalyticsService formats the server-computed dashboard for display.
type AnalyticsService interface {
	Dashboard(ctx context.Context, sess *session.Session) (dto.DashboardView, error)
}

type analyticsService struct {
	logger zerolog.Logger
}

// NewAnalyticsService constructs the service.
func NewAnalyticsService(logger zerolog.Logger) AnalyticsService {
	return &analyticsService{logger: logger.With().Str("component", "analytics_service").Logger()}
}

func (s *analyticsService) Dashboard(ctx context.Context, sess *session.Session) (dto.DashboardView, error) {
	analytics, err := sess.Client().AnalyticsDashboard(ctx)
	if err != nil {
		return dto.DashboardView{}, err
	}
	return dto.NewDashboardView(analytics), nil
}
