package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promptcraft-portal/internal/dto"
	"github.com/noah-isme/promptcraft-portal/internal/session"
	"github.com/noah-isme/promptcraft-portal/pkg/promptcraft"
)

// LeaderboardService reads rankings.
type LeaderboardService interface {
	List(ctx context.Context, sess *session.Session, query dto.LeaderboardQuery) (dto.LeaderboardView, error)
	UserStats(ctx context.Context, sess *session.Session, userID uint) (promptcraft.UserStats, error)
	MyStats(ctx context.Context, sess *session.Session) (promptcraft.UserStats, error)
}

type leaderboardService struct {
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewLeaderboardService constructs the service.
func NewLeaderboardService(validate *validator.Validate, logger zerolog.Logger) LeaderboardService {
	return &leaderboardService{
		validator: validate,
		logger:    logger.With().Str("component", "leaderboard_service").Logger(),
	}
}

func (s *leaderboardService) List(ctx context.Context, sess *session.Session, query dto.LeaderboardQuery) (dto.LeaderboardView, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.LeaderboardView{}, err
	}
	params := query.ToParams()

	board, err := sess.Client().Leaderboard(ctx, params)
	if err != nil {
		return dto.LeaderboardView{}, err
	}

	var currentUserID uint
	if user, ok := sess.User(); ok {
		currentUserID = user.ID
	}
	return dto.NewLeaderboardView(board, params.Period, currentUserID), nil
}

func (s *leaderboardService) UserStats(ctx context.Context, sess *session.Session, userID uint) (promptcraft.UserStats, error) {
	return sess.Client().UserStats(ctx, userID)
}

func (s *leaderboardService) MyStats(ctx context.Context, sess *session.Session) (promptcraft.UserStats, error) {
	return sess.Client().MyStats(ctx)
}
