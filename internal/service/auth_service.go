package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promptcraft-portal/internal/dto"
	"github.com/noah-isme/promptcraft-portal/internal/session"
	"github.com/noah-isme/promptcraft-portal/pkg/promptcraft"
)

// AuthService fronts the session lifecycle for the HTTP layer.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error)
	Logout(ctx context.Context, sess *session.Session) error
	Me(sess *session.Session) (dto.UserResponse, error)
	Refresh(ctx context.Context, sess *session.Session) (dto.UserResponse, error)
	Register(ctx context.Context, req dto.RegisterRequest) (dto.UserResponse, error)
	RequestEmailVerification(ctx context.Context, req dto.EmailVerificationRequest) (promptcraft.Message, error)
	VerifyEmail(ctx context.Context, req dto.VerifyEmailRequest) (promptcraft.Message, error)
}

type authService struct {
	sessions  *session.Manager
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAuthService constructs the auth service.
func NewAuthService(sessions *session.Manager, validate *validator.Validate, logger zerolog.Logger) AuthService {
	return &authService{
		sessions:  sessions,
		validator: validate,
		logger:    logger.With().Str("component", "auth_service").Logger(),
	}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AuthResponse{}, err
	}

	sess, err := s.sessions.Login(ctx, req.Username, req.Password)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	token, expires, err := s.sessions.IssueToken(sess)
	if err != nil {
		_ = sess.Logout(context.WithoutCancel(ctx))
		return dto.AuthResponse{}, err
	}

	user, err := s.Me(sess)
	if err != nil {
		return dto.AuthResponse{}, err
	}

	return dto.AuthResponse{
		Token:     token,
		TokenType: "bearer",
		ExpiresAt: expires,
		User:      user,
	}, nil
}

func (s *authService) Logout(ctx context.Context, sess *session.Session) error {
	return sess.Logout(ctx)
}

func (s *authService) Me(sess *session.Session) (dto.UserResponse, error) {
	user, ok := sess.User()
	if !ok {
		return dto.UserResponse{}, session.ErrNotAuthenticated
	}
	return dto.NewUserResponse(user, session.CandidateID(user)), nil
}

func (s *authService) Refresh(ctx context.Context, sess *session.Session) (dto.UserResponse, error) {
	user, err := sess.Refresh(ctx)
	if err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user, session.CandidateID(user)), nil
}

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	user, err := s.sessions.Client().Register(ctx, req.ToUpstream())
	if err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Msg("account registered")
	return dto.NewUserResponse(user, session.CandidateID(user)), nil
}

func (s *authService) RequestEmailVerification(ctx context.Context, req dto.EmailVerificationRequest) (promptcraft.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return promptcraft.Message{}, err
	}
	return s.sessions.Client().RequestEmailVerification(ctx, req.Email)
}

func (s *authService) VerifyEmail(ctx context.Context, req dto.VerifyEmailRequest) (promptcraft.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return promptcraft.Message{}, err
	}
	return s.sessions.Client().VerifyEmail(ctx, req.Token)
}
