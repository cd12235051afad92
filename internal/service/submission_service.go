package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promptcraft-portal/internal/dto"
	"github.com/noah-isme/promptcraft-portal/internal/session"
	"github.com/noah-isme/promptcraft-portal/pkg/promptcraft"
)

// SubmissionService submits prompts and lists the caller's history.
type SubmissionService interface {
	Create(ctx context.Context, sess *session.Session, req dto.SubmissionCreateRequest) (promptcraft.SubmissionResponse, error)
	List(ctx context.Context, sess *session.Session, query dto.SubmissionListQuery) (dto.SubmissionHistoryResponse, error)
	Get(ctx context.Context, sess *session.Session, id uint) (promptcraft.SubmissionHistoryItem, error)
}

type submissionService struct {
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewSubmissionService constructs the service.
func NewSubmissionService(validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		validator: validate,
		logger:    logger.With().Str("component", "submission_service").Logger(),
	}
}

func (s *submissionService) Create(ctx context.Context, sess *session.Session, req dto.SubmissionCreateRequest) (promptcraft.SubmissionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return promptcraft.SubmissionResponse{}, err
	}

	response, err := sess.Client().CreateSubmission(ctx, req.ToUpstream())
	if err != nil {
		return promptcraft.SubmissionResponse{}, err
	}

	s.logger.Info().Uint("task_id", req.TaskID).Uint("submission_id", response.SubmissionID).Msg("prompt submitted")
	return response, nil
}

func (s *submissionService) List(ctx context.Context, sess *session.Session, query dto.SubmissionListQuery) (dto.SubmissionHistoryResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.SubmissionHistoryResponse{}, err
	}
	query = query.Normalize()

	history, err := sess.Client().ListMySubmissions(ctx, query.Page, query.Limit)
	if err != nil {
		return dto.SubmissionHistoryResponse{}, err
	}
	if history.Page == 0 {
		history.Page = query.Page
	}
	if history.Limit == 0 {
		history.Limit = query.Limit
	}
	return dto.NewSubmissionHistoryResponse(history), nil
}

func (s *submissionService) Get(ctx context.Context, sess *session.Session, id uint) (promptcraft.SubmissionHistoryItem, error) {
	return sess.Client().GetSubmission(ctx, id)
}
