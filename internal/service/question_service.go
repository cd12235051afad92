package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promptcraft-portal/internal/observability"
	"github.com/noah-isme/promptcraft-portal/internal/session"
	"github.com/noah-isme/promptcraft-portal/pkg/promptcraft"
)

const questionCacheKey = "promptcraft:questions:list"

// QuestionListResult wraps the question bank with cache metadata.
type QuestionListResult struct {
	Items    []promptcraft.Question `json:"items"`
	CacheHit bool                   `json:"-"`
}

// QuestionService reads the question bank. The list is shared by every
// user, so it is cached in Redis.
type QuestionService interface {
	List(ctx context.Context, sess *session.Session) (QuestionListResult, error)
	Get(ctx context.Context, sess *session.Session, id uint) (promptcraft.QuestionDetail, error)
	Invalidate(ctx context.Context) error
}

type questionService struct {
	cache  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewQuestionService constructs the service. cache may be nil.
func NewQuestionService(cache *redis.Client, ttl time.Duration, logger zerolog.Logger) QuestionService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &questionService{
		cache:  cache,
		ttl:    ttl,
		logger: logger.With().Str("component", "question_service").Logger(),
	}
}

func (s *questionService) List(ctx context.Context, sess *session.Session) (QuestionListResult, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, questionCacheKey).Bytes()
		switch {
		case err == nil:
			var items []promptcraft.Question
			if err := json.Unmarshal(cached, &items); err == nil {
				observability.QuestionCacheLookups().WithLabelValues("hit").Inc()
				return QuestionListResult{Items: items, CacheHit: true}, nil
			}
			s.logger.Warn().Msg("discarding undecodable question cache entry")
		case !errors.Is(err, redis.Nil):
			s.logger.Warn().Err(err).Msg("question cache read failed")
		}
		observability.QuestionCacheLookups().WithLabelValues("miss").Inc()
	}

	items, err := sess.Client().ListQuestions(ctx)
	if err != nil {
		return QuestionListResult{}, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(items); err == nil {
			if err := s.cache.Set(ctx, questionCacheKey, payload, s.ttl).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("question cache write failed")
			}
		}
	}

	return QuestionListResult{Items: items}, nil
}

func (s *questionService) Get(ctx context.Context, sess *session.Session, id uint) (promptcraft.QuestionDetail, error) {
	return sess.Client().GetQuestion(ctx, id)
}

func (s *questionService) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, questionCacheKey).Err()
}
