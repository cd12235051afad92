package service

import (
	"context"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/promptcraft-portal/internal/dto"
	"github.com/noah-isme/promptcraft-portal/internal/evaluation"
	"github.com/noah-isme/promptcraft-portal/internal/fetch"
	"github.com/noah-isme/promptcraft-portal/internal/repository"
	"github.com/noah-isme/promptcraft-portal/internal/session"
	"github.com/noah-isme/promptcraft-portal/pkg/promptcraft"
)

const evaluationFetchFallback = "Failed to fetch evaluations"

const viewBufferSize = 4

// EvaluationService composes the evaluations page for a session. Each
// session owns one fetch resource; filtering and sorting re-derive from the
// resource's in-memory list without another upstream call.
type EvaluationService interface {
	View(ctx context.Context, sess *session.Session, query evaluation.Query) (dto.EvaluationView, error)
	Refresh(ctx context.Context, sess *session.Session, query evaluation.Query) (dto.EvaluationView, error)
	Subscribe(ctx context.Context, sess *session.Session, query evaluation.Query) (<-chan dto.EvaluationView, func(), error)
	Record(ctx context.Context, sess *session.Session, candidateID string, req promptcraft.EvaluationRequest) (promptcraft.EvaluationResponse, error)
	Release(sessionID string)
	Start(ctx context.Context)
}

type evaluationRecords = []promptcraft.Evaluation

type evaluationEntry struct {
	session  *session.Session
	resource *fetch.Resource[evaluationRecords]

	mu      sync.Mutex
	head    *promptcraft.Evaluation
	size    int
	derived bool
	stats   evaluation.Stats
	options evaluation.Options
}

type evaluationService struct {
	validator *validator.Validate
	snapshots repository.SnapshotRepository
	events    EvaluationEvents
	logger    zerolog.Logger
	tracer    trace.Tracer
	sanitizer *bluemonday.Policy

	mu      sync.Mutex
	entries map[string]*evaluationEntry
}

// NewEvaluationService builds the service. snapshots and events may be nil.
func NewEvaluationService(validate *validator.Validate, snapshots repository.SnapshotRepository, events EvaluationEvents, logger zerolog.Logger) EvaluationService {
	return &evaluationService{
		validator: validate,
		snapshots: snapshots,
		events:    events,
		logger:    logger.With().Str("component", "evaluation_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/promptcraft-portal/internal/service"),
		sanitizer: bluemonday.StrictPolicy(),
		entries:   make(map[string]*evaluationEntry),
	}
}

// Start follows refresh events from other nodes and refetches matching
// local resources so their followers see the new list.
func (s *evaluationService) Start(ctx context.Context) {
	if s.events == nil {
		return
	}
	s.events.Start(ctx)

	updates, cancel := s.events.Subscribe()
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-updates:
				if !ok {
					return
				}
				s.refetchCandidate(ctx, event.CandidateID)
			}
		}
	}()
}

func (s *evaluationService) View(ctx context.Context, sess *session.Session, query evaluation.Query) (dto.EvaluationView, error) {
	ctx, span := s.tracer.Start(ctx, "evaluations.view")
	defer span.End()
	annotate(span, sess)

	entry, created := s.entryFor(ctx, sess)
	if created || entry.resource.State().Status == fetch.StatusIdle {
		if _, err := entry.resource.Load(ctx); err != nil {
			if viewErr := s.loadError(err); viewErr != nil {
				return dto.EvaluationView{}, viewErr
			}
		}
	}

	return s.compose(entry, entry.resource.State(), query), nil
}

func (s *evaluationService) Refresh(ctx context.Context, sess *session.Session, query evaluation.Query) (dto.EvaluationView, error) {
	ctx, span := s.tracer.Start(ctx, "evaluations.refresh")
	defer span.End()
	annotate(span, sess)

	entry, _ := s.entryFor(ctx, sess)
	if _, err := entry.resource.Refetch(ctx); err != nil {
		span.RecordError(err)
		if viewErr := s.loadError(err); viewErr != nil {
			return dto.EvaluationView{}, viewErr
		}
	}

	return s.compose(entry, entry.resource.State(), query), nil
}

func (s *evaluationService) Subscribe(ctx context.Context, sess *session.Session, query evaluation.Query) (<-chan dto.EvaluationView, func(), error) {
	if _, ok := sess.CandidateID(); !ok {
		return nil, nil, session.ErrNotAuthenticated
	}

	entry, created := s.entryFor(ctx, sess)
	states, cancelStates := entry.resource.Subscribe()
	if created {
		go func() {
			if _, err := entry.resource.Load(context.WithoutCancel(ctx)); err != nil {
				s.logger.Debug().Err(err).Msg("initial stream fetch failed")
			}
		}()
	}

	views := make(chan dto.EvaluationView, viewBufferSize)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			cancelStates()
		})
	}

	go func() {
		defer close(views)
		for {
			select {
			case <-done:
				return
			case state, ok := <-states:
				if !ok {
					return
				}
				select {
				case views <- s.compose(entry, state, query):
				case <-done:
					return
				}
			}
		}
	}()

	return views, cancel, nil
}

// Record submits an evaluator's assessment of a candidate's task. Local
// views of that candidate refetch, and other nodes are told to. Record is
// the only publisher: refetches caused by a relayed event never publish.
func (s *evaluationService) Record(ctx context.Context, sess *session.Session, candidateID string, req promptcraft.EvaluationRequest) (promptcraft.EvaluationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return promptcraft.EvaluationResponse{}, err
	}

	response, err := sess.Client().CreateEvaluation(ctx, candidateID, req.TaskID, req)
	if err != nil {
		return promptcraft.EvaluationResponse{}, err
	}

	s.logger.Info().
		Str("candidate_id", candidateID).
		Uint("task_id", req.TaskID).
		Uint("evaluation_id", response.EvaluationID).
		Msg("evaluation recorded")

	s.refetchCandidate(context.WithoutCancel(ctx), candidateID)
	if s.events != nil {
		if err := s.events.Publish(ctx, candidateID, 0); err != nil {
			s.logger.Warn().Err(err).Str("candidate_id", candidateID).Msg("failed to publish refresh event")
		}
	}
	return response, nil
}

// Release drops the session's resource and ends its streams.
func (s *evaluationService) Release(sessionID string) {
	s.mu.Lock()
	entry, ok := s.entries[sessionID]
	delete(s.entries, sessionID)
	s.mu.Unlock()

	if ok {
		entry.resource.Close()
		s.logger.Debug().Str("session_id", sessionID).Msg("released evaluation resource")
	}
}

func (s *evaluationService) entryFor(ctx context.Context, sess *session.Session) (*evaluationEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.entries[sess.ID()]; ok && entry.session == sess {
		return entry, false
	} else if ok {
		entry.resource.Close()
	}

	entry := &evaluationEntry{session: sess}
	entry.resource = fetch.New(fetch.Options[evaluationRecords]{
		Name:     "evaluations",
		Identity: sess.CandidateID,
		Fetch: func(ctx context.Context, candidateID string) (evaluationRecords, error) {
			records, err := sess.Client().ListEvaluations(ctx, candidateID)
			if err != nil {
				return nil, err
			}
			if records == nil {
				records = evaluationRecords{}
			}
			return records, nil
		},
		ErrorMessage: func(err error) string {
			return promptcraft.ErrorMessage(err, evaluationFetchFallback)
		},
		OnSuccess: s.afterFetch,
		Logger:    s.logger,
	})

	s.seed(ctx, sess, entry.resource)
	s.entries[sess.ID()] = entry
	return entry, true
}

func (s *evaluationService) seed(ctx context.Context, sess *session.Session, resource *fetch.Resource[evaluationRecords]) {
	if s.snapshots == nil {
		return
	}
	candidateID, ok := sess.CandidateID()
	if !ok {
		return
	}

	records, _, err := s.snapshots.Load(ctx, candidateID)
	if err != nil {
		if !errors.Is(err, repository.ErrSnapshotNotFound) {
			s.logger.Warn().Err(err).Str("candidate_id", candidateID).Msg("failed to load evaluation snapshot")
		}
		return
	}
	resource.Seed(records)
}

func (s *evaluationService) afterFetch(ctx context.Context, candidateID string, records evaluationRecords) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Save(context.WithoutCancel(ctx), candidateID, records); err != nil {
		s.logger.Warn().Err(err).Str("candidate_id", candidateID).Msg("failed to persist evaluation snapshot")
	}
}

func (s *evaluationService) refetchCandidate(ctx context.Context, candidateID string) {
	s.mu.Lock()
	targets := make([]*evaluationEntry, 0)
	for _, entry := range s.entries {
		if key, ok := entry.session.CandidateID(); ok && key == candidateID {
			targets = append(targets, entry)
		}
	}
	s.mu.Unlock()

	for _, entry := range targets {
		go func(entry *evaluationEntry) {
			if _, err := entry.resource.Refetch(ctx); err != nil && !errors.Is(err, fetch.ErrSuperseded) {
				s.logger.Debug().Err(err).Str("candidate_id", candidateID).Msg("relayed refetch failed")
			}
		}(entry)
	}
}

// loadError decides whether a fetch failure aborts the view. Upstream
// failures are already captured in the resource state; only a rejected or
// missing identity is returned to the caller.
func (s *evaluationService) loadError(err error) error {
	switch {
	case promptcraft.IsUnauthorized(err):
		return err
	case errors.Is(err, fetch.ErrNoIdentity), errors.Is(err, fetch.ErrClosed):
		return session.ErrNotAuthenticated
	default:
		return nil
	}
}

func (s *evaluationService) compose(entry *evaluationEntry, state fetch.State[evaluationRecords], query evaluation.Query) dto.EvaluationView {
	records := state.Data
	stats, options := entry.derive(records)

	displayed := evaluation.Sort(evaluation.Filter(records, query.Criteria), query.Sort)
	items := make([]dto.EvaluationItem, 0, len(displayed))
	for _, record := range displayed {
		items = append(items, dto.NewEvaluationItem(record, s.clean))
	}

	return dto.EvaluationView{
		Items:         items,
		Stats:         stats,
		Total:         len(records),
		FilteredCount: len(displayed),
		Filters:       query.Criteria,
		Sorting:       query.Sort,
		Options:       options,
		State:         dto.NewFetchState(state),
	}
}

// clean strips markup. The result stays entity-encoded so it is safe to
// render as HTML.
func (s *evaluationService) clean(value string) string {
	return s.sanitizer.Sanitize(value)
}

// derive recomputes statistics only when the full list itself changed,
// never on a filter or sort change.
func (e *evaluationEntry) derive(records evaluationRecords) (evaluation.Stats, evaluation.Options) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var head *promptcraft.Evaluation
	if len(records) > 0 {
		head = &records[0]
	}
	if e.derived && e.head == head && e.size == len(records) {
		return e.stats, e.options
	}

	e.stats = evaluation.ComputeStats(records)
	e.options = evaluation.AvailableOptions(records)
	e.head = head
	e.size = len(records)
	e.derived = true
	return e.stats, e.options
}

func annotate(span trace.Span, sess *session.Session) {
	if candidateID, ok := sess.CandidateID(); ok {
		span.SetAttributes(attribute.String("promptcraft.candidate_id", candidateID))
	}
}
