package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promptcraft-portal/internal/observability"
)

const refreshEventBufferSize = 16

// RefreshEvent announces that a candidate's evaluations changed upstream.
// Receivers refetch but never republish. RecordCount is zero when the
// publisher does not know the new size.
type RefreshEvent struct {
	Source      string    `json:"source"`
	CandidateID string    `json:"candidate_id"`
	RecordCount int       `json:"record_count"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// EvaluationEvents fans refresh announcements out to other portal nodes and
// delivers theirs to local subscribers. Events from this node are not
// delivered back to it.
type EvaluationEvents interface {
	Publish(ctx context.Context, candidateID string, recordCount int) error
	Subscribe() (<-chan RefreshEvent, func())
	Start(ctx context.Context)
	NodeID() string
}

type evaluationEvents struct {
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	nodeID      string

	mu          sync.RWMutex
	subscribers map[chan RefreshEvent]struct{}
}

// NewEvaluationEvents builds the event bus. Either transport may be nil.
func NewEvaluationEvents(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) EvaluationEvents {
	if channelBase == "" {
		channelBase = "promptcraft:portal"
	}
	return &evaluationEvents{
		redis:       redisClient,
		redisStream: channelBase + ":evaluations",
		nats:        natsConn,
		natsSubject: channelBase + ".evaluations",
		logger:      logger.With().Str("component", "evaluation_events").Logger(),
		nodeID:      uuid.NewString(),
		subscribers: make(map[chan RefreshEvent]struct{}),
	}
}

func (e *evaluationEvents) NodeID() string {
	return e.nodeID
}

// Start consumes NATS when connected, otherwise Redis pub/sub.
func (e *evaluationEvents) Start(ctx context.Context) {
	if e.nats != nil {
		e.consumeNATS(ctx)
		return
	}
	if e.redis != nil {
		go e.consumeRedis(ctx)
	}
}

func (e *evaluationEvents) Publish(ctx context.Context, candidateID string, recordCount int) error {
	payload, err := json.Marshal(RefreshEvent{
		Source:      e.nodeID,
		CandidateID: candidateID,
		RecordCount: recordCount,
		FetchedAt:   time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if e.nats != nil {
		return e.nats.Publish(e.natsSubject, payload)
	}
	if e.redis != nil {
		return e.redis.Publish(ctx, e.redisStream, payload).Err()
	}
	return nil
}

func (e *evaluationEvents) Subscribe() (<-chan RefreshEvent, func()) {
	ch := make(chan RefreshEvent, refreshEventBufferSize)

	e.mu.Lock()
	e.subscribers[ch] = struct{}{}
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.subscribers, ch)
			close(ch)
		})
	}
}

func (e *evaluationEvents) consumeRedis(ctx context.Context) {
	pubsub := e.redis.Subscribe(ctx, e.redisStream)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			e.logger.Error().Err(err).Msg("evaluation redis subscription closed")
			return
		}
		e.handleEvent([]byte(msg.Payload))
	}
}

func (e *evaluationEvents) consumeNATS(ctx context.Context) {
	sub, err := e.nats.Subscribe(e.natsSubject, func(msg *nats.Msg) {
		e.handleEvent(msg.Data)
	})
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to subscribe to nats evaluations subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			e.logger.Warn().Err(err).Msg("failed to drain evaluation nats subscription")
		}
	}()
}

func (e *evaluationEvents) handleEvent(payload []byte) {
	var event RefreshEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		e.logger.Warn().Err(err).Msg("invalid evaluation event payload")
		return
	}

	if event.Source == e.nodeID || event.CandidateID == "" {
		return
	}

	observability.RefreshEventsRelayed().Inc()
	e.broadcast(event)
}

func (e *evaluationEvents) broadcast(event RefreshEvent) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for ch := range e.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
