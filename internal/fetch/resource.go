// Package fetch owns the asynchronous side of a view: one Resource holds the
// last fetched data for a single identity and moves through
// idle → loading → success|error on each fetch cycle.
package fetch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/promptcraft-portal/internal/observability"
)

const subscriberBufferSize = 8

var (
	// ErrNoIdentity is returned when a fetch is requested without an owner.
	ErrNoIdentity = errors.New("fetch: identity not available")
	// ErrSuperseded is returned to a caller whose fetch resolved after a newer one was issued.
	ErrSuperseded = errors.New("fetch: superseded by a newer request")
	// ErrClosed is returned once the resource has been released.
	ErrClosed = errors.New("fetch: resource closed")
)

// Status is the lifecycle phase of a resource.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State is an immutable snapshot of a resource.
type State[T any] struct {
	Status    Status    `json:"status"`
	Data      T         `json:"data"`
	HasData   bool      `json:"has_data"`
	Error     string    `json:"error,omitempty"`
	Stale     bool      `json:"stale"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
	Sequence  uint64    `json:"sequence"`
}

// Loading reports whether a fetch is outstanding.
func (s State[T]) Loading() bool {
	return s.Status == StatusLoading
}

// Identity yields the key the data belongs to, or false when nobody owns it yet.
type Identity func() (string, bool)

// Fetcher retrieves the data for key.
type Fetcher[T any] func(ctx context.Context, key string) (T, error)

// Options wires a resource.
type Options[T any] struct {
	// Name labels metrics and spans.
	Name     string
	Identity Identity
	Fetch    Fetcher[T]
	// ErrorMessage turns a failure into the display string kept in State.Error.
	ErrorMessage func(error) string
	// OnSuccess runs after a fresh result has been applied.
	OnSuccess func(ctx context.Context, key string, data T)
	Logger    zerolog.Logger
}

// Resource is the data/loading/error/refetch unit behind a view.
type Resource[T any] struct {
	opts   Options[T]
	logger zerolog.Logger
	tracer trace.Tracer

	mu          sync.Mutex
	state       State[T]
	key         string
	seq         uint64
	closed      bool
	subscribers map[chan State[T]]struct{}
}

// New builds a resource. It starts in loading when the identity is already
// known, since the owner is expected to issue the initial Load right away.
func New[T any](opts Options[T]) *Resource[T] {
	if opts.Name == "" {
		opts.Name = "resource"
	}
	if opts.ErrorMessage == nil {
		opts.ErrorMessage = func(err error) string { return err.Error() }
	}

	r := &Resource[T]{
		opts:        opts,
		logger:      opts.Logger.With().Str("component", "fetch").Str("resource", opts.Name).Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/promptcraft-portal/internal/fetch"),
		state:       State[T]{Status: StatusIdle},
		subscribers: make(map[chan State[T]]struct{}),
	}

	if key, ok := r.identity(); ok {
		r.key = key
		r.state.Status = StatusLoading
	}

	return r
}

// State returns the current snapshot.
func (r *Resource[T]) State() State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Load runs one fetch cycle. Only the most recently issued cycle may change
// the data: an older cycle that resolves later is discarded and its caller
// gets ErrSuperseded. A failed cycle keeps the previous data.
func (r *Resource[T]) Load(ctx context.Context) (State[T], error) {
	key, ok := r.identity()

	r.mu.Lock()
	if r.closed {
		state := r.state
		r.mu.Unlock()
		return state, ErrClosed
	}
	if !ok {
		r.seq++
		r.key = ""
		r.state = State[T]{Status: StatusIdle, Sequence: r.seq}
		r.publishLocked()
		state := r.state
		r.mu.Unlock()
		return state, ErrNoIdentity
	}

	r.seq++
	seq := r.seq
	if r.key != key {
		// Data fetched for a different owner must never be shown.
		var zero T
		r.state.Data = zero
		r.state.HasData = false
		r.state.Stale = false
		r.key = key
	}
	r.state.Status = StatusLoading
	r.state.Error = ""
	r.state.Sequence = seq
	r.publishLocked()
	r.mu.Unlock()

	ctx, span := r.tracer.Start(ctx, "fetch."+r.opts.Name, trace.WithAttributes(
		attribute.Int64("fetch.sequence", int64(seq)),
	))
	defer span.End()

	data, err := r.opts.Fetch(ctx, key)

	r.mu.Lock()
	if r.closed || seq != r.seq {
		state := r.state
		r.mu.Unlock()
		observability.FetchOutcomes().WithLabelValues(r.opts.Name, "stale").Inc()
		span.SetAttributes(attribute.Bool("fetch.superseded", true))
		r.logger.Debug().Uint64("sequence", seq).Msg("discarding superseded fetch result")
		if r.closed {
			return state, ErrClosed
		}
		return state, ErrSuperseded
	}

	if err != nil {
		r.state.Status = StatusError
		r.state.Error = r.opts.ErrorMessage(err)
		r.publishLocked()
		state := r.state
		r.mu.Unlock()

		observability.FetchOutcomes().WithLabelValues(r.opts.Name, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		r.logger.Warn().Err(err).Uint64("sequence", seq).Bool("kept_data", state.HasData).Msg("fetch failed")
		return state, err
	}

	r.state = State[T]{
		Status:    StatusSuccess,
		Data:      data,
		HasData:   true,
		UpdatedAt: time.Now().UTC(),
		Sequence:  seq,
	}
	r.publishLocked()
	state := r.state
	r.mu.Unlock()

	observability.FetchOutcomes().WithLabelValues(r.opts.Name, "success").Inc()
	if r.opts.OnSuccess != nil {
		r.opts.OnSuccess(ctx, key, data)
	}
	return state, nil
}

// Refetch is the explicit user-triggered reload.
func (r *Resource[T]) Refetch(ctx context.Context) (State[T], error) {
	return r.Load(ctx)
}

// Seed installs previously persisted data, marked stale, when nothing has
// been fetched yet. It reports whether the seed was applied.
func (r *Resource[T]) Seed(data T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.state.HasData {
		return false
	}
	r.state.Data = data
	r.state.HasData = true
	r.state.Stale = true
	r.publishLocked()
	return true
}

// Subscribe streams state snapshots, starting with the current one. Slow
// subscribers only ever miss intermediate snapshots, never the latest.
func (r *Resource[T]) Subscribe() (<-chan State[T], func()) {
	ch := make(chan State[T], subscriberBufferSize)

	r.mu.Lock()
	if r.closed {
		close(ch)
		r.mu.Unlock()
		return ch, func() {}
	}
	r.subscribers[ch] = struct{}{}
	ch <- r.state
	r.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if _, ok := r.subscribers[ch]; ok {
				delete(r.subscribers, ch)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Close releases the resource: outstanding fetches are discarded and every
// subscriber channel is closed.
func (r *Resource[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	for ch := range r.subscribers {
		delete(r.subscribers, ch)
		close(ch)
	}
}

func (r *Resource[T]) identity() (string, bool) {
	if r.opts.Identity == nil {
		return "", false
	}
	key, ok := r.opts.Identity()
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

func (r *Resource[T]) publishLocked() {
	for ch := range r.subscribers {
		select {
		case ch <- r.state:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- r.state:
		default:
		}
	}
}
