package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/promptcraft-portal/pkg/promptcraft"
)

// Config tunes session lifetime and the portal token.
type Config struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

// Claims is the portal token payload. sid points at the stored session.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Manager creates, restores and tears down sessions. Live sessions are
// shared between concurrent requests so that per-session views can follow
// the same object.
type Manager struct {
	store  Store
	client *promptcraft.Client
	secret []byte
	ttl    time.Duration
	issuer string
	logger zerolog.Logger
	tracer trace.Tracer

	mu       sync.Mutex
	sessions map[string]*Session
	hooks    []func(sessionID string)
}

// NewManager wires the store and the anonymous API client.
func NewManager(store Store, client *promptcraft.Client, cfg Config, logger zerolog.Logger) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if client == nil {
		return nil, errors.New("promptcraft client is required")
	}
	if cfg.Secret == "" {
		return nil, errors.New("session secret is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "promptcraft-portal"
	}

	return &Manager{
		store:    store,
		client:   client,
		secret:   []byte(cfg.Secret),
		ttl:      cfg.TTL,
		issuer:   cfg.Issuer,
		logger:   logger.With().Str("component", "session_manager").Logger(),
		tracer:   otel.Tracer("github.com/noah-isme/promptcraft-portal/internal/session"),
		sessions: make(map[string]*Session),
	}, nil
}

// Client returns the unauthenticated API client.
func (m *Manager) Client() *promptcraft.Client {
	return m.client
}

// OnTeardown registers fn to run whenever a logged-in session is cleared.
func (m *Manager) OnTeardown(fn func(sessionID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, fn)
}

// New returns an empty session with a fresh ID.
func (m *Manager) New() *Session {
	return m.newSession(uuid.NewString())
}

// Login creates a session and logs it in.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	s := m.New()
	if err := s.Login(ctx, username, password); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()
	return s, nil
}

// Open returns the live session for id, restored from the store. It fails
// with ErrNoSession when the session is gone or holds no credentials.
func (m *Manager) Open(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNoSession
	}

	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		s = m.newSession(id)
		m.sessions[id] = s
	}
	m.mu.Unlock()

	if err := s.Init(ctx); err != nil {
		return nil, err
	}
	if !s.Authenticated() {
		m.forget(id)
		return nil, ErrNoSession
	}
	return s, nil
}

// IssueToken signs the portal token for a logged-in session.
func (m *Manager) IssueToken(s *Session) (string, time.Time, error) {
	user, ok := s.User()
	if !ok {
		return "", time.Time{}, ErrNotAuthenticated
	}

	now := time.Now().UTC()
	expires := now.Add(m.ttl)
	claims := Claims{
		SessionID: s.id,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expires, nil
}

// ParseToken validates a portal token and returns its claims.
func (m *Manager) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.SessionID == "" {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}

func (m *Manager) newSession(id string) *Session {
	return &Session{
		id:      id,
		manager: m,
		logger:  m.logger.With().Str("session_id", id).Logger(),
	}
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

func (m *Manager) notifyTeardown(id string) {
	m.mu.Lock()
	hooks := append([]func(string){}, m.hooks...)
	m.mu.Unlock()

	for _, hook := range hooks {
		hook(id)
	}
}
