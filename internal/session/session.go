// Package session is the portal's auth store. A Session owns one upstream
// credential pair and its profile; it is passed explicitly to the API client
// and to views instead of living in process-wide state.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/promptcraft-portal/internal/observability"
	"github.com/noah-isme/promptcraft-portal/pkg/promptcraft"
)

var (
	// ErrNoSession means nothing is stored under the requested session ID.
	ErrNoSession = errors.New("session not found")
	// ErrNotAuthenticated means the session holds no credentials.
	ErrNotAuthenticated = errors.New("session not authenticated")
)

// CandidateID is the composite key the backend files evaluations under.
func CandidateID(user promptcraft.User) string {
	return fmt.Sprintf("user_%d_%s", user.ID, user.Username)
}

// Session is a single login. Only Login, Logout, Refresh and Invalidate
// change its credentials; every other method only reads them.
type Session struct {
	id      string
	manager *Manager
	logger  zerolog.Logger

	mu     sync.RWMutex
	record *Record
}

// ID returns the portal session identifier.
func (s *Session) ID() string {
	return s.id
}

// Init restores the session from the store. A missing record, or one whose
// upstream token has already expired, leaves the session empty. A live
// session whose record vanished was logged out elsewhere and is torn down
// here too.
func (s *Session) Init(ctx context.Context) error {
	record, err := s.manager.store.Load(ctx, s.id)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			s.drop("ended_elsewhere")
			return nil
		}
		s.clear()
		return err
	}

	if record.AccessToken == "" {
		s.drop("ended_elsewhere")
		return nil
	}

	if exp, ok := tokenExpiry(record.AccessToken); ok && !exp.After(time.Now()) {
		s.logger.Info().Msg("stored upstream token expired")
		return s.teardown(ctx, "expired")
	}

	s.mu.Lock()
	s.record = &record
	s.mu.Unlock()
	return nil
}

// Login exchanges credentials upstream, persists the tokens and loads the
// profile. If the profile cannot be loaded the session is torn down.
func (s *Session) Login(ctx context.Context, username, password string) error {
	ctx, span := s.manager.tracer.Start(ctx, "session.login")
	defer span.End()

	token, err := s.manager.client.Login(ctx, username, password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return err
	}

	s.mu.Lock()
	s.record = &Record{
		ID:           s.id,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		CreatedAt:    time.Now().UTC(),
	}
	s.mu.Unlock()

	user, err := s.Client().CurrentUser(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "profile load failed")
		if teardownErr := s.teardown(context.WithoutCancel(ctx), "login_failed"); teardownErr != nil {
			s.logger.Warn().Err(teardownErr).Msg("failed to clear session after profile load failure")
		}
		return err
	}

	record, err := s.setUser(user)
	if err != nil {
		return err
	}
	if err := s.persist(ctx, record); err != nil {
		span.RecordError(err)
		return err
	}

	span.SetAttributes(attribute.Int64("promptcraft.user_id", int64(user.ID)))
	observability.SessionEvents().WithLabelValues("login").Inc()
	s.logger.Info().Uint("user_id", user.ID).Msg("session logged in")
	return nil
}

// Logout clears the session. Calling it on an empty session is a no-op.
func (s *Session) Logout(ctx context.Context) error {
	return s.teardown(ctx, "logout")
}

// Refresh re-reads the profile with the current token. Any failure logs the
// session out.
func (s *Session) Refresh(ctx context.Context) (promptcraft.User, error) {
	ctx, span := s.manager.tracer.Start(ctx, "session.refresh")
	defer span.End()

	if !s.Authenticated() {
		return promptcraft.User{}, ErrNotAuthenticated
	}

	user, err := s.Client().CurrentUser(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed")
		if teardownErr := s.teardown(context.WithoutCancel(ctx), "refresh_failed"); teardownErr != nil {
			s.logger.Warn().Err(teardownErr).Msg("failed to clear session after refresh failure")
		}
		return promptcraft.User{}, err
	}

	record, err := s.setUser(user)
	if err != nil {
		return promptcraft.User{}, err
	}
	if err := s.persist(ctx, record); err != nil {
		return promptcraft.User{}, err
	}

	observability.SessionEvents().WithLabelValues("refresh").Inc()
	return user, nil
}

// AccessToken returns the upstream bearer token, empty when logged out.
func (s *Session) AccessToken(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.record == nil {
		return "", nil
	}
	return s.record.AccessToken, nil
}

// Invalidate is called by the API client when the backend rejects the token.
func (s *Session) Invalidate(ctx context.Context) error {
	return s.teardown(ctx, "unauthorized")
}

// Authenticated reports whether the session holds a token.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.record != nil && s.record.AccessToken != ""
}

// User returns the loaded profile.
func (s *Session) User() (promptcraft.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.record == nil || s.record.User == nil {
		return promptcraft.User{}, false
	}
	return *s.record.User, true
}

// CandidateID derives the evaluation key from the loaded profile.
func (s *Session) CandidateID() (string, bool) {
	user, ok := s.User()
	if !ok {
		return "", false
	}
	return CandidateID(user), true
}

// Client returns an API client that authenticates as this session.
func (s *Session) Client() *promptcraft.Client {
	return s.manager.client.WithCredentials(s)
}

func (s *Session) setUser(user promptcraft.User) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return Record{}, ErrNotAuthenticated
	}
	s.record.User = &user
	return *s.record, nil
}

func (s *Session) persist(ctx context.Context, record Record) error {
	ttl := s.manager.ttl
	if exp, ok := tokenExpiry(record.AccessToken); ok {
		if remaining := time.Until(exp); remaining > 0 && remaining < ttl {
			ttl = remaining
		}
	}
	return s.manager.store.Save(ctx, record, ttl)
}

func (s *Session) clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.record != nil
	s.record = nil
	return had
}

func (s *Session) teardown(ctx context.Context, reason string) error {
	err := s.manager.store.Delete(ctx, s.id)
	s.drop(reason)
	return err
}

// drop clears the in-memory state and runs teardown hooks if the session
// was logged in. The store is left alone.
func (s *Session) drop(reason string) {
	had := s.clear()
	s.manager.forget(s.id)

	if had {
		observability.SessionEvents().WithLabelValues(reason).Inc()
		s.logger.Info().Str("reason", reason).Msg("session cleared")
		s.manager.notifyTeardown(s.id)
	}
}

// tokenExpiry reads exp from the upstream JWT without verifying it; the
// portal does not hold the backend's signing key.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
