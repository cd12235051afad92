package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/promptcraft-portal/internal/config"
	"github.com/noah-isme/promptcraft-portal/internal/middleware"
	"github.com/noah-isme/promptcraft-portal/internal/router"
	"github.com/noah-isme/promptcraft-portal/internal/session"
	"github.com/noah-isme/promptcraft-portal/pkg/promptcraft"
)

type harness struct {
	app     *fiber.App
	manager *session.Manager
	session *session.Session
	token   string
}

func newSessionManager(t *testing.T) *session.Manager {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			_ = json.NewEncoder(w).Encode(promptcraft.Token{AccessToken: "upstream", TokenType: "bearer"})
		case "/auth/users/me":
			_ = json.NewEncoder(w).Encode(promptcraft.User{ID: 7, Username: "ada", Email: "ada@example.com"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(upstream.Close)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := promptcraft.New(promptcraft.Config{BaseURL: upstream.URL, Logger: zerolog.Nop()})
	require.NoError(t, err)

	manager, err := session.NewManager(
		session.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()})),
		client,
		session.Config{Secret: "portal-secret", TTL: time.Hour},
		zerolog.Nop(),
	)
	require.NoError(t, err)
	return manager
}

func newHarness(t *testing.T, deps router.Dependencies) *harness {
	t.Helper()

	manager := newSessionManager(t)
	sess, err := manager.Login(context.Background(), "ada", "s3cret")
	require.NoError(t, err)
	token, _, err := manager.IssueToken(sess)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(middleware.CorrelationID())
	deps.SessionMiddleware = middleware.RequireSession(manager, middleware.SessionOptions{Logger: zerolog.Nop()})
	router.Register(app, config.Config{AppName: "PromptCraft Portal", AppEnv: "test"}, deps)

	return &harness{app: app, manager: manager, session: sess, token: token}
}

func (h *harness) do(t *testing.T, method, target string, body io.Reader) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+h.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Meta    json.RawMessage `json:"meta"`
	Details json.RawMessage `json:"details"`
}

func readEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()
	var body envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func startServer(t *testing.T, app *fiber.App) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)

	t.Cleanup(func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	})

	return listener.Addr().String()
}

func unauthorizedErr() error {
	return &promptcraft.APIError{Kind: promptcraft.KindUnauthorized, Status: http.StatusUnauthorized, Endpoint: "evaluations.list", Detail: "Could not validate credentials"}
}
