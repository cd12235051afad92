package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/promptcraft-portal/internal/models"
	"github.com/noah-isme/promptcraft-portal/internal/repository"
	"github.com/noah-isme/promptcraft-portal/internal/session"
	"github.com/noah-isme/promptcraft-portal/pkg/promptcraft"
)

const testCandidate = "user_7_ada"

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

// fakeBackend is a scripted stand-in for the PromptCraft API.
type fakeBackend struct {
	mu               sync.Mutex
	evaluations      []promptcraft.Evaluation
	evaluationStatus int
	evaluationCalls  int
	questionCalls    int
	created          []promptcraft.EvaluationRequest
	leaderboard      promptcraft.Leaderboard
	dashboard        promptcraft.DashboardAnalytics
}

func scenarioEvaluations() []promptcraft.Evaluation {
	return []promptcraft.Evaluation{
		{ID: 1, CandidateID: testCandidate, TaskID: 11, Status: "completed", OverallScore: floatPtr(9), CreatedAt: "2024-01-03", EvaluationNotes: "<b>Clear</b> prompt", DifficultyLevel: strPtr("hard")},
		{ID: 2, CandidateID: testCandidate, TaskID: 12, Status: "pending", CreatedAt: "2024-01-01"},
		{ID: 3, CandidateID: testCandidate, TaskID: 13, Status: "completed", OverallScore: floatPtr(5), CreatedAt: "2024-01-02", DifficultyLevel: strPtr("easy")},
	}
}

func (b *fakeBackend) setEvaluations(records []promptcraft.Evaluation, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evaluations = records
	b.evaluationStatus = status
}

func (b *fakeBackend) calls() (evaluations, questions int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.evaluationCalls, b.questionCalls
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case r.URL.Path == "/auth/login":
		if err := r.ParseForm(); err != nil || r.PostForm.Get("password") != "s3cret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect username or password"})
			return
		}
		writeJSON(w, http.StatusOK, promptcraft.Token{AccessToken: "upstream-token", RefreshToken: "refresh", TokenType: "bearer"})
	case r.URL.Path == "/auth/users/me":
		writeJSON(w, http.StatusOK, promptcraft.User{ID: 7, Username: "ada", Email: "ada@example.com", IsActive: true})
	case r.URL.Path == "/evaluations/candidate/"+testCandidate:
		b.evaluationCalls++
		if b.evaluationStatus != 0 {
			writeJSON(w, b.evaluationStatus, map[string]string{"detail": "evaluation backend unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, b.evaluations)
	case r.Method == http.MethodPost && r.URL.Path == fmt.Sprintf("/evaluations/candidate/%s/task/11", testCandidate):
		var req promptcraft.EvaluationRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.created = append(b.created, req)
		writeJSON(w, http.StatusOK, promptcraft.EvaluationResponse{EvaluationID: 99, Message: "Evaluation created", EvaluatorUserID: 7})
	case r.URL.Path == "/questions":
		b.questionCalls++
		writeJSON(w, http.StatusOK, []promptcraft.Question{{ID: 1, Description: "Reverse a list"}, {ID: 2, Description: "Parse a CSV"}})
	case r.URL.Path == "/leaderboard/":
		writeJSON(w, http.StatusOK, b.leaderboard)
	case r.URL.Path == "/analytics/dashboard":
		writeJSON(w, http.StatusOK, b.dashboard)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
	}
}

type fixture struct {
	backend  *fakeBackend
	redis    *redis.Client
	mini     *miniredis.Miniredis
	manager  *session.Manager
	validate *validator.Validate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	backend := &fakeBackend{evaluations: scenarioEvaluations()}
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	client, err := promptcraft.New(promptcraft.Config{BaseURL: server.URL, Logger: zerolog.Nop()})
	require.NoError(t, err)

	manager, err := session.NewManager(session.NewRedisStore(rdb), client, session.Config{Secret: "portal-secret", TTL: time.Hour}, zerolog.Nop())
	require.NoError(t, err)

	return &fixture{backend: backend, redis: rdb, mini: mr, manager: manager, validate: validator.New()}
}

func (f *fixture) login(t *testing.T) *session.Session {
	t.Helper()
	sess, err := f.manager.Login(context.Background(), "ada", "s3cret")
	require.NoError(t, err)
	return sess
}

func newSnapshotRepo(t *testing.T) (repository.SnapshotRepository, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.EvaluationSnapshot{}))
	return repository.NewSnapshotRepository(db), db
}
