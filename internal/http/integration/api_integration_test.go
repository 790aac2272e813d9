package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/geocoder89/eduai/internal/ai"
	"github.com/geocoder89/eduai/internal/auth"
	"github.com/geocoder89/eduai/internal/config"
	"github.com/geocoder89/eduai/internal/db"
	apphttp "github.com/geocoder89/eduai/internal/http"
	"github.com/geocoder89/eduai/internal/observability"
	"github.com/geocoder89/eduai/internal/repo/memory"
)

func testConfig() config.Config {
	return config.Config{
		Env:                "test",
		JWTSecret:          "test-secret-key",
		JWTTTL:             time.Hour,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		MaxBodyBytes:       1 << 20,
		RateLimitAuth:      100,
		RateLimitAI:        100,
		RateLimitWindow:    time.Minute,
		AI: config.AIConfig{
			DefaultChatModel:  "chat-model",
			DefaultImageModel: "image-model",
			Timeout:           2 * time.Second,
		},
	}
}

type testServer struct {
	router   *gin.Engine
	upstream *httptest.Server
	hits     *atomic.Int32
}

// setupTestRouter wires the real router, gate and bridge; only the
// completion service is faked. reply is returned verbatim as message content.
func setupTestRouter(t *testing.T, reply string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hits := &atomic.Int32{}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": reply}}},
			"usage":   map[string]any{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
		})
	}))
	t.Cleanup(upstream.Close)

	cfg := testConfig()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	users := memory.NewUsersRepo()
	if _, err := db.SeedUsers(context.Background(), users, db.DemoUsers, bcrypt.MinCost); err != nil {
		t.Fatalf("seed: %v", err)
	}

	gate := auth.NewGate(users, auth.NewManager(cfg.JWTSecret, cfg.JWTTTL), auth.WithPasswordCost(bcrypt.MinCost))

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	bridge := ai.NewBridge(
		ai.NewHTTPClient(ai.HTTPClientConfig{Endpoint: upstream.URL, CustomerID: "cus_test", Authorization: "Bearer test"}),
		ai.BridgeConfig{
			ChatModel:  cfg.AI.DefaultChatModel,
			ImageModel: cfg.AI.DefaultImageModel,
			Timeout:    cfg.AI.Timeout,
		},
		ai.WithLogger(logger),
		ai.WithRecorder(prom),
	)

	router := apphttp.NewRouter(apphttp.Deps{
		Config:   cfg,
		Log:      logger,
		Gate:     gate,
		Bridge:   bridge,
		Prom:     prom,
		Gatherer: reg,
	})

	return &testServer{router: router, upstream: upstream, hits: hits}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func doRequest(router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))

	if method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func mustReadJSON[T any](t *testing.T, w *httptest.ResponseRecorder, out *T) {
	t.Helper()
	err := json.Unmarshal(w.Body.Bytes(), out)
	if err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
}

func login(t *testing.T, router http.Handler, email, password string) string {
	t.Helper()

	w := doRequest(router, http.MethodPost, "/api/auth/login", "", `{"email":"`+email+`","password":"`+password+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login %s failed: %d %s", email, w.Code, w.Body.String())
	}

	var env envelope
	mustReadJSON(t, w, &env)

	var session struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &session); err != nil || session.Token == "" {
		t.Fatalf("missing token in %s", env.Data)
	}
	return session.Token
}

func TestAuthFlow_RegisterLoginMe(t *testing.T) {
	ts := setupTestRouter(t, "{}")

	w := doRequest(ts.router, http.MethodPost, "/api/auth/register", "",
		`{"email":"new@eduai.com","password":"secret1","name":"New Student","role":"student"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
	}

	w = doRequest(ts.router, http.MethodPost, "/api/auth/register", "",
		`{"email":"NEW@eduai.com","password":"secret1","name":"Again","role":"professor"}`)
	var env envelope
	mustReadJSON(t, w, &env)
	if w.Code != http.StatusBadRequest || env.Error != "User with this email already exists" {
		t.Fatalf("expected duplicate rejection, got %d %+v", w.Code, env)
	}

	token := login(t, ts.router, "new@eduai.com", "secret1")

	w = doRequest(ts.router, http.MethodGet, "/api/auth/me", token, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"email":"new@eduai.com"`) {
		t.Fatalf("unexpected /me response %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestDemoUsersAreSeeded(t *testing.T) {
	ts := setupTestRouter(t, "{}")

	adminToken := login(t, ts.router, "admin@eduai.com", "admin123")
	studentToken := login(t, ts.router, "student@eduai.com", "student123")

	w := doRequest(ts.router, http.MethodGet, "/api/users", studentToken, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for student, got %d", w.Code)
	}

	w = doRequest(ts.router, http.MethodGet, "/api/users", adminToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", w.Code)
	}
	if strings.Count(w.Body.String(), `"email"`) != 3 {
		t.Fatalf("expected three demo users, got %s", w.Body.String())
	}
}

func TestAI_RequiresToken(t *testing.T) {
	ts := setupTestRouter(t, `{"questions":[]}`)

	w := doRequest(ts.router, http.MethodPost, "/api/ai/generate-questions", "", `{"topic":"loops","difficulty":"beginner"}`)

	var env envelope
	mustReadJSON(t, w, &env)
	if w.Code != http.StatusUnauthorized || env.Success || env.Error != "No token provided" {
		t.Fatalf("expected 401 No token provided, got %d %+v", w.Code, env)
	}
	if ts.hits.Load() != 0 {
		t.Fatalf("completion service must not be called without a token")
	}
}

func TestAI_GenerateQuestionsEndToEnd(t *testing.T) {
	ts := setupTestRouter(t, "```json\n{\"questions\":[{\"id\":\"q1\",\"title\":\"FizzBuzz\",\"difficulty\":\"beginner\",\"points\":10,\"estimatedTime\":15,\"testCases\":[{\"input\":\"3\",\"expectedOutput\":\"Fizz\"}],\"tags\":[\"loops\"]}]}\n```")
	token := login(t, ts.router, "professor@eduai.com", "prof123")

	w := doRequest(ts.router, http.MethodPost, "/api/ai/generate-questions", token, `{"topic":"loops","difficulty":"beginner","count":1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}

	var env envelope
	mustReadJSON(t, w, &env)
	if !env.Success || !strings.Contains(string(env.Data), `"title":"FizzBuzz"`) {
		t.Fatalf("unexpected envelope %+v", env)
	}
	if ts.hits.Load() != 1 {
		t.Fatalf("expected exactly one upstream call, got %d", ts.hits.Load())
	}

	m := doRequest(ts.router, http.MethodGet, "/metrics", "", "")
	if !strings.Contains(m.Body.String(), `eduai_ai_requests_total{operation="generate_questions",result="ok"} 1`) {
		t.Fatalf("expected completion metric, got:\n%s", m.Body.String())
	}
}

func TestAI_AnalyzeCodeUpstreamDown(t *testing.T) {
	ts := setupTestRouter(t, "{}")
	token := login(t, ts.router, "student@eduai.com", "student123")
	ts.upstream.Close()

	w := doRequest(ts.router, http.MethodPost, "/api/ai/analyze-code", token, `{"code":"print(1)","language":"python"}`)

	var env envelope
	mustReadJSON(t, w, &env)
	if w.Code != http.StatusInternalServerError || env.Success || env.Error == "" {
		t.Fatalf("expected 500 with an error message, got %d %+v", w.Code, env)
	}
	if strings.Contains(env.Error, "127.0.0.1") {
		t.Fatalf("upstream address must not leak: %q", env.Error)
	}
}

func TestAI_ProseOnlyReplyIsParseFailure(t *testing.T) {
	ts := setupTestRouter(t, "Sorry, I can't help with that.")
	token := login(t, ts.router, "student@eduai.com", "student123")

	w := doRequest(ts.router, http.MethodPost, "/api/ai/validate-code", token, `{"question":"sum","studentCode":"a+b"}`)

	var env envelope
	mustReadJSON(t, w, &env)
	if w.Code != http.StatusInternalServerError || env.Error != "Failed to parse AI response" {
		t.Fatalf("expected parse failure, got %d %+v", w.Code, env)
	}
}

func TestOpsEndpoints(t *testing.T) {
	ts := setupTestRouter(t, "{}")

	for _, path := range []string{"/healthz", "/readyz", "/docs", "/docs/openapi.yaml"} {
		w := doRequest(ts.router, http.MethodGet, path, "", "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
	}

	w := doRequest(ts.router, http.MethodGet, "/docs/openapi.yaml", "", "")
	if !strings.Contains(w.Body.String(), "/api/ai/generate-exam") {
		t.Fatalf("openapi document should describe the exam endpoint")
	}
}
