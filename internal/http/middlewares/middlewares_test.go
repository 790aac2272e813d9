package middlewares_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/eduai/internal/actorctx"
	"github.com/geocoder89/eduai/internal/auth"
	"github.com/geocoder89/eduai/internal/domain/user"
	"github.com/geocoder89/eduai/internal/http/middlewares"
	"github.com/geocoder89/eduai/internal/ratelimit"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	users map[string]user.Public
}

func (f fakeVerifier) VerifyToken(_ context.Context, token string) (user.Public, error) {
	u, ok := f.users[token]
	if !ok {
		return user.Public{}, auth.ErrInvalidOrExpiredToken
	}
	return u, nil
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to unmarshal json: %v, body=%s", err, w.Body.String())
	}
	return env
}

func newAuthRouter() *gin.Engine {
	am := middlewares.NewAuthMiddleware(fakeVerifier{users: map[string]user.Public{
		"student-token": {ID: "s1", Role: user.RoleStudent},
		"admin-token":   {ID: "a1", Role: user.RoleAdmin},
	}})

	r := gin.New()
	r.GET("/me", am.RequireAuth(), func(c *gin.Context) {
		u, _ := middlewares.UserFromContext(c)
		ctxID, _ := actorctx.UserIDFrom(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"id": u.ID, "ctxId": ctxID})
	})
	r.GET("/admin", am.RequireAuth(), am.RequireRole(user.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	r := newAuthRouter()

	cases := []struct {
		name    string
		header  string
		status  int
		message string
	}{
		{"missing header", "", http.StatusUnauthorized, "No token provided"},
		{"bare bearer", "Bearer ", http.StatusUnauthorized, "No token provided"},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, "Invalid or expired token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, w.Code)
			}
			env := decode(t, w)
			if env.Success || env.Error != tc.message {
				t.Fatalf("unexpected envelope %+v", env)
			}
		})
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer student-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"ctxId":"s1"`) {
		t.Fatalf("expected user on request context, body=%s", w.Body.String())
	}
}

func TestRequireRole(t *testing.T) {
	r := newAuthRouter()

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer student-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	if env := decode(t, w); env.Error != "Insufficient permissions" {
		t.Fatalf("unexpected error %q", env.Error)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	var limited []string
	rl := middlewares.NewRateLimiter(ratelimit.NewMemoryStore(), "auth", 2, time.Minute, func(scope string) {
		limited = append(limited, scope)
	})

	r := gin.New()
	r.POST("/login", rl.Middleware(middlewares.KeyByIP), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		r.ServeHTTP(last, httptest.NewRequest(http.MethodPost, "/login", nil))
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third request, got %d", last.Code)
	}
	if last.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	if len(limited) != 1 || limited[0] != "auth" {
		t.Fatalf("expected one limited callback, got %v", limited)
	}
}

func TestRequireJSON(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.RequireJSON())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(middlewares.CORSMiddleware([]string{"http://localhost:3000"}))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("expected origin echoed, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
}
