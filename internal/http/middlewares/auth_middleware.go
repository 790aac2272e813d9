package middlewares

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/eduai/internal/actorctx"
	"github.com/geocoder89/eduai/internal/auth"
	"github.com/geocoder89/eduai/internal/domain/user"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (user.Public, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(v TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: v}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if raw == "" {
			abort(c, http.StatusUnauthorized, "unauthorized", "No token provided")
			return
		}

		u, err := m.verifier.VerifyToken(c.Request.Context(), raw)
		if err != nil {
			msg := auth.PublicMessage(err)
			if msg == "" {
				slog.Default().ErrorContext(c.Request.Context(), "token verification failed", "err", err)
				msg = "Invalid or expired token"
			}
			abort(c, http.StatusUnauthorized, "unauthorized", msg)
			return
		}

		c.Set(CtxUser, u)
		c.Request = c.Request.WithContext(actorctx.WithUser(c.Request.Context(), u))

		c.Next()
	}
}

func UserFromContext(c *gin.Context) (user.Public, bool) {
	v, ok := c.Get(CtxUser)
	if !ok {
		return user.Public{}, false
	}
	u, ok := v.(user.Public)
	return u, ok && u.ID != ""
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	u, ok := UserFromContext(c)
	return u.ID, ok
}
