package middlewares

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/eduai/internal/ratelimit"
)

type RateLimiter struct {
	store     ratelimit.Store
	scope     string
	limit     int
	window    time.Duration
	onLimited func(scope string)
}

// NewRateLimiter allows limit requests per key per window. onLimited may be
// nil.
func NewRateLimiter(store ratelimit.Store, scope string, limit int, window time.Duration, onLimited func(string)) *RateLimiter {
	return &RateLimiter{
		store:     store,
		scope:     scope,
		limit:     limit,
		window:    window,
		onLimited: onLimited,
	}
}

func (rl *RateLimiter) Middleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit <= 0 {
			c.Next()
			return
		}

		key := keyFn(c)
		if key == "" {
			key = clientIP(c)
		}

		count, resetIn, err := rl.store.Hit(c.Request.Context(), rl.scope+":"+key, rl.window)
		if err != nil {
			// fail open: a broken limiter store must not take the API down
			slog.Default().WarnContext(c.Request.Context(), "rate limiter unavailable", "scope", rl.scope, "err", err)
			c.Next()
			return
		}

		if count > rl.limit {
			if rl.onLimited != nil {
				rl.onLimited(rl.scope)
			}
			retryAfter := int(math.Ceil(resetIn.Seconds()))
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			abort(c, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please try again shortly.")
			return
		}

		c.Next()
	}
}

// for unauthenticated endpoints: rate limit by IP
func KeyByIP(c *gin.Context) string {
	return "ip:" + clientIP(c)
}

// For authenticated endpoints: rate limit by userID if available
func KeyByUserOrIP(c *gin.Context) string {
	if id, ok := UserIDFromContext(c); ok {
		return "user:" + id
	}
	return KeyByIP(c)
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)
	if err == nil && host != "" {
		return host
	}
	return ip
}
