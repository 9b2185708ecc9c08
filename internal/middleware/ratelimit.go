package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"whatsapp-api/internal/config"
	"whatsapp-api/internal/kv"
	"whatsapp-api/internal/tenant"
	"whatsapp-api/pkg/response"
)

const ratelimitWindow = time.Minute

// RateLimit enforces cfg.RateLimit's sliding-window budget per caller,
// keyed by team (falling back to client IP when no tenant.Context is
// attached yet), and sets the standard rate-limit response headers on
// every request — including 429s — per spec §4.2.
func RateLimit(kvg *kv.Gateway, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.RateLimit.Enabled {
			c.Next()
			return
		}

		id := GetClientIP(c)
		if tc, ok := tenant.FromContext(c.Request.Context()); ok {
			id = tc.TeamID
		}

		limit := cfg.RateLimit.RequestsPerMinute
		result, err := kvg.Allow(c.Request.Context(), id, limit, ratelimitWindow)
		if err != nil {
			response.Error(c, err)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))

		if !result.Allowed {
			c.Header("Retry-After", strconv.FormatInt(int64(ratelimitWindow.Seconds()), 10))
			response.TooManyRequests(c, "rate limit exceeded")
			return
		}

		c.Next()
	}
}
