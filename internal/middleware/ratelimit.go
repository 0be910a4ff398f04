package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quizgen/internal/response"
)

// Counter increments a key that lives for one window.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimiter allows a fixed number of requests per client IP in each window.
// Counts live in Redis so every server instance shares them.
type RateLimiter struct {
	counter Counter
	limit   int
	window  time.Duration
	keyFor  func(ip string, window int64) string
	now     func() time.Time
	log     zerolog.Logger
}

// NewRateLimiter creates a RateLimiter (e.g., 20 requests per minute).
// A limit below 1 disables limiting.
func NewRateLimiter(counter Counter, limit int, window time.Duration, keyFor func(ip string, window int64) string, log zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		counter: counter,
		limit:   limit,
		window:  window,
		keyFor:  keyFor,
		now:     time.Now,
		log:     log.With().Str("component", "rate_limiter").Logger(),
	}
}

// Middleware returns a Gin middleware that rate-limits requests by IP.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit < 1 {
			c.Next()
			return
		}

		now := rl.now()
		window := now.UnixNano() / int64(rl.window)
		count, err := rl.counter.Incr(c.Request.Context(), rl.keyFor(c.ClientIP(), window), rl.window)
		if err != nil {
			// Fail open.
			rl.log.Warn().Err(err).Msg("Rate limit counter unavailable")
			c.Next()
			return
		}

		remaining := int64(rl.limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(rl.limit) {
			reset := time.Unix(0, (window+1)*int64(rl.window)).Sub(now)
			c.Header("Retry-After", strconv.Itoa(int(reset.Seconds())+1))
			response.AbortFail(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}
