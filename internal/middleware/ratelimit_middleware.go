package middleware

import (
	"net/http"
	"strconv"

	"intake-chat/internal/redis"
	"intake-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// RateLimitMiddleware applies a per-IP request budget to the REST surface.
// Socket traffic is limited inside the hubs instead.
func RateLimitMiddleware(limiter *redis.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := limiter.AllowRequest(c.Request.Context(), c.ClientIP())
		if err != nil {
			// Redis trouble should not take the API down.
			c.Next()
			return
		}

		setRateLimitHeaders(c, result)

		if !result.Allowed {
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse("rate limit exceeded", "RATE_LIMITED"))
			c.Abort()
			return
		}

		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, result *redis.RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(int64(result.ResetIn.Seconds()), 10))
}
