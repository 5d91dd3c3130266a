package middleware

import (
	"fmt"
	"net/http"
	"time"

	"vocab-api/internal/response"
	"vocab-api/internal/services"
	"vocab-api/pkg/apperrors"
	"vocab-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// RateLimit caps requests per client IP for one route group.
// Limiter failures let the request through.
func RateLimit(limiter services.RateLimiter, name string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", name, c.ClientIP())
		allowed, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			logging.Warnf("Rate limiter unavailable for %s: %v", key, err)
			c.Next()
			return
		}
		if !allowed {
			response.AbortJSON(c, http.StatusTooManyRequests, apperrors.CodeTooManyRequests, "Too many requests, please try again later")
			return
		}
		c.Next()
	}
}
