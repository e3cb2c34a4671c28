package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"mintgate/internal/domain"

	"github.com/gin-gonic/gin"
)

const routeMint = "mint"

// enforceRateLimit counts requests per client IP and route.
func (s *Server) enforceRateLimit(c *gin.Context, routeID string) bool {
	if s.rateLimiter == nil || s.rateLimitRequests <= 0 {
		return true
	}
	key := fmt.Sprintf("ip:%s:endpoint:%s", c.ClientIP(), routeID)

	decision, err := s.rateLimiter.Allow(c.Request.Context(), key, s.rateLimitRequests, s.rateLimitWindow)
	if err != nil {
		if s.rateLimitFailClosed {
			s.logger().WithError(err).Warn("rate limiter unavailable; rejecting")
			writeEmpty(c, http.StatusTooManyRequests)
			return false
		}
		return true
	}
	writeRateLimitHeaders(c, decision)
	if !decision.Allowed {
		writeEmpty(c, http.StatusTooManyRequests)
		return false
	}
	return true
}

func writeRateLimitHeaders(c *gin.Context, decision domain.RateLimitDecision) {
	if decision.Limit > 0 {
		c.Header("RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if !decision.ResetAt.IsZero() {
		c.Header("RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		if !decision.Allowed {
			retryAfter := int64(decision.RetryAfter(time.Now()).Seconds())
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		}
	}
}
