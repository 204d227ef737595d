package http

import (
	"net/http"
	"strconv"
	"time"

	"coffeeshop/internal/domain"

	"github.com/gin-gonic/gin"
)

// enforceRateLimit counts requests per client address. With RATE_LIMIT_FAIL_CLOSED a
// limiter error rejects the request, otherwise it is let through.
func (s *Server) enforceRateLimit(c *gin.Context) {
	if s.rateLimiter == nil || s.rateLimitRequests <= 0 {
		c.Next()
		return
	}
	key := "drinks:ip:" + c.ClientIP()
	decision, err := s.rateLimiter.Allow(c.Request.Context(), key, s.rateLimitRequests, s.rateLimitWindow)
	if err != nil {
		s.logger.Warn("rate limiter error", "err", err, "fail_closed", s.rateLimitFailClosed)
		if s.rateLimitFailClosed {
			writeErrorCode(c, http.StatusTooManyRequests, domain.CodeTooManyRequests, "rate limiter unavailable")
			return
		}
		c.Next()
		return
	}
	writeRateLimitHeaders(c, decision)
	if !decision.Allowed {
		writeErrorCode(c, http.StatusTooManyRequests, domain.CodeTooManyRequests, "rate limit exceeded")
		return
	}
	c.Next()
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
			retryAfter := max(int64(time.Until(decision.ResetAt).Seconds()), 0)
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		}
	}
}
