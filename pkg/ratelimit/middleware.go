package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"boxoffice/internal/shared/utils/response"
	"boxoffice/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Middleware rate limits every route by client IP and route family
func Middleware(rateLimiter *RateLimiter, log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.GetDefault()
	}
	return func(c *gin.Context) {
		clientIP := getClientIP(c)
		limitType := getRateLimitType(c.FullPath())

		result, err := rateLimiter.IsAllowed(c.Request.Context(), clientIP, limitType)
		if err != nil {
			// Fail open
			log.WarnWithContext(c.Request.Context(), "rate limit check failed", err, map[string]interface{}{"path": c.FullPath()})
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetTime))

		if !result.Allowed {
			log.LogRateLimitExceeded(c.Request.Context(), clientIP, c.FullPath())
			response.Error(c, http.StatusTooManyRequests, "Rate limit exceeded", map[string]interface{}{
				"limit":      result.Limit,
				"reset_time": result.ResetTime,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func getRateLimitType(path string) RateLimitType {
	switch {
	case strings.HasPrefix(path, "/health"),
		strings.HasPrefix(path, "/ping"),
		strings.HasPrefix(path, "/status"):
		return RateLimitTypeHealth

	case strings.Contains(path, "/seats/"):
		return RateLimitTypeSeat

	case strings.Contains(path, "/payments/"),
		strings.HasSuffix(path, "/payment"):
		return RateLimitTypePayment

	case strings.Contains(path, "/bookings"):
		return RateLimitTypeBooking

	default:
		return RateLimitTypeDefault
	}
}

// getClientIP extracts the real client IP
func getClientIP(c *gin.Context) string {
	xForwardedFor := c.GetHeader("X-Forwarded-For")
	if xForwardedFor != "" {
		ips := strings.Split(xForwardedFor, ",")
		if len(ips) > 0 {
			ip := strings.TrimSpace(ips[0])
			if net.ParseIP(ip) != nil {
				return ip
			}
		}
	}

	xRealIP := c.GetHeader("X-Real-IP")
	if xRealIP != "" {
		if net.ParseIP(xRealIP) != nil {
			return xRealIP
		}
	}

	ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}

	return ip
}
