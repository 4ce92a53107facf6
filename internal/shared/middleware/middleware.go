package middleware

import (
	"time"

	"boxoffice/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID tags each request with the caller's X-Request-ID or a fresh one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the id set by RequestID, or ""
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// RequestLogger logs every request once it has been served
func RequestLogger(l *logger.Logger) gin.HandlerFunc {
	if l == nil {
		l = logger.GetDefault()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		if id := GetRequestID(c); id != "" {
			l.WithRequestID(id).LogHTTPRequest(c, duration)
			return
		}
		l.LogHTTPRequest(c, duration)
	}
}

// CORS allows browser checkouts on any origin to call the sandbox and
// read the rate limit headers
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Accept", RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", RequestIDHeader, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
