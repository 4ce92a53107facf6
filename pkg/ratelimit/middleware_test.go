package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"boxoffice/pkg/logger"

	"github.com/gin-gonic/gin"
)

func TestGetRateLimitType(t *testing.T) {
	cases := map[string]RateLimitType{
		"/health":                           RateLimitTypeHealth,
		"/api/v1/seats/reserve":             RateLimitTypeSeat,
		"/api/v1/seats/release":             RateLimitTypeSeat,
		"/api/v1/bookings":                  RateLimitTypeBooking,
		"/api/v1/bookings/:code/cancel":     RateLimitTypeBooking,
		"/api/v1/bookings/:code/payment":    RateLimitTypePayment,
		"/api/v1/payments/:tx/status":       RateLimitTypePayment,
		"/api/v1/performances/:id/seat-map": RateLimitTypeDefault,
	}
	for path, want := range cases {
		if got := getRateLimitType(path); got != want {
			t.Errorf("getRateLimitType(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestDisabledLimiterSetsHeadersAndPasses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(nil, &Config{Enabled: false, WindowDuration: time.Minute, SeatRequests: 60})

	engine := gin.New()
	engine.Use(Middleware(limiter, logger.Discard()))
	engine.POST("/api/v1/seats/reserve", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/seats/reserve", nil)
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "60" {
		t.Fatalf("limit header = %q", rec.Header().Get("X-RateLimit-Limit"))
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	if ip := getClientIP(c); ip != "203.0.113.7" {
		t.Fatalf("ip = %s", ip)
	}
}
