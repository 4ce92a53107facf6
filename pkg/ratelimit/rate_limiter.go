package ratelimit

import (
	"context"
	"fmt"
	"time"

	"boxoffice/internal/shared/constants"

	"github.com/redis/go-redis/v9"
)

type RateLimitType string

const (
	RateLimitTypeDefault RateLimitType = "default"
	RateLimitTypeSeat    RateLimitType = "seat"
	RateLimitTypeBooking RateLimitType = "booking"
	RateLimitTypePayment RateLimitType = "payment"
	RateLimitTypeHealth  RateLimitType = "health"
)

type Config struct {
	Enabled         bool          `json:"enabled"`
	WindowDuration  time.Duration `json:"window_duration"`
	DefaultRequests int           `json:"default_requests"`
	SeatRequests    int           `json:"seat_requests"`
	BookingRequests int           `json:"booking_requests"`
	PaymentRequests int           `json:"payment_requests"`
	HealthRequests  int           `json:"health_requests"`
	WhitelistedIPs  []string      `json:"whitelisted_ips"`
}

// Result represents rate limit check result
type Result struct {
	Allowed   bool  `json:"allowed"`
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"reset_time"`
}

// RateLimiter handles rate limiting using Redis
type RateLimiter struct {
	client *redis.Client
	config *Config
}

func NewRateLimiter(client *redis.Client, config *Config) *RateLimiter {
	return &RateLimiter{
		client: client,
		config: config,
	}
}

// Lua script for atomic sliding window rate limiting
var luaSlidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local window_start = tonumber(ARGV[1])
	local now = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_seconds = tonumber(ARGV[4])

	-- Remove old entries
	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local current_count = redis.call('ZCARD', key)

	if current_count >= limit then
		redis.call('EXPIRE', key, window_seconds)
		return {current_count + 1, 0}
	end

	redis.call('ZADD', key, now, ARGV[2])
	redis.call('EXPIRE', key, window_seconds)

	return {current_count + 1, limit - current_count - 1}
`)

// IsAllowed checks if a request is allowed
func (r *RateLimiter) IsAllowed(ctx context.Context, clientIP string, limitType RateLimitType) (*Result, error) {
	limit := r.getLimit(limitType)
	if !r.config.Enabled || r.client == nil || r.isWhitelisted(clientIP) {
		return &Result{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit,
			ResetTime: time.Now().Add(r.config.WindowDuration).Unix(),
		}, nil
	}

	key := constants.BuildRateLimitKey(clientIP, string(limitType))
	return r.checkLimit(ctx, key, limit)
}

// checkLimit performs the sliding window check. Members are nanosecond
// stamps so requests in the same second count separately.
func (r *RateLimiter) checkLimit(ctx context.Context, key string, limit int) (*Result, error) {
	now := time.Now()
	windowStart := now.Add(-r.config.WindowDuration)

	values, err := luaSlidingWindow.Run(ctx, r.client, []string{key},
		windowStart.UnixNano(),
		now.UnixNano(),
		limit,
		int(r.config.WindowDuration.Seconds())).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis eval failed: %w", err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected redis response")
	}

	return &Result{
		Allowed:   int(values[0]) <= limit,
		Limit:     limit,
		Remaining: int(values[1]),
		ResetTime: now.Add(r.config.WindowDuration).Unix(),
	}, nil
}

func (r *RateLimiter) getLimit(limitType RateLimitType) int {
	switch limitType {
	case RateLimitTypeSeat:
		return r.config.SeatRequests
	case RateLimitTypeBooking:
		return r.config.BookingRequests
	case RateLimitTypePayment:
		return r.config.PaymentRequests
	case RateLimitTypeHealth:
		return r.config.HealthRequests
	default:
		return r.config.DefaultRequests
	}
}

func (r *RateLimiter) isWhitelisted(ip string) bool {
	for _, whitelistedIP := range r.config.WhitelistedIPs {
		if ip == whitelistedIP {
			return true
		}
	}
	return false
}
