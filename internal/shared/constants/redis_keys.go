package constants

import (
	"fmt"
	"time"
)

// Redis key layout
// Pattern: boxoffice:{module}:{operation}:{identifier}

const (
	CACHE_PREFIX = "boxoffice"
)

// ================== TTL DURATIONS ==================

const (
	TTL_DISCOUNT_CATALOGUE = 1 * time.Minute  // available discount listing
	TTL_SEAT_MAP           = 30 * time.Second // rendered seat map without hold state
)

// ================== CHECKOUT SESSION ==================

const (
	// Hash of persisted checkout keys, one per tab
	CACHE_KEY_SESSION = CACHE_PREFIX + ":session:" // + tab-id
)

// ================== SANDBOX HOLDS ==================

const (
	// String: owning session id, or "booked:<code>" once committed to a booking
	CACHE_KEY_SEAT_HOLD = CACHE_PREFIX + ":hold:seat:" // + seat-id

	// Set of seat ids held by one session
	CACHE_KEY_SESSION_HOLDS = CACHE_PREFIX + ":hold:session:" // + session-id

	// String: reservation window expiry, unix milliseconds
	CACHE_KEY_SESSION_WINDOW = CACHE_PREFIX + ":hold:window:" // + session-id

	// Prefix written into CACHE_KEY_SEAT_HOLD values for booked seats
	BOOKED_HOLD_PREFIX = "booked:"
)

// ================== SANDBOX CATALOGUE ==================

const (
	CACHE_KEY_DISCOUNTS_AVAILABLE = CACHE_PREFIX + ":discounts:available"
	CACHE_KEY_SEAT_LAYOUT         = CACHE_PREFIX + ":performances:layout:" // + performance-id
)

// ================== RATE LIMIT ==================

const (
	CACHE_KEY_RATE_LIMIT = CACHE_PREFIX + ":ratelimit:" // + ip:type
)

func BuildSessionKey(tabID string) string {
	return CACHE_KEY_SESSION + tabID
}

func BuildSeatHoldKey(seatID int64) string {
	return fmt.Sprintf("%s%d", CACHE_KEY_SEAT_HOLD, seatID)
}

func BuildSessionHoldsKey(sessionID string) string {
	return CACHE_KEY_SESSION_HOLDS + sessionID
}

func BuildSessionWindowKey(sessionID string) string {
	return CACHE_KEY_SESSION_WINDOW + sessionID
}

func BuildSeatLayoutKey(performanceID int64) string {
	return fmt.Sprintf("%s%d", CACHE_KEY_SEAT_LAYOUT, performanceID)
}

func BuildRateLimitKey(clientIP, limitType string) string {
	return CACHE_KEY_RATE_LIMIT + clientIP + ":" + limitType
}
