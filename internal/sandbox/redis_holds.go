package sandbox

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"boxoffice/internal/shared/constants"
	"boxoffice/pkg/clock"

	"github.com/redis/go-redis/v9"
)

// Lua script for atomic seat reserve against the session's shared window
var luaReserve = redis.NewScript(`
-- KEYS[1] = session holds set
-- KEYS[2] = session window
-- ARGV[1] = session_id
-- ARGV[2] = ttl_ms
-- ARGV[3] = now_ms
-- ARGV[4] = max seats
-- ARGV[5] = seat key prefix
-- ARGV[6..N] = seat_ids

local holds_key = KEYS[1]
local window_key = KEYS[2]
local session_id = ARGV[1]
local ttl = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local max = tonumber(ARGV[4])
local prefix = ARGV[5]

-- Live holds of this session; lapsed members are dropped from the set
local current = {}
local current_count = 0
local members = redis.call("SMEMBERS", holds_key)
for i = 1, #members do
    if redis.call("GET", prefix .. members[i]) == session_id then
        current[members[i]] = true
        current_count = current_count + 1
    else
        redis.call("SREM", holds_key, members[i])
    end
end

local requested = {}
local requested_count = 0
local union = current_count
for i = 6, #ARGV do
    local seat_id = ARGV[i]
    if not requested[seat_id] then
        requested[seat_id] = true
        requested_count = requested_count + 1
        if not current[seat_id] then
            union = union + 1
        end
    end
end

if union > max then
    return {-1, current_count, requested_count}
end

-- Any seat owned by another session or a booking fails the whole request
for i = 6, #ARGV do
    local owner = redis.call("GET", prefix .. ARGV[i])
    if owner and owner ~= session_id then
        return {0, ARGV[i]}
    end
end

local expires = tonumber(redis.call("GET", window_key) or "0")
if expires <= now then
    expires = now + ttl
end
local remaining = expires - now

for i = 6, #ARGV do
    redis.call("SET", prefix .. ARGV[i], session_id, "PX", remaining)
    redis.call("SADD", holds_key, ARGV[i])
end
redis.call("PEXPIRE", holds_key, remaining)
redis.call("SET", window_key, tostring(expires), "PX", remaining)

return {1, expires}
`)

// Lua script for atomic release of a session's own holds
var luaRelease = redis.NewScript(`
-- KEYS[1] = session holds set
-- KEYS[2] = session window
-- ARGV[1] = session_id
-- ARGV[2] = seat key prefix
-- ARGV[3..N] = seat_ids

local holds_key = KEYS[1]
local window_key = KEYS[2]
local session_id = ARGV[1]
local prefix = ARGV[2]

local released = 0
for i = 3, #ARGV do
    local seat_key = prefix .. ARGV[i]
    if redis.call("GET", seat_key) == session_id then
        redis.call("DEL", seat_key)
        released = released + 1
    end
    redis.call("SREM", holds_key, ARGV[i])
end

if redis.call("SCARD", holds_key) == 0 then
    redis.call("DEL", window_key)
end

return released
`)

// Lua script that hands a session's holds over to a booking
var luaCommit = redis.NewScript(`
-- KEYS[1] = session holds set
-- KEYS[2] = session window
-- ARGV[1] = session_id
-- ARGV[2] = seat key prefix
-- ARGV[3] = booked owner value
-- ARGV[4] = ttl_ms
-- ARGV[5..N] = seat_ids

local holds_key = KEYS[1]
local window_key = KEYS[2]
local session_id = ARGV[1]
local prefix = ARGV[2]
local booked = ARGV[3]
local ttl = tonumber(ARGV[4])

for i = 5, #ARGV do
    if redis.call("GET", prefix .. ARGV[i]) ~= session_id then
        return {0, ARGV[i]}
    end
end

for i = 5, #ARGV do
    redis.call("SET", prefix .. ARGV[i], booked, "PX", ttl)
    redis.call("SREM", holds_key, ARGV[i])
end

if redis.call("SCARD", holds_key) == 0 then
    redis.call("DEL", window_key)
end

return {1, #ARGV - 4}
`)

// Lua script that settles or frees a booking's seats
var luaBooked = redis.NewScript(`
-- ARGV[1] = "settle" or "free"
-- ARGV[2] = seat key prefix
-- ARGV[3] = booked owner value
-- ARGV[4..N] = seat_ids

local mode = ARGV[1]
local prefix = ARGV[2]
local booked = ARGV[3]

local touched = 0
for i = 4, #ARGV do
    local seat_key = prefix .. ARGV[i]
    if redis.call("GET", seat_key) == booked then
        if mode == "settle" then
            redis.call("PERSIST", seat_key)
        else
            redis.call("DEL", seat_key)
        end
        touched = touched + 1
    end
end

return touched
`)

// RedisHoldStore is a HoldStore shared by every sandbox replica
type RedisHoldStore struct {
	redis *redis.Client
	clock clock.Clock
}

func NewRedisHoldStore(client *redis.Client, c clock.Clock) *RedisHoldStore {
	if c == nil {
		c = clock.New()
	}
	return &RedisHoldStore{redis: client, clock: c}
}

// PreloadScripts loads the Lua scripts so the first reserve skips the EVAL fallback
func (r *RedisHoldStore) PreloadScripts(ctx context.Context) error {
	for name, script := range map[string]*redis.Script{
		"reserve": luaReserve,
		"release": luaRelease,
		"commit":  luaCommit,
		"booked":  luaBooked,
	} {
		if err := script.Load(ctx, r.redis).Err(); err != nil {
			return fmt.Errorf("failed to load %s script: %w", name, err)
		}
	}
	return nil
}

func (r *RedisHoldStore) Reserve(ctx context.Context, sessionID string, seatIDs []int64, ttl time.Duration, max int) (time.Time, error) {
	keys := []string{constants.BuildSessionHoldsKey(sessionID), constants.BuildSessionWindowKey(sessionID)}
	args := []interface{}{
		sessionID,
		ttl.Milliseconds(),
		r.clock.Now().UnixMilli(),
		max,
		constants.CACHE_KEY_SEAT_HOLD,
	}
	args = appendIDs(args, seatIDs)

	result, err := luaReserve.Run(ctx, r.redis, keys, args...).Slice()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to execute atomic seat reserve: %w", err)
	}
	if len(result) < 2 {
		return time.Time{}, fmt.Errorf("unexpected result format from reserve script")
	}

	flag, _ := result[0].(int64)
	switch flag {
	case 1:
		ms, ok := result[1].(int64)
		if !ok {
			return time.Time{}, fmt.Errorf("invalid window in reserve script result")
		}
		return time.UnixMilli(ms).UTC(), nil
	case 0:
		id, err := parseSeatID(result[1])
		if err != nil {
			return time.Time{}, err
		}
		return time.Time{}, &ConflictError{SeatID: id}
	default:
		if len(result) != 3 {
			return time.Time{}, fmt.Errorf("unexpected limit result from reserve script")
		}
		current, _ := result[1].(int64)
		requested, _ := result[2].(int64)
		return time.Time{}, &LimitError{Current: int(current), Requested: int(requested), Max: max}
	}
}

func (r *RedisHoldStore) Release(ctx context.Context, sessionID string, seatIDs []int64) (int, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	keys := []string{constants.BuildSessionHoldsKey(sessionID), constants.BuildSessionWindowKey(sessionID)}
	args := appendIDs([]interface{}{sessionID, constants.CACHE_KEY_SEAT_HOLD}, seatIDs)

	n, err := luaRelease.Run(ctx, r.redis, keys, args...).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to execute atomic seat release: %w", err)
	}
	return n, nil
}

func (r *RedisHoldStore) SessionHolds(ctx context.Context, sessionID string) ([]int64, time.Time, error) {
	members, err := r.redis.SMembers(ctx, constants.BuildSessionHoldsKey(sessionID)).Result()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to read session holds: %w", err)
	}
	if len(members) == 0 {
		return nil, time.Time{}, nil
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	owners, err := r.Owners(ctx, ids)
	if err != nil {
		return nil, time.Time{}, err
	}
	live := ids[:0]
	for _, id := range ids {
		if owners[id] == sessionID {
			live = append(live, id)
		}
	}
	if len(live) == 0 {
		return nil, time.Time{}, nil
	}
	sort.Slice(live, func(i, j int) bool { return live[i] < live[j] })

	ms, err := r.redis.Get(ctx, constants.BuildSessionWindowKey(sessionID)).Int64()
	if err != nil && err != redis.Nil {
		return nil, time.Time{}, fmt.Errorf("failed to read session window: %w", err)
	}
	var window time.Time
	if ms > 0 {
		window = time.UnixMilli(ms).UTC()
	}
	return live, window, nil
}

func (r *RedisHoldStore) Owners(ctx context.Context, seatIDs []int64) (map[int64]string, error) {
	out := make(map[int64]string)
	if len(seatIDs) == 0 {
		return out, nil
	}
	keys := make([]string, len(seatIDs))
	for i, id := range seatIDs {
		keys[i] = constants.BuildSeatHoldKey(id)
	}
	values, err := r.redis.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read seat holds: %w", err)
	}
	for i, v := range values {
		if s, ok := v.(string); ok && s != "" {
			out[seatIDs[i]] = s
		}
	}
	return out, nil
}

func (r *RedisHoldStore) Commit(ctx context.Context, sessionID, bookingCode string, seatIDs []int64, until time.Time) error {
	ttl := until.Sub(r.clock.Now())
	if ttl <= 0 {
		return fmt.Errorf("booking window already over")
	}
	keys := []string{constants.BuildSessionHoldsKey(sessionID), constants.BuildSessionWindowKey(sessionID)}
	args := appendIDs([]interface{}{
		sessionID,
		constants.CACHE_KEY_SEAT_HOLD,
		BookedOwner(bookingCode),
		ttl.Milliseconds(),
	}, seatIDs)

	result, err := luaCommit.Run(ctx, r.redis, keys, args...).Slice()
	if err != nil {
		return fmt.Errorf("failed to execute atomic seat commit: %w", err)
	}
	if len(result) != 2 {
		return fmt.Errorf("unexpected result format from commit script")
	}
	if flag, _ := result[0].(int64); flag == 0 {
		id, err := parseSeatID(result[1])
		if err != nil {
			return err
		}
		return &MissingHoldError{SeatID: id}
	}
	return nil
}

func (r *RedisHoldStore) Settle(ctx context.Context, bookingCode string, seatIDs []int64) error {
	_, err := r.booked(ctx, "settle", bookingCode, seatIDs)
	return err
}

func (r *RedisHoldStore) Free(ctx context.Context, bookingCode string, seatIDs []int64) (int, error) {
	return r.booked(ctx, "free", bookingCode, seatIDs)
}

func (r *RedisHoldStore) booked(ctx context.Context, mode, bookingCode string, seatIDs []int64) (int, error) {
	if len(seatIDs) == 0 {
		return 0, nil
	}
	args := appendIDs([]interface{}{mode, constants.CACHE_KEY_SEAT_HOLD, BookedOwner(bookingCode)}, seatIDs)
	n, err := luaBooked.Run(ctx, r.redis, nil, args...).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to %s booked seats: %w", mode, err)
	}
	return n, nil
}

func appendIDs(args []interface{}, ids []int64) []interface{} {
	for _, id := range ids {
		args = append(args, strconv.FormatInt(id, 10))
	}
	return args
}

func parseSeatID(v interface{}) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("invalid seat id in script result")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid seat id in script result: %w", err)
	}
	return id, nil
}
