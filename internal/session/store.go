package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"boxoffice/pkg/logger"
)

// Store is the typed view over a tab's persisted checkout state.
// Strings are stored as-is, everything else as JSON. An empty stored value
// reads as absent.
type Store struct {
	storage  Storage
	schema   Schema
	preserve []string
	log      *logger.Logger
}

// NewStore creates a store. preserveKeys survive ClearBooking.
func NewStore(storage Storage, log *logger.Logger, preserveKeys ...string) *Store {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Store{
		storage:  storage,
		schema:   DefaultSchema(),
		preserve: preserveKeys,
		log:      log.WithComponent("session"),
	}
}

// Get decodes the value under key into dest. A *string dest receives the
// raw stored text. Returns false when the key is unset.
func (s *Store) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, ok, err := s.storage.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if !ok || raw == "" {
		return false, nil
	}

	if str, isString := dest.(*string); isString {
		*str = raw
		return true, nil
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("session decode %s: %w", key, err)
	}
	return true, nil
}

// GetString returns the raw value under key
func (s *Store) GetString(ctx context.Context, key string) (string, bool, error) {
	var v string
	ok, err := s.Get(ctx, key, &v)
	return v, ok, err
}

// GetTime reads an RFC 3339 timestamp written by SetTime
func (s *Store) GetTime(ctx context.Context, key string) (time.Time, bool, error) {
	v, ok, err := s.GetString(ctx, key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("session decode %s: %w", key, err)
	}
	return t, true, nil
}

// Set writes value under key
func (s *Store) Set(ctx context.Context, key string, value interface{}) error {
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case json.RawMessage:
		raw = string(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("session encode %s: %w", key, err)
		}
		raw = string(data)
	}
	return s.storage.Set(ctx, key, raw)
}

// SetTime writes t as an RFC 3339 string
func (s *Store) SetTime(ctx context.Context, key string, t time.Time) error {
	return s.Set(ctx, key, t.UTC().Format(time.RFC3339Nano))
}

// Remove deletes the given keys
func (s *Store) Remove(ctx context.Context, keys ...string) error {
	return s.storage.Delete(ctx, keys...)
}

// Validate checks each requested key the schema knows about: required keys
// must be present and present values must decode to the declared shape.
// Keys outside the schema are skipped.
func (s *Store) Validate(ctx context.Context, requiredKeys ...string) bool {
	for _, key := range requiredKeys {
		field, known := s.schema[key]
		if !known {
			continue
		}

		raw, ok, err := s.storage.Get(ctx, key)
		if err != nil {
			s.log.WarnWithContext(ctx, "session validate read failed", err, map[string]interface{}{"key": key})
			return false
		}
		present := ok && raw != ""
		if field.Required && !present {
			return false
		}
		if present && !matchesShape(raw, field.Shape) {
			return false
		}
	}
	return true
}

// Clear removes every persisted key except exceptKeys
func (s *Store) Clear(ctx context.Context, exceptKeys ...string) error {
	keys, err := s.storage.Keys(ctx)
	if err != nil {
		return err
	}
	keep := make(map[string]struct{}, len(exceptKeys))
	for _, k := range exceptKeys {
		keep[k] = struct{}{}
	}

	var doomed []string
	for _, k := range keys {
		if _, ok := keep[k]; !ok {
			doomed = append(doomed, k)
		}
	}
	if len(doomed) == 0 {
		return nil
	}
	return s.storage.Delete(ctx, doomed...)
}

// ClearBooking clears everything except the configured preserve list
func (s *Store) ClearBooking(ctx context.Context) error {
	return s.Clear(ctx, s.preserve...)
}

// PreserveKeys returns the keys ClearBooking keeps
func (s *Store) PreserveKeys() []string {
	return append([]string(nil), s.preserve...)
}

func matchesShape(raw string, shape Shape) bool {
	trimmed := bytes.TrimSpace([]byte(raw))
	switch shape {
	case ShapeObject:
		return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
	case ShapeArray:
		return len(trimmed) > 0 && trimmed[0] == '[' && json.Valid(trimmed)
	default:
		if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') && json.Valid(trimmed) {
			return false
		}
		return true
	}
}
