package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"boxoffice/pkg/logger"

	"github.com/redis/go-redis/v9"
)

type layout struct {
	Rows  []string `json:"rows"`
	Seats int      `json:"seats"`
}

func newTestService(t *testing.T) Service {
	t.Helper()
	addr := os.Getenv("BOXOFFICE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("BOXOFFICE_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(client, logger.Discard())
}

func TestSetGetDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	key := "boxoffice:test:layout:" + time.Now().Format("150405.000000")

	if err := svc.Set(ctx, key, layout{Rows: []string{"A", "B"}, Seats: 20}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got layout
	if err := svc.Get(ctx, key, &got); err != nil || got.Seats != 20 || len(got.Rows) != 2 {
		t.Fatalf("get = %+v, %v", got, err)
	}
	if err := svc.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Get(ctx, key, &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("err = %v, want ErrCacheMiss", err)
	}
}

func TestGetOrSetFillsDestOnMiss(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	key := "boxoffice:test:getorset:" + time.Now().Format("150405.000000")
	defer svc.Delete(ctx, key)

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return layout{Rows: []string{"H"}, Seats: 14}, nil
	}
	var got layout
	if err := svc.GetOrSet(ctx, key, time.Minute, fetch, &got); err != nil || got.Seats != 14 {
		t.Fatalf("get or set = %+v, %v", got, err)
	}
	if calls != 1 {
		t.Fatalf("fetcher called %d times", calls)
	}

	wantErr := errors.New("catalogue down")
	err := svc.GetOrSet(ctx, key+":other", time.Minute, func() (interface{}, error) { return nil, wantErr }, &got)
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want fetcher error", err)
	}
}
