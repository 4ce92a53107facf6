package reservation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"boxoffice/pkg/logger"
)

// HTTPBeacon posts a release in the background and never reports back,
// the way a page posts a beacon on unload
type HTTPBeacon struct {
	endpoint string
	http     *http.Client
	log      *logger.Logger
	wg       sync.WaitGroup
}

// NewHTTPBeacon targets baseURL + /seats/release
func NewHTTPBeacon(baseURL string, timeout time.Duration, log *logger.Logger) *HTTPBeacon {
	if log == nil {
		log = logger.GetDefault()
	}
	return &HTTPBeacon{
		endpoint: strings.TrimRight(baseURL, "/") + "/seats/release",
		http:     &http.Client{Timeout: timeout},
		log:      log.WithComponent("release-beacon"),
	}
}

func (b *HTTPBeacon) SendRelease(sessionID string, seatIDs []int64) {
	if sessionID == "" || len(seatIDs) == 0 {
		return
	}
	data, err := json.Marshal(ReleaseRequest{SessionID: sessionID, SeatIDs: seatIDs})
	if err != nil {
		b.log.ErrorWithContext(context.Background(), "encode release beacon", err, nil)
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		req, err := http.NewRequest(http.MethodPost, b.endpoint, bytes.NewReader(data))
		if err != nil {
			b.log.WarnWithContext(context.Background(), "release beacon request", err, nil)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := b.http.Do(req)
		if err != nil {
			b.log.WarnWithContext(context.Background(), "release beacon not delivered", err, map[string]interface{}{
				"session_id": sessionID,
			})
			return
		}
		resp.Body.Close()
		b.log.DebugWithContext(context.Background(), "release beacon delivered", map[string]interface{}{
			"session_id": sessionID,
			"status":     resp.StatusCode,
		})
	}()
}

// Flush waits up to timeout for beacons still on the wire. Returns false on timeout.
func (b *HTTPBeacon) Flush(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// AsyncReleaser adapts a Client into a Beacon by releasing on a goroutine
type AsyncReleaser struct {
	client  Client
	timeout time.Duration
	log     *logger.Logger
}

func NewAsyncReleaser(client Client, timeout time.Duration, log *logger.Logger) *AsyncReleaser {
	if log == nil {
		log = logger.GetDefault()
	}
	return &AsyncReleaser{client: client, timeout: timeout, log: log.WithComponent("release-beacon")}
}

func (a *AsyncReleaser) SendRelease(sessionID string, seatIDs []int64) {
	if sessionID == "" || len(seatIDs) == 0 {
		return
	}
	ids := append([]int64(nil), seatIDs...)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if _, err := a.client.ReleaseSeats(ctx, ids, sessionID); err != nil {
			a.log.WarnWithContext(ctx, "background release failed", err, map[string]interface{}{
				"session_id": sessionID,
				"seat_ids":   ids,
			})
		}
	}()
}
