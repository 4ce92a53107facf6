package reservation

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"boxoffice/pkg/logger"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
)

func TestHTTPBeaconReturnsBeforeDelivery(t *testing.T) {
	release := make(chan struct{})
	got := make(chan ReleaseRequest, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ReleaseRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		<-release
		got <- req
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b := NewHTTPBeacon(srv.URL, time.Second, logger.Discard())

	start := time.Now()
	b.SendRelease("session_1", []int64{4, 5})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("SendRelease blocked on the network")
	}

	close(release)
	if !b.Flush(2 * time.Second) {
		t.Fatal("beacon never finished")
	}
	req := <-got
	if req.SessionID != "session_1" || len(req.SeatIDs) != 2 {
		t.Fatalf("beacon body = %+v", req)
	}
}

func TestHTTPBeaconSkipsEmptyInput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer srv.Close()

	b := NewHTTPBeacon(srv.URL, time.Second, logger.Discard())
	b.SendRelease("", []int64{1})
	b.SendRelease("session_1", nil)
	b.Flush(time.Second)
}

func TestKafkaBeaconPublishesRelease(t *testing.T) {
	producer := mocks.NewAsyncProducer(t, nil)
	producer.ExpectInputWithCheckerFunctionAndSucceed(func(val []byte) error {
		var msg ReleaseBeacon
		if err := json.Unmarshal(val, &msg); err != nil {
			return err
		}
		if msg.SessionID != "session_9" || len(msg.SeatIDs) != 3 {
			return fmt.Errorf("unexpected beacon %+v", msg)
		}
		return nil
	})

	b := NewKafkaBeaconWithProducer(producer, "seat-release-beacons", logger.Discard())
	b.SendRelease("session_9", []int64{1, 2, 3})
	b.SendRelease("", []int64{1})

	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestKafkaBeaconLogsFailures(t *testing.T) {
	producer := mocks.NewAsyncProducer(t, nil)
	producer.ExpectInputAndFail(sarama.ErrOutOfBrokers)

	b := NewKafkaBeaconWithProducer(producer, "seat-release-beacons", logger.Discard())
	b.SendRelease("session_9", []int64{1})

	// A failed publish is drained and logged, not returned
	_ = b.Close()
}
