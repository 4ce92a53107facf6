package sandbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"boxoffice/internal/reservation"
	"boxoffice/pkg/logger"

	"github.com/IBM/sarama"
)

type fakeSession struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32               { return nil }
func (s *fakeSession) MemberID() string                         { return "test" }
func (s *fakeSession) GenerationID() int32                      { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)  {}
func (s *fakeSession) Commit()                                  {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context                 { return s.ctx }
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	s.marked = append(s.marked, msg.Offset)
	s.mu.Unlock()
}

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string                            { return "seat-release-beacons" }
func (c *fakeClaim) Partition() int32                         { return 0 }
func (c *fakeClaim) InitialOffset() int64                     { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64               { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

type recordingHandler struct {
	mu      sync.Mutex
	beacons []reservation.ReleaseBeacon
	err     error
}

func (h *recordingHandler) HandleBeacon(_ context.Context, b reservation.ReleaseBeacon) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.beacons = append(h.beacons, b)
	return h.err
}

func beaconMessage(t *testing.T, offset int64, b reservation.ReleaseBeacon) *sarama.ConsumerMessage {
	t.Helper()
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return &sarama.ConsumerMessage{Topic: "seat-release-beacons", Offset: offset, Value: data}
}

func consumeAll(t *testing.T, handler BeaconHandler, msgs ...*sarama.ConsumerMessage) *fakeSession {
	t.Helper()
	rc := &ReleaseConsumer{config: DefaultConsumerConfig(), handler: handler, log: logger.Discard()}
	gh := &releaseGroupHandler{consumer: rc}

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, len(msgs))}
	for _, m := range msgs {
		claim.messages <- m
	}
	close(claim.messages)

	session := &fakeSession{ctx: context.Background()}
	if err := gh.ConsumeClaim(session, claim); err != nil {
		t.Fatalf("consume claim: %v", err)
	}
	return session
}

func TestConsumeClaimAppliesBeacons(t *testing.T) {
	handler := &recordingHandler{}
	session := consumeAll(t, handler,
		beaconMessage(t, 1, reservation.ReleaseBeacon{SessionID: "tab-1", SeatIDs: []int64{4, 5}, SentAt: time.Now()}),
		&sarama.ConsumerMessage{Offset: 2, Value: []byte("{not json")},
		beaconMessage(t, 3, reservation.ReleaseBeacon{SessionID: "tab-2", SeatIDs: []int64{9}, SentAt: time.Now().Add(-time.Hour)}),
	)

	if len(handler.beacons) != 1 || handler.beacons[0].SessionID != "tab-1" {
		t.Fatalf("beacons = %+v", handler.beacons)
	}
	if len(session.marked) != 3 {
		t.Fatalf("marked = %v, want every offset", session.marked)
	}
}

func TestConsumeClaimMarksFailedBeacons(t *testing.T) {
	handler := &recordingHandler{err: errors.New("hold store down")}
	session := consumeAll(t, handler,
		beaconMessage(t, 7, reservation.ReleaseBeacon{SessionID: "tab-1", SeatIDs: []int64{1}}),
	)
	if len(handler.beacons) != 1 || len(session.marked) != 1 {
		t.Fatalf("beacons = %d, marked = %v", len(handler.beacons), session.marked)
	}
}

func TestConsumedBeaconReleasesHolds(t *testing.T) {
	h := newHarness(t)
	h.reserve(t, "tab-1", 30)

	consumeAll(t, h.svc, beaconMessage(t, 1, reservation.ReleaseBeacon{SessionID: "tab-1", SeatIDs: []int64{30}, SentAt: time.Now()}))

	if h.seatStatus(t, 30) != reservation.SeatAvailable {
		t.Fatal("beacon did not free the seat")
	}
}

func TestConsumeClaimStopsWithSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rc := &ReleaseConsumer{config: DefaultConsumerConfig(), handler: &recordingHandler{}, log: logger.Discard()}
	gh := &releaseGroupHandler{consumer: rc}

	done := make(chan error, 1)
	go func() {
		done <- gh.ConsumeClaim(&fakeSession{ctx: ctx}, &fakeClaim{messages: make(chan *sarama.ConsumerMessage)})
	}()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("err = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ConsumeClaim did not return after cancel")
	}
}
