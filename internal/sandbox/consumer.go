package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"boxoffice/internal/reservation"
	"boxoffice/pkg/logger"

	"github.com/IBM/sarama"
)

// BeaconHandler applies one release beacon
type BeaconHandler interface {
	HandleBeacon(ctx context.Context, b reservation.ReleaseBeacon) error
}

type ConsumerConfig struct {
	Brokers           []string
	GroupID           string
	Topics            []string
	SessionTimeoutMs  int
	HeartbeatMs       int
	RetryBackoffMs    int
	MaxProcessingTime time.Duration
	OffsetOldest      bool
	// Beacons older than this are skipped; the hold has lapsed by then
	MaxBeaconAge time.Duration
}

func DefaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		Brokers:           []string{"localhost:9092"},
		GroupID:           "boxoffice-release-workers",
		Topics:            []string{"seat-release-beacons"},
		SessionTimeoutMs:  30000,
		HeartbeatMs:       3000,
		RetryBackoffMs:    100,
		MaxProcessingTime: 30 * time.Second,
		OffsetOldest:      false,
		MaxBeaconAge:      10 * time.Minute,
	}
}

// ReleaseConsumer drains teardown beacons from Kafka into the hold store
type ReleaseConsumer struct {
	consumerGroup sarama.ConsumerGroup
	config        *ConsumerConfig
	handler       BeaconHandler
	log           *logger.Logger
	wg            sync.WaitGroup
}

func NewReleaseConsumer(config *ConsumerConfig, handler BeaconHandler, log *logger.Logger) (*ReleaseConsumer, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Consumer.Group.Session.Timeout = time.Duration(config.SessionTimeoutMs) * time.Millisecond
	saramaConfig.Consumer.Group.Heartbeat.Interval = time.Duration(config.HeartbeatMs) * time.Millisecond
	saramaConfig.Consumer.Retry.Backoff = time.Duration(config.RetryBackoffMs) * time.Millisecond
	saramaConfig.Consumer.MaxProcessingTime = config.MaxProcessingTime
	saramaConfig.Consumer.Return.Errors = true
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true
	saramaConfig.Consumer.Offsets.AutoCommit.Interval = 1 * time.Second

	if config.OffsetOldest {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	}

	consumerGroup, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	return NewReleaseConsumerWithGroup(consumerGroup, config, handler, log), nil
}

// NewReleaseConsumerWithGroup wraps an existing consumer group
func NewReleaseConsumerWithGroup(group sarama.ConsumerGroup, config *ConsumerConfig, handler BeaconHandler, log *logger.Logger) *ReleaseConsumer {
	if log == nil {
		log = logger.GetDefault()
	}
	return &ReleaseConsumer{
		consumerGroup: group,
		config:        config,
		handler:       handler,
		log:           log.WithComponent("release-consumer"),
	}
}

// Start runs numWorkers consume loops until ctx is done
func (rc *ReleaseConsumer) Start(ctx context.Context, numWorkers int) {
	if numWorkers < 1 {
		numWorkers = 1
	}
	rc.log.InfoWithContext(ctx, "starting release consumers", map[string]interface{}{
		"workers": numWorkers,
		"topics":  rc.config.Topics,
	})

	go rc.handleErrors()

	for i := 0; i < numWorkers; i++ {
		rc.wg.Add(1)
		go func(workerID int) {
			defer rc.wg.Done()
			rc.runWorker(ctx, workerID)
		}(i)
	}
}

func (rc *ReleaseConsumer) runWorker(ctx context.Context, workerID int) {
	handler := &releaseGroupHandler{consumer: rc, workerID: workerID}
	for {
		if ctx.Err() != nil {
			return
		}
		if err := rc.consumerGroup.Consume(ctx, rc.config.Topics, handler); err != nil {
			rc.log.WarnWithContext(ctx, "consume failed", err, map[string]interface{}{"worker": workerID})
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}

func (rc *ReleaseConsumer) handleErrors() {
	for err := range rc.consumerGroup.Errors() {
		rc.log.WarnWithContext(context.Background(), "consumer group error", err, nil)
	}
}

// Stop closes the group and waits for the workers. Cancel Start's ctx first.
func (rc *ReleaseConsumer) Stop() error {
	err := rc.consumerGroup.Close()
	rc.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close consumer group: %w", err)
	}
	rc.log.Info("release consumer stopped")
	return nil
}

type releaseGroupHandler struct {
	consumer *ReleaseConsumer
	workerID int
}

func (h *releaseGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *releaseGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *releaseGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			if err := h.processMessage(session.Context(), message); err != nil {
				h.consumer.log.WarnWithContext(session.Context(), "release beacon not applied", err, map[string]interface{}{
					"worker":    h.workerID,
					"partition": message.Partition,
					"offset":    message.Offset,
				})
			}
			// Beacons are best effort; a failed one is not redelivered
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *releaseGroupHandler) processMessage(ctx context.Context, message *sarama.ConsumerMessage) error {
	var beacon reservation.ReleaseBeacon
	if err := json.Unmarshal(message.Value, &beacon); err != nil {
		return fmt.Errorf("failed to unmarshal beacon: %w", err)
	}

	if age := h.consumer.config.MaxBeaconAge; age > 0 && !beacon.SentAt.IsZero() && time.Since(beacon.SentAt) > age {
		h.consumer.log.DebugWithContext(ctx, "stale release beacon skipped", map[string]interface{}{
			"session_id": beacon.SessionID,
		})
		return nil
	}

	return h.consumer.handler.HandleBeacon(ctx, beacon)
}
