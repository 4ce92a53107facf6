package reservation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"boxoffice/pkg/logger"

	"github.com/IBM/sarama"
)

// KafkaBeaconConfig contains configuration for the release beacon producer
type KafkaBeaconConfig struct {
	Brokers         []string
	Topic           string
	RetryMax        int
	TimeoutMs       int
	RequiredAcks    sarama.RequiredAcks
	CompressionType sarama.CompressionCodec
	FlushFrequency  time.Duration
}

// DefaultKafkaBeaconConfig returns a default producer configuration
func DefaultKafkaBeaconConfig() *KafkaBeaconConfig {
	return &KafkaBeaconConfig{
		Brokers:         []string{"localhost:9092"},
		Topic:           "seat-release-beacons",
		RetryMax:        3,
		TimeoutMs:       5000,
		RequiredAcks:    sarama.WaitForLocal,
		CompressionType: sarama.CompressionSnappy,
		FlushFrequency:  100 * time.Millisecond,
	}
}

// KafkaBeacon enqueues release beacons on an async producer. A full input
// queue drops the beacon rather than block teardown.
type KafkaBeacon struct {
	producer sarama.AsyncProducer
	topic    string
	log      *logger.Logger
	done     chan struct{}
}

// NewKafkaBeacon creates a beacon backed by a new sarama async producer
func NewKafkaBeacon(config *KafkaBeaconConfig, log *logger.Logger) (*KafkaBeacon, error) {
	saramaConfig := sarama.NewConfig()

	saramaConfig.Producer.Return.Successes = false
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = config.RequiredAcks
	saramaConfig.Producer.Compression = config.CompressionType
	saramaConfig.Producer.Retry.Max = config.RetryMax
	saramaConfig.Producer.Timeout = time.Duration(config.TimeoutMs) * time.Millisecond
	saramaConfig.Producer.Flush.Frequency = config.FlushFrequency

	// Keep a session's beacons on one partition so releases stay ordered
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewAsyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka beacon producer: %w", err)
	}
	return NewKafkaBeaconWithProducer(producer, config.Topic, log), nil
}

// NewKafkaBeaconWithProducer wraps an existing producer
func NewKafkaBeaconWithProducer(producer sarama.AsyncProducer, topic string, log *logger.Logger) *KafkaBeacon {
	if log == nil {
		log = logger.GetDefault()
	}
	b := &KafkaBeacon{
		producer: producer,
		topic:    topic,
		log:      log.WithComponent("kafka-beacon"),
		done:     make(chan struct{}),
	}
	go b.drainErrors()
	return b
}

func (b *KafkaBeacon) SendRelease(sessionID string, seatIDs []int64) {
	if sessionID == "" || len(seatIDs) == 0 {
		return
	}
	payload, err := json.Marshal(ReleaseBeacon{
		SessionID: sessionID,
		SeatIDs:   seatIDs,
		SentAt:    time.Now().UTC(),
	})
	if err != nil {
		b.log.ErrorWithContext(context.Background(), "encode release beacon", err, nil)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(sessionID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("message_type"), Value: []byte("seat_release")},
		},
	}

	select {
	case b.producer.Input() <- msg:
	default:
		b.log.WarnWithContext(context.Background(), "release beacon dropped, producer queue full", nil, map[string]interface{}{
			"session_id": sessionID,
		})
	}
}

// Close flushes buffered beacons and shuts the producer down
func (b *KafkaBeacon) Close() error {
	err := b.producer.Close()
	<-b.done
	if err != nil {
		return fmt.Errorf("failed to close Kafka beacon producer: %w", err)
	}
	return nil
}

func (b *KafkaBeacon) drainErrors() {
	defer close(b.done)
	for perr := range b.producer.Errors() {
		b.log.WarnWithContext(context.Background(), "release beacon publish failed", perr.Err, map[string]interface{}{
			"topic": b.topic,
		})
	}
}
