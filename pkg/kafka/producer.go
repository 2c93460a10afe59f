package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Farcas-Consult/rams-sub000/pkg/models"
	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
)

// EventTypeSighting is the event_type header of sighting messages
const EventTypeSighting = "sighting"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
	Stats() kafka.WriterStats
}

// Producer publishes sighting notifications to Kafka
type Producer struct {
	writer messageWriter
	logger ectologger.Logger
	config ProducerConfig
}

func compressionCodec(name string) kafka.Compression {
	switch name {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return 0
	}
}

// NewProducer creates a new Kafka producer
func NewProducer(config ProducerConfig, logger ectologger.Logger) (*Producer, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Topic:                  config.Topic,
		Balancer:               &kafka.Hash{}, // same epc, same partition, so per-tag order holds
		BatchSize:              config.BatchSize,
		BatchTimeout:           config.BatchTimeout,
		MaxAttempts:            config.MaxAttempts,
		WriteTimeout:           config.WriteTimeout,
		Async:                  config.Async,
		Compression:            compressionCodec(config.Compression),
		RequiredAcks:           kafka.RequiredAcks(config.RequiredAcks),
		AllowAutoTopicCreation: true,
	}
	if config.Async {
		writer.Completion = func(messages []kafka.Message, err error) {
			if err != nil {
				logger.WithError(err).Errorf("Failed to deliver %d sighting messages", len(messages))
			}
		}
	}

	return &Producer{
		writer: writer,
		logger: logger,
		config: config,
	}, nil
}

// PublishSighting publishes one notification keyed by EPC
func (p *Producer) PublishSighting(ctx context.Context, n models.SightingNotification, headers MessageHeaders) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to serialize sighting: %w", err)
	}

	headers.EventType = EventTypeSighting
	kafkaHeaders := make([]kafka.Header, 0, 4)
	for _, h := range headers.ToKafkaHeaders() {
		kafkaHeaders = append(kafkaHeaders, kafka.Header{Key: h.Key, Value: h.Value})
	}

	msg := kafka.Message{
		Key:     []byte(n.EPC),
		Value:   data,
		Headers: kafkaHeaders,
		Time:    n.Timestamp,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish sighting: %w", err)
	}
	return nil
}

// Topic returns the topic sightings are published to
func (p *Producer) Topic() string {
	return p.config.Topic
}

// Close flushes pending messages and closes the producer
func (p *Producer) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close producer: %w", err)
	}
	p.logger.Info("Kafka producer closed")
	return nil
}

// Stats returns producer statistics
func (p *Producer) Stats() kafka.WriterStats {
	return p.writer.Stats()
}
