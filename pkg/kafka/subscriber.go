package kafka

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
)

// Subscriber reads sighting messages for a single live-view client
type Subscriber struct {
	reader *kafka.Reader
	logger ectologger.Logger
	config SubscriberConfig
}

// NewSubscriber probes the first reachable broker for the topic and then
// opens a group reader on it. The probe makes an unreachable cluster fail
// here instead of blocking inside Next.
func NewSubscriber(ctx context.Context, config SubscriberConfig, logger ectologger.Logger) (*Subscriber, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if config.GroupID == "" {
		return nil, fmt.Errorf("group ID is required")
	}

	if err := probe(ctx, config); err != nil {
		return nil, err
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     config.Brokers,
		Topic:       config.Topic,
		GroupID:     config.GroupID,
		MinBytes:    config.MinBytes,
		MaxBytes:    config.MaxBytes,
		MaxWait:     config.MaxWait,
		StartOffset: config.StartOffset,
	})

	logger.Infof("Kafka subscriber started for topic %s (group: %s)", config.Topic, config.GroupID)

	return &Subscriber{
		reader: reader,
		logger: logger,
		config: config,
	}, nil
}

func probe(ctx context.Context, config SubscriberConfig) error {
	if config.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.DialTimeout)
		defer cancel()
	}

	var lastErr error
	for _, broker := range config.Brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = conn.ReadPartitions(config.Topic)
		_ = conn.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("no kafka broker reachable for topic %s: %w", config.Topic, lastErr)
}

// Next blocks until the next message arrives. Offsets are committed by the
// group reader as messages are read.
func (s *Subscriber) Next(ctx context.Context) (*ReceivedMessage, error) {
	msg, err := s.reader.ReadMessage(ctx)
	if err != nil {
		return nil, err
	}

	headers := make([]Header, len(msg.Headers))
	for i, h := range msg.Headers {
		headers[i] = Header{Key: h.Key, Value: h.Value}
	}

	return &ReceivedMessage{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   ExtractHeaders(headers),
	}, nil
}

// Close leaves the consumer group and closes the reader
func (s *Subscriber) Close() error {
	if err := s.reader.Close(); err != nil {
		return fmt.Errorf("failed to close reader: %w", err)
	}
	s.logger.Info("Kafka subscriber stopped")
	return nil
}
