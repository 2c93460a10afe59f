package reconciler

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Farcas-Consult/rams-sub000/pkg/kafka"
)

// KafkaSource reads notifications from the sightings topic. Each source uses
// its own consumer group so it sees every notification, starting from the
// newest offset.
type KafkaSource struct {
	config kafka.SubscriberConfig
	logger ectologger.Logger
}

func NewKafkaSource(brokers []string, topic string, logger ectologger.Logger) *KafkaSource {
	cfg := kafka.DefaultSubscriberConfig()
	cfg.Brokers = brokers
	if topic != "" {
		cfg.Topic = topic
	}
	cfg.GroupID = "rams-watch-" + uuid.NewString()
	cfg.StartOffset = kafka.LastOffset

	return &KafkaSource{
		config: cfg,
		logger: logger,
	}
}

func (k *KafkaSource) Connect(ctx context.Context) (PushStream, error) {
	sub, err := kafka.NewSubscriber(ctx, k.config, k.logger)
	if err != nil {
		return nil, err
	}
	return &kafkaStream{sub: sub}, nil
}

type kafkaStream struct {
	sub *kafka.Subscriber
}

func (s *kafkaStream) Next(ctx context.Context) ([]byte, error) {
	msg, err := s.sub.Next(ctx)
	if err != nil {
		return nil, err
	}
	return msg.Value, nil
}

func (s *kafkaStream) Close() error {
	return s.sub.Close()
}
