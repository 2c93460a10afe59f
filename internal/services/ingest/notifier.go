package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	appctx "github.com/Farcas-Consult/rams-sub000/pkg/context"
	"github.com/Farcas-Consult/rams-sub000/pkg/kafka"
	"github.com/Farcas-Consult/rams-sub000/pkg/metrics"
	"github.com/Farcas-Consult/rams-sub000/pkg/models"
	"github.com/Farcas-Consult/rams-sub000/pkg/redis"
	"github.com/Farcas-Consult/rams-sub000/pkg/tracing"
)

const (
	sightingEventType = "sighting"

	// DefaultPublishTimeout bounds one notification across all sinks
	DefaultPublishTimeout = 5 * time.Second
)

// Sink is one destination of the push channel
type Sink interface {
	Name() string
	Publish(ctx context.Context, n models.SightingNotification) error
}

// Notifier fans a sighting out to every sink in the background. Failures are
// logged and counted, never returned.
type Notifier struct {
	sinks   []Sink
	timeout time.Duration
	logger  ectologger.Logger
	wg      sync.WaitGroup
}

func NewNotifier(logger ectologger.Logger, sinks ...Sink) *Notifier {
	return &Notifier{
		sinks:   sinks,
		timeout: DefaultPublishTimeout,
		logger:  logger,
	}
}

// Notify returns immediately. Publishing keeps the request values of ctx but
// not its cancellation, so a client hanging up does not drop the sighting.
func (n *Notifier) Notify(ctx context.Context, notification models.SightingNotification) {
	if n == nil || len(n.sinks) == 0 {
		return
	}

	ctx = context.WithoutCancel(ctx)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()
		n.publish(ctx, notification)
	}()
}

// Wait blocks until every pending notification has been published or has
// timed out.
func (n *Notifier) Wait() {
	if n == nil {
		return
	}
	n.wg.Wait()
}

func (n *Notifier) publish(ctx context.Context, notification models.SightingNotification) {
	for _, sink := range n.sinks {
		start := time.Now()
		err := sink.Publish(ctx, notification)
		metrics.RecordPublish(sink.Name(), err, time.Since(start).Seconds())
		if err != nil {
			n.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"sink": sink.Name(),
				"epc":  notification.EPC,
			}).Warn("Failed to publish sighting")
		}
	}
}

// KafkaSink publishes to the sightings topic keyed by epc
type KafkaSink struct {
	producer *kafka.Producer
}

func NewKafkaSink(producer *kafka.Producer) *KafkaSink {
	return &KafkaSink{producer: producer}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Publish(ctx context.Context, n models.SightingNotification) error {
	readerID := ""
	if n.ReaderID != nil {
		readerID = *n.ReaderID
	}
	return s.producer.PublishSighting(ctx, n, kafka.MessageHeaders{
		EventType:   sightingEventType,
		ReaderID:    readerID,
		RequestID:   appctx.GetRequestID(ctx),
		TraceParent: tracing.GetTraceParent(ctx),
	})
}

// RedisSink publishes to a pub/sub channel
type RedisSink struct {
	client  *redis.Client
	channel string
}

func NewRedisSink(client *redis.Client, channel string) *RedisSink {
	return &RedisSink{
		client:  client,
		channel: channel,
	}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Publish(ctx context.Context, n models.SightingNotification) error {
	_, err := s.client.Publish(ctx, s.channel, n)
	return err
}
