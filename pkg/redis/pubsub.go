package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publish sends payload, JSON encoded, to every subscriber of channel and
// returns how many received it.
func (c *Client) Publish(ctx context.Context, channel string, payload any) (int64, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize message for %s: %w", channel, err)
	}

	receivers, err := c.rdb.Publish(ctx, channel, data).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return receivers, nil
}

// Subscription is an open pub/sub subscription
type Subscription struct {
	pubsub  *redis.PubSub
	channel string
	client  *Client
}

// Subscribe subscribes to channel and waits for the server to confirm it,
// so a dead connection fails here rather than on the first Next.
func (c *Client) Subscribe(ctx context.Context, channel string) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	c.logger.WithContext(ctx).Debugf("Subscribed to Redis channel %s", channel)

	return &Subscription{
		pubsub:  pubsub,
		channel: channel,
		client:  c,
	}, nil
}

// Next blocks until the next message on the channel
func (s *Subscription) Next(ctx context.Context) ([]byte, error) {
	msg, err := s.pubsub.ReceiveMessage(ctx)
	if err != nil {
		return nil, err
	}
	return []byte(msg.Payload), nil
}

func (s *Subscription) Close() error {
	s.client.logger.Debugf("Unsubscribed from Redis channel %s", s.channel)
	return s.pubsub.Close()
}
