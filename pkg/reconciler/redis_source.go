package reconciler

import (
	"context"

	"github.com/Farcas-Consult/rams-sub000/pkg/redis"
)

// RedisSource reads notifications from a Redis pub/sub channel
type RedisSource struct {
	client  *redis.Client
	channel string
}

func NewRedisSource(client *redis.Client, channel string) *RedisSource {
	return &RedisSource{
		client:  client,
		channel: channel,
	}
}

func (r *RedisSource) Connect(ctx context.Context) (PushStream, error) {
	sub, err := r.client.Subscribe(ctx, r.channel)
	if err != nil {
		return nil, err
	}
	return sub, nil
}
