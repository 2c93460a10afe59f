package kafka

import (
	"time"
)

// ProducerConfig configures the sighting producer
type ProducerConfig struct {
	Brokers []string

	// Topic receives one message per accepted read
	Topic string

	BatchSize int

	// BatchTimeout bounds how long a notification waits in a partial batch
	BatchTimeout time.Duration

	// RequiredAcks: 0 = none, 1 = leader, -1 = all replicas
	RequiredAcks int

	// Async makes writes fire-and-forget; errors are only logged
	Async bool

	MaxAttempts int

	WriteTimeout time.Duration

	// Compression is one of none, gzip, snappy, lz4, zstd
	Compression string
}

func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Brokers:      []string{"localhost:9092"},
		Topic:        "rams.sightings",
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: 1,
		Async:        false,
		MaxAttempts:  3,
		WriteTimeout: 5 * time.Second,
		Compression:  "snappy",
	}
}

// SubscriberConfig configures a live-view subscriber
type SubscriberConfig struct {
	Brokers []string

	Topic string

	// GroupID should be unique per subscriber so every subscriber sees every
	// notification
	GroupID string

	MinBytes int

	MaxBytes int

	MaxWait time.Duration

	// StartOffset applies when the group has no committed offset.
	// FirstOffset reads from the beginning, LastOffset only new messages.
	StartOffset int64

	// DialTimeout bounds the reachability probe made when subscribing
	DialTimeout time.Duration
}

func DefaultSubscriberConfig() SubscriberConfig {
	return SubscriberConfig{
		Brokers:     []string{"localhost:9092"},
		Topic:       "rams.sightings",
		MinBytes:    1,
		MaxBytes:    1e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: LastOffset,
		DialTimeout: 5 * time.Second,
	}
}

// Offset constants
const (
	FirstOffset int64 = -2 // Start from the oldest message
	LastOffset  int64 = -1 // Start from the newest message
)
