package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Package queue parks usage rows that could not be written to the database.
// Two backends are available:
//
// 1. Memory (slice-based):
//    - No persistence, data lost on restart
//    - Zero external dependencies
//
// 2. Redis (hash-based):
//    - Survives process restarts
//    - Shared by every instance pointing at the same Redis
//
// Items are stored as JSON in both backends so they decode the same way
// when they are replayed.

// DeadLetterQueue defines the interface for handling failed items
type DeadLetterQueue interface {
	// Add adds a failed item to the dead letter queue with error info
	Add(ctx context.Context, item interface{}, err error) error

	// List retrieves items from the dead letter queue, oldest first
	List(ctx context.Context, maxItems int) ([]DeadLetterItem, error)

	// Remove removes an item from the dead letter queue
	Remove(ctx context.Context, id string) error

	// Length returns the number of parked items
	Length(ctx context.Context) (int, error)

	// Close shuts down the dead letter queue
	Close() error
}

// DeadLetterItem represents an item in the dead letter queue
type DeadLetterItem struct {
	ID        string          `json:"id"`
	Item      json.RawMessage `json:"item"`
	Error     string          `json:"error"`
	Timestamp time.Time       `json:"timestamp"`
	Retries   int             `json:"retries"`
}

// Decode unmarshals the parked item into target
func (d DeadLetterItem) Decode(target interface{}) error {
	if err := deserializeItem(d.Item, target); err != nil {
		return fmt.Errorf("failed to decode dead letter item %s: %w", d.ID, err)
	}
	return nil
}

// Config holds dead letter queue configuration
type Config struct {
	// UseRedis indicates whether to use Redis or in-memory storage
	UseRedis bool

	// RedisAddr is the Redis server address (if UseRedis is true)
	RedisAddr string

	// RedisPassword is the Redis password (if UseRedis is true)
	RedisPassword string

	// RedisDB is the Redis database number (if UseRedis is true)
	RedisDB int

	// QueueName is the name/key for the queue
	QueueName string
}

// DefaultConfig returns default queue configuration
func DefaultConfig(queueName string) *Config {
	return &Config{
		UseRedis:  false,
		QueueName: queueName,
	}
}

// New builds the backend selected by config
func New(config *Config) (DeadLetterQueue, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if config.UseRedis {
		return NewRedisDeadLetterQueue(config)
	}
	return NewMemoryDeadLetterQueue(), nil
}
