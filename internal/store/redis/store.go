// Package redis holds the Redis-backed state shared between server
// instances: session records and the per-owner list snapshot cache.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultSnapshotTTL bounds how long a cached list may be served
	DefaultSnapshotTTL = 5 * time.Minute
)

// Store handles Redis operations for sessions and cache
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// Ping checks that Redis answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
