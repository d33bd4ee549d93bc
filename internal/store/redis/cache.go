package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SnapshotGeneration returns the owner's current cache generation, 0 when
// it was never invalidated.
func (s *Store) SnapshotGeneration(ctx context.Context, ownerID string) (int64, error) {
	gen, err := s.client.Get(ctx, SnapshotGenKey(ownerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read snapshot generation: %w", err)
	}
	return gen, nil
}

// PutSnapshot caches an owner's list under gen. Once the generation moves
// on the entry is unreachable and left to expire.
func (s *Store) PutSnapshot(ctx context.Context, ownerID string, gen int64, items []domain.Bookmark, ttl time.Duration) error {
	if items == nil {
		items = []domain.Bookmark{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, SnapshotKey(ownerID, gen), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache snapshot: %w", err)
	}
	return nil
}

// GetSnapshot retrieves the list cached under gen
func (s *Store) GetSnapshot(ctx context.Context, ownerID string, gen int64) ([]domain.Bookmark, bool, error) {
	data, err := s.client.Get(ctx, SnapshotKey(ownerID, gen)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil // Cache miss
		}
		return nil, false, fmt.Errorf("failed to get cached snapshot: %w", err)
	}

	items := make([]domain.Bookmark, 0)
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return items, true, nil
}

// InvalidateSnapshot advances the owner's generation. Lists read before
// this call can no longer be cached or served.
func (s *Store) InvalidateSnapshot(ctx context.Context, ownerID string) error {
	if err := s.client.Incr(ctx, SnapshotGenKey(ownerID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate snapshot: %w", err)
	}
	return nil
}

// FlushSnapshots removes all cached lists. Generations are kept so that
// they never go backwards while other instances are running.
func (s *Store) FlushSnapshots(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, KeyPrefixSnapshot+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete snapshot key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to flush snapshots: %w", err)
	}
	return nil
}
