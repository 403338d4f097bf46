package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the redis-backed durable store for the engine's persisted layout:
// root id, metadata overlay, import job/lock, alarms and timestamps.
//
// Records have no TTL; everything here must survive process restarts.
type Store struct {
	client *redis.Client
}

// NewStore creates a new redis store.
func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}

// RootID returns the persisted managed-root id, or "" when none is set.
func (s *Store) RootID(ctx context.Context) (string, error) {
	id, err := s.client.Get(ctx, KeyRootID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get root id: %w", err)
	}
	return id, nil
}

// SaveRootID persists the managed-root id.
func (s *Store) SaveRootID(ctx context.Context, id string) error {
	if err := s.client.Set(ctx, KeyRootID, id, 0).Err(); err != nil {
		return fmt.Errorf("failed to save root id: %w", err)
	}
	return nil
}

// Timestamp returns when the named job last ran, zero when never.
func (s *Store) Timestamp(ctx context.Context, name string) (time.Time, error) {
	v, err := s.client.Get(ctx, TimestampKey(name)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to get timestamp %s: %w", name, err)
	}
	return time.UnixMilli(v), nil
}

// SaveTimestamp records when the named job last ran.
func (s *Store) SaveTimestamp(ctx context.Context, name string, t time.Time) error {
	if err := s.client.Set(ctx, TimestampKey(name), t.UnixMilli(), 0).Err(); err != nil {
		return fmt.Errorf("failed to save timestamp %s: %w", name, err)
	}
	return nil
}
