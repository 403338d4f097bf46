package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/arborsync/arbor/internal/domain"
)

// Metadata retrieves a metadata record by node id, or nil when absent.
func (s *Store) Metadata(ctx context.Context, id string) (*domain.Metadata, error) {
	data, err := s.client.Get(ctx, MetadataKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}

	var m domain.Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &m, nil
}

// AllMetadata retrieves every metadata record keyed by node id.
func (s *Store) AllMetadata(ctx context.Context) (map[string]*domain.Metadata, error) {
	ids, err := s.client.SMembers(ctx, KeyAllMetadata).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata ids: %w", err)
	}

	records := make(map[string]*domain.Metadata, len(ids))
	for _, id := range ids {
		m, err := s.Metadata(ctx, id)
		if err != nil || m == nil {
			// Skip records that couldn't be retrieved
			continue
		}
		records[id] = m
	}
	return records, nil
}

// SaveMetadataMany stores multiple metadata records in one pipeline.
func (s *Store) SaveMetadataMany(ctx context.Context, records map[string]*domain.Metadata) error {
	pipe := s.client.Pipeline()

	for id, m := range records {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata %s: %w", id, err)
		}
		pipe.Set(ctx, MetadataKey(id), data, 0)
		pipe.SAdd(ctx, KeyAllMetadata, id)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

// DeleteMetadata removes metadata records by node id.
func (s *Store) DeleteMetadata(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	pipe := s.client.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, MetadataKey(id))
		pipe.SRem(ctx, KeyAllMetadata, id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete metadata: %w", err)
	}
	return nil
}
