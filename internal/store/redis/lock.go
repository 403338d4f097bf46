package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/arborsync/arbor/internal/domain"
)

// ImportLock retrieves the advisory lock record, or nil when absent.
//
// Freshness is judged by the caller against domain.LockTTL; the record
// itself carries no expiry so a stale lock stays visible for diagnostics
// until the maintenance sweep clears it.
func (s *Store) ImportLock(ctx context.Context) (*domain.ImportLock, error) {
	data, err := s.client.Get(ctx, KeyImportLock).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get import lock: %w", err)
	}

	var lock domain.ImportLock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to unmarshal import lock: %w", err)
	}
	return &lock, nil
}

// SaveImportLock writes the lock record. This is a plain write, not a
// compare-and-set; the lock is advisory by design.
func (s *Store) SaveImportLock(ctx context.Context, lock *domain.ImportLock) error {
	data, err := json.Marshal(lock)
	if err != nil {
		return fmt.Errorf("failed to marshal import lock: %w", err)
	}
	if err := s.client.Set(ctx, KeyImportLock, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save import lock: %w", err)
	}
	return nil
}

// DeleteImportLock removes the lock record.
func (s *Store) DeleteImportLock(ctx context.Context) error {
	if err := s.client.Del(ctx, KeyImportLock).Err(); err != nil {
		return fmt.Errorf("failed to delete import lock: %w", err)
	}
	return nil
}
