package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/arborsync/arbor/internal/domain"
)

// ImportJob retrieves the persisted import job, or nil when none is active.
func (s *Store) ImportJob(ctx context.Context) (*domain.ImportJob, error) {
	data, err := s.client.Get(ctx, KeyImportJob).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get import job: %w", err)
	}

	var job domain.ImportJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal import job: %w", err)
	}
	return &job, nil
}

// SaveImportJob persists the import job, overwriting any previous state.
func (s *Store) SaveImportJob(ctx context.Context, job *domain.ImportJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal import job: %w", err)
	}
	if err := s.client.Set(ctx, KeyImportJob, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save import job: %w", err)
	}
	return nil
}

// DeleteImportJob removes the persisted import job.
func (s *Store) DeleteImportJob(ctx context.Context) error {
	if err := s.client.Del(ctx, KeyImportJob).Err(); err != nil {
		return fmt.Errorf("failed to delete import job: %w", err)
	}
	return nil
}

// ImportResult retrieves the outcome of the last finished batch import, or
// nil when none has completed yet.
func (s *Store) ImportResult(ctx context.Context) (*domain.ImportResult, error) {
	data, err := s.client.Get(ctx, KeyImportResult).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get import result: %w", err)
	}

	var res domain.ImportResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to unmarshal import result: %w", err)
	}
	return &res, nil
}

// SaveImportResult persists the final batch outcome, overwriting the
// previous one.
func (s *Store) SaveImportResult(ctx context.Context, res *domain.ImportResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal import result: %w", err)
	}
	if err := s.client.Set(ctx, KeyImportResult, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save import result: %w", err)
	}
	return nil
}
