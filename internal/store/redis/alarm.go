package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/arborsync/arbor/internal/domain"
)

// Alarm retrieves a named alarm, or nil when absent.
func (s *Store) Alarm(ctx context.Context, name string) (*domain.Alarm, error) {
	data, err := s.client.Get(ctx, AlarmKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get alarm %s: %w", name, err)
	}

	var alarm domain.Alarm
	if err := json.Unmarshal(data, &alarm); err != nil {
		return nil, fmt.Errorf("failed to unmarshal alarm %s: %w", name, err)
	}
	return &alarm, nil
}

// Alarms retrieves all persisted alarms.
func (s *Store) Alarms(ctx context.Context) ([]*domain.Alarm, error) {
	names, err := s.client.SMembers(ctx, KeyAllAlarms).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get alarm names: %w", err)
	}

	alarms := make([]*domain.Alarm, 0, len(names))
	for _, name := range names {
		alarm, err := s.Alarm(ctx, name)
		if err != nil || alarm == nil {
			// Skip alarms that couldn't be retrieved
			continue
		}
		alarms = append(alarms, alarm)
	}
	return alarms, nil
}

// SaveAlarm persists an alarm and registers its name.
func (s *Store) SaveAlarm(ctx context.Context, alarm *domain.Alarm) error {
	data, err := json.Marshal(alarm)
	if err != nil {
		return fmt.Errorf("failed to marshal alarm %s: %w", alarm.Name, err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, AlarmKey(alarm.Name), data, 0)
	pipe.SAdd(ctx, KeyAllAlarms, alarm.Name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save alarm %s: %w", alarm.Name, err)
	}
	return nil
}

// DeleteAlarm removes a named alarm.
func (s *Store) DeleteAlarm(ctx context.Context, name string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, AlarmKey(name))
	pipe.SRem(ctx, KeyAllAlarms, name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete alarm %s: %w", name, err)
	}
	return nil
}
