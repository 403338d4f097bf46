package memory

import (
	"context"
	"sync"
	"time"

	"github.com/arborsync/arbor/internal/domain"
)

// Store is an in-memory implementation of store.Store. It backs tests and
// local mode when no redis address is configured.
type Store struct {
	mu         sync.RWMutex
	rootID     string
	metadata   map[string]*domain.Metadata
	job        *domain.ImportJob
	result     *domain.ImportResult
	lock       *domain.ImportLock
	alarms     map[string]*domain.Alarm
	timestamps map[string]time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		metadata:   make(map[string]*domain.Metadata),
		alarms:     make(map[string]*domain.Alarm),
		timestamps: make(map[string]time.Time),
	}
}

func (s *Store) RootID(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rootID, nil
}

func (s *Store) SaveRootID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rootID = id
	return nil
}

func (s *Store) Metadata(ctx context.Context, id string) (*domain.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.metadata[id]
	if !ok {
		return nil, nil
	}
	return m.Clone(), nil
}

func (s *Store) AllMetadata(ctx context.Context) (map[string]*domain.Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*domain.Metadata, len(s.metadata))
	for id, m := range s.metadata {
		out[id] = m.Clone()
	}
	return out, nil
}

func (s *Store) SaveMetadataMany(ctx context.Context, records map[string]*domain.Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, m := range records {
		s.metadata[id] = m.Clone()
	}
	return nil
}

func (s *Store) DeleteMetadata(ctx context.Context, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.metadata, id)
	}
	return nil
}

func (s *Store) ImportJob(ctx context.Context) (*domain.ImportJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.job == nil {
		return nil, nil
	}
	job := *s.job
	job.Items = append([]domain.ImportItem(nil), s.job.Items...)
	job.Accumulated.Errors = append([]string(nil), s.job.Accumulated.Errors...)
	return &job, nil
}

func (s *Store) SaveImportJob(ctx context.Context, job *domain.ImportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	copied.Items = append([]domain.ImportItem(nil), job.Items...)
	copied.Accumulated.Errors = append([]string(nil), job.Accumulated.Errors...)
	s.job = &copied
	return nil
}

func (s *Store) DeleteImportJob(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.job = nil
	return nil
}

func (s *Store) ImportResult(ctx context.Context) (*domain.ImportResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return nil, nil
	}
	res := *s.result
	res.Errors = append([]string(nil), s.result.Errors...)
	return &res, nil
}

func (s *Store) SaveImportResult(ctx context.Context, res *domain.ImportResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *res
	copied.Errors = append([]string(nil), res.Errors...)
	s.result = &copied
	return nil
}

func (s *Store) ImportLock(ctx context.Context) (*domain.ImportLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lock == nil {
		return nil, nil
	}
	lock := *s.lock
	return &lock, nil
}

func (s *Store) SaveImportLock(ctx context.Context, lock *domain.ImportLock) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *lock
	s.lock = &copied
	return nil
}

func (s *Store) DeleteImportLock(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lock = nil
	return nil
}

func (s *Store) Alarm(ctx context.Context, name string) (*domain.Alarm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.alarms[name]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (s *Store) Alarms(ctx context.Context) ([]*domain.Alarm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Alarm, 0, len(s.alarms))
	for _, a := range s.alarms {
		copied := *a
		out = append(out, &copied)
	}
	return out, nil
}

func (s *Store) SaveAlarm(ctx context.Context, alarm *domain.Alarm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *alarm
	s.alarms[alarm.Name] = &copied
	return nil
}

func (s *Store) DeleteAlarm(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.alarms, name)
	return nil
}

func (s *Store) Timestamp(ctx context.Context, name string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.timestamps[name], nil
}

func (s *Store) SaveTimestamp(ctx context.Context, name string, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timestamps[name] = t
	return nil
}
