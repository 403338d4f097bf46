package metadata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arborsync/arbor/internal/domain"
	"github.com/arborsync/arbor/internal/logger"
	"github.com/arborsync/arbor/internal/store"
)

// Store is the per-node metadata overlay, decoupled from structural tree
// data. Reads and writes go through an in-memory map; writes are persisted
// by a debounced flush that coalesces rapid edits into one durable write.
// Deletions bypass the debounce and flush immediately.
type Store struct {
	persist store.Store
	log     logger.Logger

	debounce time.Duration
	retries  int
	backoff  time.Duration

	mu      sync.Mutex
	records map[string]*domain.Metadata
	dirty   map[string]struct{}
	timer   *time.Timer
}

// New creates a metadata store flushing through persist. A zero debounce
// falls back to domain.FlushDebounce.
func New(persist store.Store, log logger.Logger, debounce time.Duration) *Store {
	if debounce <= 0 {
		debounce = domain.FlushDebounce
	}
	return &Store{
		persist:  persist,
		log:      log,
		debounce: debounce,
		retries:  domain.FlushRetries,
		backoff:  domain.FlushBackoff,
		records:  make(map[string]*domain.Metadata),
		dirty:    make(map[string]struct{}),
	}
}

// Load hydrates the in-memory map from the durable store.
func (s *Store) Load(ctx context.Context) error {
	records, err := s.persist.AllMetadata(ctx)
	if err != nil {
		return fmt.Errorf("failed to load metadata: %w", err)
	}

	s.mu.Lock()
	s.records = records
	s.dirty = make(map[string]struct{})
	s.mu.Unlock()

	s.log.Info("metadata loaded", logger.Int("records", len(records)))
	return nil
}

// Get returns a copy of the record for id.
func (s *Store) Get(id string) (*domain.Metadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.records[id]
	if !ok {
		return nil, false
	}
	return m.Clone(), true
}

// All returns a copy of every record keyed by id.
func (s *Store) All() map[string]*domain.Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*domain.Metadata, len(s.records))
	for id, m := range s.records {
		out[id] = m.Clone()
	}
	return out
}

// Set merges the patch into the record for id, creating it if absent,
// stamps UpdatedAt and schedules a debounced flush. Racing writes are not
// ordered beyond last-write-wins on the in-memory map; the flush serializes
// actual persistence.
func (s *Store) Set(id string, patch domain.MetadataPatch) *domain.Metadata {
	s.mu.Lock()
	m, ok := s.records[id]
	if !ok {
		m = newRecord(id, "")
		s.records[id] = m
	}
	patch.Apply(m)
	m.UpdatedAt = time.Now()
	s.dirty[id] = struct{}{}
	s.scheduleFlushLocked()
	out := m.Clone()
	s.mu.Unlock()
	return out
}

// CreateDefault creates a default record for id. It is idempotent: if a
// record already exists it is returned unchanged, guarding the race where
// metadata was set before the caller observed the structural node.
func (s *Store) CreateDefault(id, importSource string) *domain.Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.records[id]; ok {
		return m.Clone()
	}
	m := newRecord(id, importSource)
	s.records[id] = m
	s.dirty[id] = struct{}{}
	s.scheduleFlushLocked()
	return m.Clone()
}

// Insert stores a fully-formed record, replacing any existing one. Used by
// restore and reimport flows that rebuild a record under a new id.
func (s *Store) Insert(m *domain.Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[m.ID] = m.Clone()
	s.dirty[m.ID] = struct{}{}
	s.scheduleFlushLocked()
}

// MarkDeleted flags the record as soft-deleted and attaches the structural
// snapshot needed to recreate the node later. The record stays in the store
// to back the trash view.
func (s *Store) MarkDeleted(id string, snap domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.records[id]
	if !ok {
		m = newRecord(id, "")
		s.records[id] = m
	}
	m.Status = domain.StatusDeleted
	m.Snapshot = &snap
	m.UpdatedAt = time.Now()
	s.dirty[id] = struct{}{}
	s.scheduleFlushLocked()
}

// Delete permanently removes records, bypassing the debounce: deletions are
// prioritized over the risk of an extra write.
func (s *Store) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	for _, id := range ids {
		delete(s.records, id)
		delete(s.dirty, id)
	}
	s.mu.Unlock()

	if err := s.persist.DeleteMetadata(ctx, ids...); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrWriteFailed, err)
	}
	return nil
}

// CleanupOrphans removes any active record whose id is absent from the
// caller-supplied authoritative id set. Deleted records are kept: their
// nodes are gone by definition and they back the trash view.
func (s *Store) CleanupOrphans(ctx context.Context, validIDs []string) (int, error) {
	valid := make(map[string]struct{}, len(validIDs))
	for _, id := range validIDs {
		valid[id] = struct{}{}
	}

	s.mu.Lock()
	var orphans []string
	for id, m := range s.records {
		if m.Status == domain.StatusDeleted {
			continue
		}
		if _, ok := valid[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	s.mu.Unlock()

	if len(orphans) == 0 {
		return 0, nil
	}
	if err := s.Delete(ctx, orphans...); err != nil {
		return 0, err
	}
	s.log.Info("cleaned up orphaned metadata", logger.Int("count", len(orphans)))
	return len(orphans), nil
}

// Deleted returns all soft-deleted records (the trash view).
func (s *Store) Deleted() []*domain.Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Metadata
	for _, m := range s.records {
		if m.Status == domain.StatusDeleted {
			out = append(out, m.Clone())
		}
	}
	return out
}

// scheduleFlushLocked arms (or re-arms) the debounce timer. Callers hold mu.
func (s *Store) scheduleFlushLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		if err := s.Flush(context.Background()); err != nil {
			s.log.Error("debounced metadata flush failed", logger.Error(err))
		}
	})
}

// Flush writes all dirty records durably. It retries with linear backoff;
// either the whole write succeeds or the caller receives a typed failure,
// never partial success. Dirty marks are kept on failure so the next flush
// retries the same records.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if len(s.dirty) == 0 {
		s.mu.Unlock()
		return nil
	}
	batch := make(map[string]*domain.Metadata, len(s.dirty))
	for id := range s.dirty {
		if m, ok := s.records[id]; ok {
			batch[id] = m.Clone()
		}
	}
	flushed := s.dirty
	s.dirty = make(map[string]struct{})
	s.mu.Unlock()

	var err error
	for attempt := 1; attempt <= s.retries; attempt++ {
		if err = s.persist.SaveMetadataMany(ctx, batch); err == nil {
			return nil
		}
		s.log.Warn("metadata flush attempt failed",
			logger.Int("attempt", attempt),
			logger.Error(err))
		if attempt < s.retries {
			time.Sleep(time.Duration(attempt) * s.backoff)
		}
	}

	// Re-mark so a later flush retries these records.
	s.mu.Lock()
	for id := range flushed {
		if _, ok := s.records[id]; ok {
			s.dirty[id] = struct{}{}
		}
	}
	s.mu.Unlock()

	return fmt.Errorf("%w: %v", domain.ErrWriteFailed, err)
}

func newRecord(id, importSource string) *domain.Metadata {
	now := time.Now()
	return &domain.Metadata{
		ID:           id,
		CreatedAt:    now,
		UpdatedAt:    now,
		ImportSource: importSource,
		Status:       domain.StatusActive,
	}
}
