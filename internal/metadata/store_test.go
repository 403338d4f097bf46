package metadata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arborsync/arbor/internal/domain"
	"github.com/arborsync/arbor/internal/logger"
	"github.com/arborsync/arbor/internal/store"
	memorystore "github.com/arborsync/arbor/internal/store/memory"
)

// flakyStore fails SaveMetadataMany until failures reaches zero.
type flakyStore struct {
	store.Store
	failures int
	calls    int
}

func (f *flakyStore) SaveMetadataMany(ctx context.Context, records map[string]*domain.Metadata) error {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("injected write failure")
	}
	return f.Store.SaveMetadataMany(ctx, records)
}

func newTestStore(t *testing.T, debounce time.Duration) (*Store, store.Store) {
	t.Helper()
	persist := memorystore.New()
	return New(persist, logger.New("error", false), debounce), persist
}

func TestCreateDefaultIdempotent(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)

	first := s.CreateDefault("n1", "full")
	if first.Status != domain.StatusActive || first.ImportSource != "full" {
		t.Fatalf("unexpected default record: %+v", first)
	}

	s.Set("n1", domain.MetadataPatch{UserNotes: strPtr("keep")})

	again := s.CreateDefault("n1", "batch")
	if again.UserNotes != "keep" {
		t.Error("CreateDefault overwrote an existing record")
	}
	if again.ImportSource != "full" {
		t.Errorf("ImportSource = %q, want %q", again.ImportSource, "full")
	}
}

func TestSetMergesAndStampsUpdatedAt(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)

	created := s.CreateDefault("n1", "")
	s.Set("n1", domain.MetadataPatch{AISummary: strPtr("sum")})
	got := s.Set("n1", domain.MetadataPatch{UserTags: &[]string{"work"}})

	if got.AISummary != "sum" {
		t.Error("later patch dropped an earlier field")
	}
	if len(got.UserTags) != 1 || got.UserTags[0] != "work" {
		t.Errorf("UserTags = %v, want [work]", got.UserTags)
	}
	if got.UpdatedAt.Before(created.UpdatedAt) {
		t.Error("Set should advance UpdatedAt")
	}
}

func TestDebouncedFlushCoalesces(t *testing.T) {
	s, persist := newTestStore(t, 30*time.Millisecond)
	ctx := context.Background()

	s.CreateDefault("n1", "")
	s.Set("n1", domain.MetadataPatch{AISummary: strPtr("a")})
	s.Set("n1", domain.MetadataPatch{AISummary: strPtr("b")})

	// Before the debounce window closes nothing is persisted.
	if m, _ := persist.Metadata(ctx, "n1"); m != nil {
		t.Error("record persisted before debounce elapsed")
	}

	time.Sleep(100 * time.Millisecond)

	m, err := persist.Metadata(ctx, "n1")
	if err != nil || m == nil {
		t.Fatalf("record not flushed: m=%v err=%v", m, err)
	}
	if m.AISummary != "b" {
		t.Errorf("flushed AISummary = %q, want %q", m.AISummary, "b")
	}
}

func TestDeleteBypassesDebounce(t *testing.T) {
	s, persist := newTestStore(t, time.Hour)
	ctx := context.Background()

	s.CreateDefault("n1", "")
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	if err := s.Delete(ctx, "n1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if m, _ := persist.Metadata(ctx, "n1"); m != nil {
		t.Error("Delete should remove the record immediately")
	}
	if _, ok := s.Get("n1"); ok {
		t.Error("Delete should drop the in-memory record")
	}
}

func TestMarkDeletedKeepsTrashView(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)

	s.CreateDefault("n1", "")
	s.MarkDeleted("n1", domain.Snapshot{Title: "Docs", URL: "https://d", ParentID: "p", Path: "/Work"})

	m, ok := s.Get("n1")
	if !ok {
		t.Fatal("soft-deleted record should stay readable")
	}
	if m.Status != domain.StatusDeleted || m.Snapshot == nil {
		t.Fatalf("unexpected record: %+v", m)
	}
	if m.Snapshot.Path != "/Work" {
		t.Errorf("Snapshot.Path = %q, want %q", m.Snapshot.Path, "/Work")
	}

	trash := s.Deleted()
	if len(trash) != 1 || trash[0].ID != "n1" {
		t.Errorf("Deleted() = %v, want one record for n1", trash)
	}
}

func TestCleanupOrphansSkipsDeleted(t *testing.T) {
	s, _ := newTestStore(t, time.Hour)
	ctx := context.Background()

	s.CreateDefault("live", "")
	s.CreateDefault("orphan", "")
	s.CreateDefault("trashed", "")
	s.MarkDeleted("trashed", domain.Snapshot{Title: "t"})

	removed, err := s.CleanupOrphans(ctx, []string{"live"})
	if err != nil {
		t.Fatalf("CleanupOrphans failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, ok := s.Get("orphan"); ok {
		t.Error("orphan should have been removed")
	}
	if _, ok := s.Get("live"); !ok {
		t.Error("live record should survive")
	}
	if _, ok := s.Get("trashed"); !ok {
		t.Error("soft-deleted record should survive cleanup")
	}
}

func TestFlushRetriesAndRemarksDirty(t *testing.T) {
	persist := &flakyStore{Store: memorystore.New(), failures: 10}
	s := New(persist, logger.New("error", false), time.Hour)
	s.retries = 2
	s.backoff = time.Millisecond
	ctx := context.Background()

	s.CreateDefault("n1", "")

	err := s.Flush(ctx)
	if !errors.Is(err, domain.ErrWriteFailed) {
		t.Fatalf("Flush err = %v, want ErrWriteFailed", err)
	}
	if persist.calls != 2 {
		t.Errorf("persist attempts = %d, want 2", persist.calls)
	}

	// A later flush retries the same record once the store recovers.
	persist.failures = 0
	if err := s.Flush(ctx); err != nil {
		t.Fatalf("recovered Flush failed: %v", err)
	}
	if m, _ := persist.Store.Metadata(ctx, "n1"); m == nil {
		t.Error("record not persisted after recovery")
	}
}

func strPtr(s string) *string { return &s }
