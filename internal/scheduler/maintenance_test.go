package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/arborsync/arbor/internal/domain"
	"github.com/arborsync/arbor/internal/logger"
	"github.com/arborsync/arbor/internal/metadata"
	"github.com/arborsync/arbor/internal/provider"
	memorystore "github.com/arborsync/arbor/internal/store/memory"
	"github.com/arborsync/arbor/internal/tree"
)

func TestMaintenanceSweep(t *testing.T) {
	ctx := context.Background()
	log := logger.New("error", false)
	prov := provider.NewMemoryProvider("Bookmarks Bar")
	st := memorystore.New()
	meta := metadata.New(st, log, time.Hour)

	svc := tree.New(prov, st, meta, log, "Arbor")
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer svc.Close()

	live, err := svc.CreateBookmark(ctx, "", "live", "https://live", "test")
	if err != nil {
		t.Fatalf("CreateBookmark failed: %v", err)
	}

	// An orphaned active record, a trashed record and a stale lock.
	meta.CreateDefault("orphan-id", "test")
	meta.CreateDefault("trashed-id", "test")
	meta.MarkDeleted("trashed-id", domain.Snapshot{Title: "t"})
	err = st.SaveImportLock(ctx, &domain.ImportLock{
		Timestamp: time.Now().Add(-domain.LockTTL - time.Minute),
		Source:    "crashed",
	})
	if err != nil {
		t.Fatalf("SaveImportLock failed: %v", err)
	}

	m := NewMaintenance(st, svc, meta, log)
	m.Sweep(ctx)

	if _, ok := meta.Get("orphan-id"); ok {
		t.Error("orphaned record survived the sweep")
	}
	if _, ok := meta.Get(live.ID); !ok {
		t.Error("live record removed by the sweep")
	}
	if _, ok := meta.Get("trashed-id"); !ok {
		t.Error("trashed record removed by the sweep")
	}
	if lock, _ := st.ImportLock(ctx); lock != nil {
		t.Error("stale lock survived the sweep")
	}
	if ts, err := st.Timestamp(ctx, "last-maintenance"); err != nil || ts.IsZero() {
		t.Errorf("maintenance timestamp not recorded: %v (err=%v)", ts, err)
	}
}

func TestMaintenanceKeepsFreshLock(t *testing.T) {
	ctx := context.Background()
	log := logger.New("error", false)
	prov := provider.NewMemoryProvider("Bookmarks Bar")
	st := memorystore.New()
	meta := metadata.New(st, log, time.Hour)

	svc := tree.New(prov, st, meta, log, "Arbor")
	if err := svc.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	defer svc.Close()

	err := st.SaveImportLock(ctx, &domain.ImportLock{Timestamp: time.Now(), Source: "active"})
	if err != nil {
		t.Fatalf("SaveImportLock failed: %v", err)
	}

	NewMaintenance(st, svc, meta, log).Sweep(ctx)

	lock, err := st.ImportLock(ctx)
	if err != nil || lock == nil {
		t.Fatalf("fresh lock was cleared: %v (err=%v)", lock, err)
	}
	if lock.Source != "active" {
		t.Errorf("lock source = %q, want %q", lock.Source, "active")
	}
}
