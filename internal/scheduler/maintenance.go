package scheduler

import (
	"context"
	"time"

	"github.com/arborsync/arbor/internal/domain"
	"github.com/arborsync/arbor/internal/logger"
	"github.com/arborsync/arbor/internal/metadata"
	"github.com/arborsync/arbor/internal/store"
	"github.com/arborsync/arbor/internal/tree"
)

// MaintenanceAlarm is the periodic alarm name for the maintenance sweep.
const MaintenanceAlarm = "maintenance"

// Maintenance reconciles the metadata overlay against the managed subtree
// and clears import locks left behind by crashed instances.
type Maintenance struct {
	store store.Store
	tree  *tree.Service
	meta  *metadata.Store
	log   logger.Logger
}

// NewMaintenance creates the maintenance sweep.
func NewMaintenance(st store.Store, t *tree.Service, meta *metadata.Store, log logger.Logger) *Maintenance {
	return &Maintenance{
		store: st,
		tree:  t,
		meta:  meta,
		log:   log,
	}
}

// Sweep runs one maintenance pass: rebuild the membership cache, drop
// orphaned active metadata records, clear a stale import lock and record
// the run timestamp.
func (m *Maintenance) Sweep(ctx context.Context) {
	if err := m.tree.RebuildCache(ctx); err != nil {
		m.log.Warn("maintenance: cache rebuild failed", logger.Error(err))
		return
	}

	removed, err := m.meta.CleanupOrphans(ctx, m.tree.ManagedIDs())
	if err != nil {
		m.log.Warn("maintenance: orphan cleanup failed", logger.Error(err))
	}

	stale := m.clearStaleLock(ctx)

	if err := m.store.SaveTimestamp(ctx, "last-maintenance", time.Now()); err != nil {
		m.log.Warn("maintenance: failed to record timestamp", logger.Error(err))
	}

	if removed > 0 || stale {
		m.log.Info("maintenance sweep completed",
			logger.Int("orphans_removed", removed))
	} else {
		m.log.Debug("maintenance sweep completed, nothing to do")
	}
}

// clearStaleLock removes an import lock whose TTL has lapsed, reporting
// whether one was cleared.
func (m *Maintenance) clearStaleLock(ctx context.Context) bool {
	lock, err := m.store.ImportLock(ctx)
	if err != nil {
		m.log.Warn("maintenance: failed to read import lock", logger.Error(err))
		return false
	}
	if lock == nil || lock.Fresh(time.Now(), domain.LockTTL) {
		return false
	}
	if err := m.store.DeleteImportLock(ctx); err != nil {
		m.log.Warn("maintenance: failed to clear stale lock", logger.Error(err))
		return false
	}
	m.log.Info("maintenance: cleared stale import lock",
		logger.String("source", lock.Source))
	return true
}
