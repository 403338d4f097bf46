package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/arborsync/arbor/internal/domain"
	"github.com/arborsync/arbor/internal/logger"
)

// SmartReimport rebuilds the managed subtree from the external forest
// without losing AI-derived or user-entered value. Before clearing it
// snapshots metadata by URL for every record carrying signal, clears the
// root's children, re-walks the forest like FullImport and reattaches the
// backed-up metadata under each bookmark's new id.
func (e *Engine) SmartReimport(ctx context.Context, progress domain.ProgressFunc) (*domain.ImportResult, error) {
	if err := e.acquireLock(ctx); err != nil {
		return nil, err
	}
	defer e.releaseLock(ctx)

	e.tree.Suppress(true)
	defer e.tree.Suppress(false)

	res := &domain.ImportResult{}

	// Snapshot metadata by URL before anything is destroyed. This is the
	// invariant the whole operation exists to protect: a structural
	// rebuild must never destroy AI-derived value.
	sub, err := e.tree.ManagedTree(ctx)
	if err != nil {
		return nil, err
	}
	backup := make(map[string]*domain.Metadata)
	skip := make(map[string]struct{})
	var cleared []string
	var collect func(n *domain.NativeNode)
	collect = func(n *domain.NativeNode) {
		skip[n.ID] = struct{}{}
		if n.ID != e.tree.RootID() {
			cleared = append(cleared, n.ID)
		}
		if !n.IsFolder() {
			if m, ok := e.meta.Get(n.ID); ok && m.HasSignal() {
				backup[n.URL] = m
			}
		}
		for _, c := range n.Children {
			collect(c)
		}
	}
	collect(sub)

	if progress != nil {
		progress(domain.Progress{Phase: "backup", Current: len(backup)})
	}

	// Clear the root's children. The old records are purged outright:
	// the backup map carries everything worth keeping, and restore-style
	// snapshots would only duplicate nodes the reimport recreates.
	for _, child := range sub.Children {
		if err := e.provider.RemoveSubtree(ctx, child.ID); err != nil {
			return nil, fmt.Errorf("failed to clear managed subtree: %w", err)
		}
	}
	if err := e.tree.RebuildCache(ctx); err != nil {
		return nil, err
	}
	if err := e.meta.Delete(ctx, cleared...); err != nil {
		return nil, err
	}

	containers, err := e.provider.GetTree(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate containers: %w", err)
	}

	// URL dedup against existing content is unnecessary: the target was
	// just cleared. The fresh set still dedups within this pass.
	st := &walkState{
		res:      res,
		dd:       make(dedupSet),
		skip:     skip,
		backup:   backup,
		progress: progress,
		phase:    "reimport",
		source:   "reimport",
	}
	for _, container := range containers {
		e.mirrorInto(ctx, container.Children, "", "", st)
	}

	res.Success = true
	if err := e.store.SaveTimestamp(ctx, "last-reimport", time.Now()); err != nil {
		e.log.Warn("failed to record reimport timestamp", logger.Error(err))
	}
	e.log.Info("smart reimport finished",
		logger.Int("bookmarks", res.ImportedBookmarks),
		logger.Int("folders", res.ImportedFolders),
		logger.Int("restored_metadata", res.RestoredMetadata),
		logger.Int("errors", len(res.Errors)))
	return res, nil
}
