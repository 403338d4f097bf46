package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/arborsync/arbor/internal/domain"
	"github.com/arborsync/arbor/internal/logger"
)

// StartBatchImport flattens the external forest into an ordered item list,
// persists it as a job record and arms the continuation alarm. The actual
// work happens chunk by chunk in ContinueBatch, so large trees survive the
// host process suspending and restarting between chunks.
//
// It returns the number of items queued.
func (e *Engine) StartBatchImport(ctx context.Context, progress domain.ProgressFunc) (int, error) {
	if err := e.acquireLock(ctx); err != nil {
		return 0, err
	}

	containers, err := e.provider.GetTree(ctx)
	if err != nil {
		e.releaseLock(ctx)
		return 0, fmt.Errorf("failed to enumerate containers: %w", err)
	}

	items := e.flatten(containers)
	if progress != nil {
		progress(domain.Progress{Phase: "queue", Current: len(items)})
	}
	job := &domain.ImportJob{
		Items:     items,
		Cursor:    0,
		Status:    domain.JobInProgress,
		StartTime: time.Now(),
	}
	if err := e.store.SaveImportJob(ctx, job); err != nil {
		e.releaseLock(ctx)
		return 0, fmt.Errorf("failed to persist import job: %w", err)
	}
	if err := e.sched.Create(ctx, ContinueAlarm, continueDelay, 0); err != nil {
		e.releaseLock(ctx)
		return 0, fmt.Errorf("failed to schedule batch continuation: %w", err)
	}

	e.log.Info("batch import started", logger.Int("items", len(items)))
	return len(items), nil
}

// flatten orders the external forest parents-before-children with logical
// folder-path annotations. Anonymous top-level containers are excluded from
// path tracking; the managed root and any folder named like it are skipped
// entirely.
func (e *Engine) flatten(containers []*domain.NativeNode) []domain.ImportItem {
	var items []domain.ImportItem
	var walk func(n *domain.NativeNode, parentPath string)
	walk = func(n *domain.NativeNode, parentPath string) {
		if n.ID == e.tree.RootID() {
			return
		}
		path := parentPath
		if n.IsFolder() {
			if n.Title == e.tree.RootTitle() {
				return
			}
			if !domain.IsReservedContainer(n.Title, parentPath) {
				items = append(items, domain.ImportItem{
					ID:         n.ID,
					ParentPath: parentPath,
					Title:      n.Title,
					IsFolder:   true,
				})
				path = domain.JoinPath(parentPath, n.Title)
			}
			for _, c := range n.Children {
				walk(c, path)
			}
			return
		}
		items = append(items, domain.ImportItem{
			ID:         n.ID,
			ParentPath: parentPath,
			Title:      n.Title,
			URL:        n.URL,
		})
	}
	for _, c := range containers {
		walk(c, "")
	}
	return items
}

// ContinueBatch processes one fixed-size chunk of the persisted job,
// committing the cursor after the chunk so a crash resumes from the last
// committed position. Per-item failures are collected on the job and never
// abort the batch. On the final chunk it writes the final result, deletes
// the job and releases the lock exactly once.
func (e *Engine) ContinueBatch(ctx context.Context, progress domain.ProgressFunc) error {
	job, err := e.store.ImportJob(ctx)
	if err != nil {
		e.releaseLock(ctx)
		return fmt.Errorf("failed to load import job: %w", err)
	}
	if job == nil || job.Status != domain.JobInProgress {
		return domain.ErrNoJob
	}

	e.tree.Suppress(true)
	defer e.tree.Suppress(false)
	e.refreshLock(ctx)

	// Folder paths are re-derived from the managed subtree each chunk so
	// resumption after a restart needs no in-memory state.
	folders, err := e.folderIndex(ctx)
	if err != nil {
		e.releaseLock(ctx)
		return err
	}
	dd, err := e.seedDedup(ctx)
	if err != nil {
		e.releaseLock(ctx)
		return err
	}

	end := job.Cursor + e.chunkSize
	if end > len(job.Items) {
		end = len(job.Items)
	}

	for i := job.Cursor; i < end; i++ {
		item := job.Items[i]
		e.processItem(ctx, item, folders, dd, &job.Accumulated)
		if progress != nil {
			progress(domain.Progress{Phase: "batch", Current: i + 1, CurrentItem: item.Title})
		}
	}

	job.Cursor = end
	if end < len(job.Items) {
		if err := e.store.SaveImportJob(ctx, job); err != nil {
			e.releaseLock(ctx)
			return fmt.Errorf("failed to commit batch cursor: %w", err)
		}
		if err := e.sched.Create(ctx, ContinueAlarm, continueDelay, 0); err != nil {
			e.releaseLock(ctx)
			return fmt.Errorf("failed to schedule batch continuation: %w", err)
		}
		return nil
	}

	job.Status = domain.JobDone
	job.Accumulated.Success = true
	if err := e.store.SaveImportResult(ctx, &job.Accumulated); err != nil {
		e.log.Warn("failed to persist batch result", logger.Error(err))
	}
	if err := e.store.SaveTimestamp(ctx, "last-batch-import", time.Now()); err != nil {
		e.log.Warn("failed to record batch timestamp", logger.Error(err))
	}
	if err := e.store.DeleteImportJob(ctx); err != nil {
		e.log.Warn("failed to delete finished import job", logger.Error(err))
	}
	e.releaseLock(ctx)

	e.log.Info("batch import finished",
		logger.Int("items", len(job.Items)),
		logger.Int("bookmarks", job.Accumulated.ImportedBookmarks),
		logger.Int("folders", job.Accumulated.ImportedFolders),
		logger.Int("skipped_duplicates", job.Accumulated.SkippedDuplicates),
		logger.Int("errors", len(job.Accumulated.Errors)))
	return nil
}

// processItem recreates one flattened item under the managed root.
func (e *Engine) processItem(ctx context.Context, item domain.ImportItem, folders map[string]string, dd dedupSet, res *domain.ImportResult) {
	parentID, ok := folders[item.ParentPath]
	if !ok {
		res.Errors = append(res.Errors, fmt.Sprintf("item %q: parent path %q missing", item.Title, item.ParentPath))
		return
	}

	if item.IsFolder {
		full := domain.JoinPath(item.ParentPath, item.Title)
		if _, exists := folders[full]; exists {
			return
		}
		folder, err := e.tree.CreateFolder(ctx, parentID, item.Title)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("folder %q: %v", item.Title, err))
			return
		}
		folders[full] = folder.ID
		res.ImportedFolders++
		return
	}

	if !dd.mark(item.URL, item.ParentPath) {
		res.SkippedDuplicates++
		return
	}
	if _, err := e.tree.CreateBookmark(ctx, parentID, item.Title, item.URL, "batch"); err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("bookmark %q: %v", item.Title, err))
		return
	}
	res.ImportedBookmarks++
}

// folderIndex maps logical folder paths under the managed root to native
// ids. "" maps to the root itself.
func (e *Engine) folderIndex(ctx context.Context) (map[string]string, error) {
	sub, err := e.provider.GetSubtree(ctx, e.tree.RootID())
	if err != nil {
		return nil, fmt.Errorf("failed to walk managed subtree: %w", err)
	}
	folders := map[string]string{"": sub.ID}
	var walk func(n *domain.NativeNode, path string)
	walk = func(n *domain.NativeNode, path string) {
		for _, c := range n.Children {
			if !c.IsFolder() {
				continue
			}
			full := domain.JoinPath(path, c.Title)
			folders[full] = c.ID
			walk(c, full)
		}
	}
	walk(sub, "")
	return folders, nil
}

// CancelBatch clears the persisted job so the next continuation finds no
// active job, and releases the lock. A running chunk is not preempted.
func (e *Engine) CancelBatch(ctx context.Context) error {
	if err := e.store.DeleteImportJob(ctx); err != nil {
		return fmt.Errorf("failed to cancel import job: %w", err)
	}
	e.releaseLock(ctx)
	e.log.Info("batch import cancelled")
	return nil
}

// JobStatus returns the persisted job, or nil when none is active.
func (e *Engine) JobStatus(ctx context.Context) (*domain.ImportJob, error) {
	return e.store.ImportJob(ctx)
}

// LastResult returns the outcome of the most recently finished batch
// import, or nil when none has completed.
func (e *Engine) LastResult(ctx context.Context) (*domain.ImportResult, error) {
	return e.store.ImportResult(ctx)
}

// ResumePending re-arms the continuation alarm when the store holds an
// in-progress job with nothing driving it. The runner disarms a one-shot
// alarm before its handler runs, so a crash inside a chunk leaves the
// committed cursor behind but no alarm. Called once at startup.
func (e *Engine) ResumePending(ctx context.Context) error {
	job, err := e.store.ImportJob(ctx)
	if err != nil {
		return fmt.Errorf("failed to check for a pending import job: %w", err)
	}
	if job == nil || job.Status != domain.JobInProgress {
		return nil
	}
	if err := e.sched.Create(ctx, ContinueAlarm, continueDelay, 0); err != nil {
		return fmt.Errorf("failed to re-arm batch continuation: %w", err)
	}
	e.log.Info("resuming interrupted batch import",
		logger.Int("cursor", job.Cursor),
		logger.Int("items", len(job.Items)))
	return nil
}
