package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/arborsync/arbor/internal/domain"
	"github.com/arborsync/arbor/internal/logger"
)

// FullImport mirrors every external top-level container 1:1 under the
// managed root. It is a first-run operation: if the root already has
// children the call succeeds with zero effect, guarding against repeated
// user clicks.
//
// The whole pass runs under the advisory lock and with event fan-out
// suppressed; both are released on every exit path.
func (e *Engine) FullImport(ctx context.Context, progress domain.ProgressFunc) (*domain.ImportResult, error) {
	if err := e.acquireLock(ctx); err != nil {
		return nil, err
	}
	defer e.releaseLock(ctx)

	e.tree.Suppress(true)
	defer e.tree.Suppress(false)

	res := &domain.ImportResult{}

	children, err := e.tree.Children(ctx, "")
	if err != nil {
		return nil, err
	}
	if len(children) > 0 {
		res.Success = true
		res.Errors = append(res.Errors, "not empty")
		return res, nil
	}

	containers, err := e.provider.GetTree(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate containers: %w", err)
	}

	dd, err := e.seedDedup(ctx)
	if err != nil {
		return nil, err
	}

	st := &walkState{
		res:      res,
		dd:       dd,
		progress: progress,
		phase:    "import",
		source:   "import",
	}
	for _, container := range containers {
		e.mirrorInto(ctx, container.Children, "", "", st)
	}

	res.Success = true
	if err := e.store.SaveTimestamp(ctx, "last-full-import", time.Now()); err != nil {
		e.log.Warn("failed to record import timestamp", logger.Error(err))
	}
	e.log.Info("full import finished",
		logger.Int("bookmarks", res.ImportedBookmarks),
		logger.Int("folders", res.ImportedFolders),
		logger.Int("skipped_duplicates", res.SkippedDuplicates),
		logger.Int("errors", len(res.Errors)))
	return res, nil
}
