package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/arborsync/arbor/internal/domain"
	"github.com/arborsync/arbor/internal/logger"
	"github.com/arborsync/arbor/internal/metadata"
	"github.com/arborsync/arbor/internal/provider"
	"github.com/arborsync/arbor/internal/store"
	"github.com/arborsync/arbor/internal/tree"
)

// ContinueAlarm is the scheduler alarm name driving batch continuation.
const ContinueAlarm = "import-continue"

// continueDelay is the pause between two batch chunks. Continuation goes
// through the persisted scheduler rather than an in-memory wait so a chunk
// survives the process suspending between chunks.
const continueDelay = 500 * time.Millisecond

// Scheduler is the slice of the scheduler the engine needs: arming a named
// one-shot callback.
type Scheduler interface {
	Create(ctx context.Context, name string, delay, period time.Duration) error
}

// Engine runs the three import algorithms over one shared traversal/dedup
// core: full import, smart reimport and resumable batch import.
type Engine struct {
	tree     *tree.Service
	meta     *metadata.Store
	provider provider.Provider
	store    store.Store
	sched    Scheduler
	log      logger.Logger

	chunkSize int
	lockTTL   time.Duration
	source    string
}

// Options tunes the engine. Zero values fall back to domain defaults.
type Options struct {
	// ChunkSize is the number of items processed between two persisted
	// cursor commits.
	ChunkSize int
	// Source identifies this process instance in the import lock record.
	Source string
}

// New creates an import engine.
func New(t *tree.Service, meta *metadata.Store, p provider.Provider, st store.Store, sched Scheduler, log logger.Logger, opts Options) *Engine {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = domain.DefaultChunkSize
	}
	if opts.Source == "" {
		opts.Source = "arbor"
	}
	return &Engine{
		tree:      t,
		meta:      meta,
		provider:  p,
		store:     st,
		sched:     sched,
		log:       log,
		chunkSize: opts.ChunkSize,
		lockTTL:   domain.LockTTL,
		source:    opts.Source,
	}
}

// acquireLock takes the advisory cross-process lock. A fresh lock held by
// anyone (this instance included) rejects the new run. The read-check-write
// sequence is not atomic by design; the rare double acquisition is repaired
// after the fact by ghost cleanup.
func (e *Engine) acquireLock(ctx context.Context) error {
	lock, err := e.store.ImportLock(ctx)
	if err != nil {
		return fmt.Errorf("failed to read import lock: %w", err)
	}
	if lock.Fresh(time.Now(), e.lockTTL) {
		return fmt.Errorf("held by %s since %s: %w", lock.Source, lock.Timestamp.Format(time.RFC3339), domain.ErrLocked)
	}
	if err := e.store.SaveImportLock(ctx, &domain.ImportLock{Timestamp: time.Now(), Source: e.source}); err != nil {
		return fmt.Errorf("failed to write import lock: %w", err)
	}
	return nil
}

// refreshLock re-stamps the lock so a long batch does not expire mid-run.
func (e *Engine) refreshLock(ctx context.Context) {
	if err := e.store.SaveImportLock(ctx, &domain.ImportLock{Timestamp: time.Now(), Source: e.source}); err != nil {
		e.log.Warn("failed to refresh import lock", logger.Error(err))
	}
}

// releaseLock drops the lock. It runs on every exit path; a failed delete
// only delays other instances by the TTL, so it is logged, not returned.
func (e *Engine) releaseLock(ctx context.Context) {
	if err := e.store.DeleteImportLock(ctx); err != nil {
		e.log.Warn("failed to release import lock", logger.Error(err))
	}
}

// dedupSet tracks (url, logical path) pairs seen during a pass. Keys are
// exact strings; no normalization is applied.
type dedupSet map[string]map[string]struct{}

// mark records the pair and reports whether it was new.
func (d dedupSet) mark(url, path string) bool {
	paths, ok := d[url]
	if !ok {
		paths = make(map[string]struct{})
		d[url] = paths
	}
	if _, dup := paths[path]; dup {
		return false
	}
	paths[path] = struct{}{}
	return true
}

// seedDedup collects the (url, path) pairs already present under the
// managed root, using the same path join as the traversal so keys compare
// exactly.
func (e *Engine) seedDedup(ctx context.Context) (dedupSet, error) {
	dd := make(dedupSet)
	sub, err := e.provider.GetSubtree(ctx, e.tree.RootID())
	if err != nil {
		return nil, fmt.Errorf("failed to walk managed subtree: %w", err)
	}
	var walk func(n *domain.NativeNode, path string)
	walk = func(n *domain.NativeNode, path string) {
		for _, c := range n.Children {
			if c.IsFolder() {
				walk(c, domain.JoinPath(path, c.Title))
				continue
			}
			dd.mark(c.URL, path)
		}
	}
	walk(sub, "")
	return dd, nil
}

// walkState carries one traversal pass over the external forest.
type walkState struct {
	res      *domain.ImportResult
	dd       dedupSet
	skip     map[string]struct{}
	backup   map[string]*domain.Metadata
	progress domain.ProgressFunc
	phase    string
	source   string
	count    int
}

func (st *walkState) report(item string) {
	st.count++
	if st.progress != nil {
		st.progress(domain.Progress{Phase: st.phase, Current: st.count, CurrentItem: item})
	}
}

// mirrorInto recreates the given external nodes under destParentID,
// recursing into folders. It skips the managed root by id, any folder
// carrying the root's designated name (anti-recursion), any node already
// inside the managed subtree, and any id in the pass's skip set. Per-item
// failures are collected and never abort the pass. Parents are always
// created before children; sibling order is preserved.
func (e *Engine) mirrorInto(ctx context.Context, nodes []*domain.NativeNode, destParentID, path string, st *walkState) {
	for _, src := range nodes {
		if src.ID == e.tree.RootID() {
			continue
		}
		if _, skip := st.skip[src.ID]; skip {
			continue
		}
		if e.tree.Contains(src.ID) {
			continue
		}

		if src.IsFolder() {
			if src.Title == e.tree.RootTitle() {
				continue
			}
			folder, err := e.tree.CreateFolder(ctx, destParentID, src.Title)
			if err != nil {
				st.res.Errors = append(st.res.Errors, fmt.Sprintf("folder %q: %v", src.Title, err))
				continue
			}
			st.res.ImportedFolders++
			st.report(src.Title)
			e.mirrorInto(ctx, src.Children, folder.ID, domain.JoinPath(path, src.Title), st)
			continue
		}

		if !st.dd.mark(src.URL, path) {
			st.res.SkippedDuplicates++
			continue
		}
		node, err := e.tree.CreateBookmark(ctx, destParentID, src.Title, src.URL, st.source)
		if err != nil {
			st.res.Errors = append(st.res.Errors, fmt.Sprintf("bookmark %q: %v", src.Title, err))
			continue
		}
		st.res.ImportedBookmarks++
		st.report(src.Title)

		if st.backup != nil {
			if saved, ok := st.backup[src.URL]; ok {
				e.reattach(saved, node.ID)
				st.res.RestoredMetadata++
			}
		}
	}
}

// reattach rebuilds a backed-up metadata record under a new native id,
// replacing the default record the create just made.
func (e *Engine) reattach(saved *domain.Metadata, newID string) {
	restored := saved.Clone()
	restored.ID = newID
	restored.Status = domain.StatusActive
	restored.Snapshot = nil
	restored.UpdatedAt = time.Now()
	e.meta.Insert(restored)
}
