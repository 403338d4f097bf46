package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arborsync/arbor/internal/domain"
	"github.com/arborsync/arbor/internal/logger"
	"github.com/arborsync/arbor/internal/metadata"
	"github.com/arborsync/arbor/internal/provider"
	"github.com/arborsync/arbor/internal/store"
	memorystore "github.com/arborsync/arbor/internal/store/memory"
	"github.com/arborsync/arbor/internal/tree"
)

// fakeSched records alarm creations without firing anything; tests drive
// continuation by calling ContinueBatch directly.
type fakeSched struct {
	created []string
}

func (f *fakeSched) Create(ctx context.Context, name string, delay, period time.Duration) error {
	f.created = append(f.created, name)
	return nil
}

type testEnv struct {
	prov  *provider.MemoryProvider
	st    store.Store
	meta  *metadata.Store
	tree  *tree.Service
	sched *fakeSched
	eng   *Engine
}

func newTestEnv(t *testing.T, chunkSize int) *testEnv {
	t.Helper()
	log := logger.New("error", false)
	prov := provider.NewMemoryProvider("Bookmarks Bar", "Other Bookmarks")
	st := memorystore.New()
	meta := metadata.New(st, log, time.Hour)

	svc := tree.New(prov, st, meta, log, "Arbor")
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(svc.Close)

	sched := &fakeSched{}
	eng := New(svc, meta, prov, st, sched, log, Options{ChunkSize: chunkSize, Source: "test"})
	return &testEnv{prov: prov, st: st, meta: meta, tree: svc, sched: sched, eng: eng}
}

// seedForest populates the external containers:
//
//	Bookmarks Bar/
//	  Work/
//	    Proj/
//	      docs -> https://docs.example.com
//	  news -> https://news.example.com
//	Other Bookmarks/
//	  Reading/
//	    paper -> https://paper.example.com
func (env *testEnv) seedForest(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	bar := env.prov.EnsureContainer("Bookmarks Bar")
	other := env.prov.EnsureContainer("Other Bookmarks")

	work, err := env.prov.CreateNode(ctx, bar, "Work", "", provider.AppendIndex)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	proj, _ := env.prov.CreateNode(ctx, work.ID, "Proj", "", provider.AppendIndex)
	if _, err := env.prov.CreateNode(ctx, proj.ID, "docs", "https://docs.example.com", provider.AppendIndex); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if _, err := env.prov.CreateNode(ctx, bar, "news", "https://news.example.com", provider.AppendIndex); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	reading, _ := env.prov.CreateNode(ctx, other, "Reading", "", provider.AppendIndex)
	if _, err := env.prov.CreateNode(ctx, reading.ID, "paper", "https://paper.example.com", provider.AppendIndex); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
}

func countManaged(t *testing.T, env *testEnv) (bookmarks, folders int) {
	t.Helper()
	sub, err := env.tree.ManagedTree(context.Background())
	if err != nil {
		t.Fatalf("ManagedTree failed: %v", err)
	}
	var walk func(n *domain.NativeNode)
	walk = func(n *domain.NativeNode) {
		for _, c := range n.Children {
			if c.IsFolder() {
				folders++
			} else {
				bookmarks++
			}
			walk(c)
		}
	}
	walk(sub)
	return bookmarks, folders
}

func TestFullImportMirrorsForest(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 0)
	env.seedForest(t)

	res, err := env.eng.FullImport(ctx, nil)
	if err != nil {
		t.Fatalf("FullImport failed: %v", err)
	}
	if !res.Success {
		t.Error("import should report success")
	}
	if res.ImportedBookmarks != 3 || res.ImportedFolders != 3 {
		t.Errorf("imported %d bookmarks / %d folders, want 3 / 3",
			res.ImportedBookmarks, res.ImportedFolders)
	}
	if res.SkippedDuplicates != 0 || len(res.Errors) != 0 {
		t.Errorf("unexpected skips/errors: %+v", res)
	}

	bookmarks, folders := countManaged(t, env)
	if bookmarks != 3 || folders != 3 {
		t.Errorf("managed tree has %d bookmarks / %d folders, want 3 / 3", bookmarks, folders)
	}

	// Lock is released on completion.
	lock, err := env.st.ImportLock(ctx)
	if err != nil || lock != nil {
		t.Errorf("lock still held after import: %v (err=%v)", lock, err)
	}
	if ts, err := env.st.Timestamp(ctx, "last-full-import"); err != nil || ts.IsZero() {
		t.Errorf("import timestamp not recorded: %v (err=%v)", ts, err)
	}
}

func TestFullImportDedupsSamePathOnly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 0)
	bar := env.prov.EnsureContainer("Bookmarks Bar")

	// Same URL twice in one folder: one import, one skip. Same URL at a
	// different logical path: imported.
	work, _ := env.prov.CreateNode(ctx, bar, "Work", "", provider.AppendIndex)
	env.prov.CreateNode(ctx, work.ID, "a", "https://dup.example.com", provider.AppendIndex)
	env.prov.CreateNode(ctx, work.ID, "b", "https://dup.example.com", provider.AppendIndex)
	reading, _ := env.prov.CreateNode(ctx, bar, "Reading", "", provider.AppendIndex)
	env.prov.CreateNode(ctx, reading.ID, "c", "https://dup.example.com", provider.AppendIndex)

	res, err := env.eng.FullImport(ctx, nil)
	if err != nil {
		t.Fatalf("FullImport failed: %v", err)
	}
	if res.ImportedBookmarks != 2 {
		t.Errorf("ImportedBookmarks = %d, want 2", res.ImportedBookmarks)
	}
	if res.SkippedDuplicates != 1 {
		t.Errorf("SkippedDuplicates = %d, want 1", res.SkippedDuplicates)
	}
}

func TestFullImportNonEmptyRootIsNoop(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 0)
	env.seedForest(t)

	if _, err := env.tree.CreateBookmark(ctx, "", "existing", "https://x", "manual"); err != nil {
		t.Fatalf("CreateBookmark failed: %v", err)
	}

	res, err := env.eng.FullImport(ctx, nil)
	if err != nil {
		t.Fatalf("FullImport failed: %v", err)
	}
	if !res.Success {
		t.Error("repeated import should still report success")
	}
	if res.ImportedBookmarks != 0 || res.ImportedFolders != 0 {
		t.Errorf("noop import created nodes: %+v", res)
	}
	if len(res.Errors) != 1 || res.Errors[0] != "not empty" {
		t.Errorf("Errors = %v, want [not empty]", res.Errors)
	}
}

func TestImportLockExcludesConcurrentRuns(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 0)
	env.seedForest(t)

	err := env.st.SaveImportLock(ctx, &domain.ImportLock{Timestamp: time.Now(), Source: "other-device"})
	if err != nil {
		t.Fatalf("SaveImportLock failed: %v", err)
	}

	if _, err := env.eng.FullImport(ctx, nil); !errors.Is(err, domain.ErrLocked) {
		t.Errorf("err = %v, want ErrLocked", err)
	}

	// An expired lock does not block.
	err = env.st.SaveImportLock(ctx, &domain.ImportLock{
		Timestamp: time.Now().Add(-domain.LockTTL - time.Minute),
		Source:    "other-device",
	})
	if err != nil {
		t.Fatalf("SaveImportLock failed: %v", err)
	}
	if _, err := env.eng.FullImport(ctx, nil); err != nil {
		t.Errorf("stale lock blocked the import: %v", err)
	}
}

func TestSmartReimportPreservesSignalMetadata(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 0)
	env.seedForest(t)

	if _, err := env.eng.FullImport(ctx, nil); err != nil {
		t.Fatalf("FullImport failed: %v", err)
	}

	// Attach signal to the docs bookmark and plain notes to news.
	var docsID, newsID string
	results, err := env.tree.Search(ctx, "docs.example.com")
	if err != nil || len(results) != 1 {
		t.Fatalf("locating docs bookmark: %v (%d results)", err, len(results))
	}
	docsID = results[0].ID
	results, err = env.tree.Search(ctx, "news.example.com")
	if err != nil || len(results) != 1 {
		t.Fatalf("locating news bookmark: %v (%d results)", err, len(results))
	}
	newsID = results[0].ID

	summary := "the docs"
	env.meta.Set(docsID, domain.MetadataPatch{AISummary: &summary})
	notes := "plain notes"
	env.meta.Set(newsID, domain.MetadataPatch{UserNotes: &notes})

	res, err := env.eng.SmartReimport(ctx, nil)
	if err != nil {
		t.Fatalf("SmartReimport failed: %v", err)
	}
	if !res.Success || res.ImportedBookmarks != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.RestoredMetadata != 1 {
		t.Errorf("RestoredMetadata = %d, want 1 (only the record with signal)", res.RestoredMetadata)
	}

	// The docs bookmark exists under a new id with the summary reattached.
	results, err = env.tree.Search(ctx, "docs.example.com")
	if err != nil || len(results) != 1 {
		t.Fatalf("docs bookmark missing after reimport: %v (%d results)", err, len(results))
	}
	newDocsID := results[0].ID
	if newDocsID == docsID {
		t.Error("reimport should recreate bookmarks under new ids")
	}
	m, ok := env.meta.Get(newDocsID)
	if !ok || m.AISummary != "the docs" {
		t.Errorf("signal metadata lost across reimport: %+v", m)
	}

	// The old records are purged.
	if _, ok := env.meta.Get(docsID); ok {
		t.Error("old metadata record survived the reimport")
	}
}

func TestBatchImportRunsInChunksAndResumes(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 2)
	env.seedForest(t)

	queued, err := env.eng.StartBatchImport(ctx, nil)
	if err != nil {
		t.Fatalf("StartBatchImport failed: %v", err)
	}
	// 3 folders + 3 bookmarks, containers excluded.
	if queued != 6 {
		t.Errorf("queued = %d, want 6", queued)
	}
	if len(env.sched.created) != 1 || env.sched.created[0] != ContinueAlarm {
		t.Errorf("continuation alarm not armed: %v", env.sched.created)
	}

	// First chunk commits a cursor and re-arms.
	if err := env.eng.ContinueBatch(ctx, nil); err != nil {
		t.Fatalf("ContinueBatch failed: %v", err)
	}
	job, err := env.st.ImportJob(ctx)
	if err != nil || job == nil {
		t.Fatalf("job missing after first chunk: %v", err)
	}
	if job.Cursor != 2 {
		t.Errorf("Cursor = %d, want 2", job.Cursor)
	}

	// Simulate a restart: a fresh engine over the same durable store picks
	// up from the committed cursor with no shared memory.
	log := logger.New("error", false)
	eng2 := New(env.tree, env.meta, env.prov, env.st, env.sched, log, Options{ChunkSize: 2, Source: "test-restart"})
	for i := 0; i < 10; i++ {
		if err := eng2.ContinueBatch(ctx, nil); err != nil {
			if errors.Is(err, domain.ErrNoJob) {
				break
			}
			t.Fatalf("ContinueBatch failed: %v", err)
		}
	}

	bookmarks, folders := countManaged(t, env)
	if bookmarks != 3 || folders != 3 {
		t.Errorf("managed tree has %d bookmarks / %d folders, want 3 / 3", bookmarks, folders)
	}

	// Job deleted and lock released on completion.
	if job, _ := env.st.ImportJob(ctx); job != nil {
		t.Errorf("job still persisted after completion: %+v", job)
	}
	if lock, _ := env.st.ImportLock(ctx); lock != nil {
		t.Errorf("lock still held after completion: %+v", lock)
	}
	if ts, err := env.st.Timestamp(ctx, "last-batch-import"); err != nil || ts.IsZero() {
		t.Errorf("batch timestamp not recorded: %v (err=%v)", ts, err)
	}
}

func TestBatchChunkReplayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 100)
	env.seedForest(t)

	if _, err := env.eng.StartBatchImport(ctx, nil); err != nil {
		t.Fatalf("StartBatchImport failed: %v", err)
	}
	if err := env.eng.ContinueBatch(ctx, nil); err != nil {
		t.Fatalf("ContinueBatch failed: %v", err)
	}

	// Replaying a completed chunk (crash after processing, before the job
	// delete was observed) must not duplicate content: folders are found by
	// path and bookmarks dedup against the tree.
	job := &domain.ImportJob{
		Items:     env.eng.flatten(mustTree(t, env)),
		Cursor:    0,
		Status:    domain.JobInProgress,
		StartTime: time.Now(),
	}
	if err := env.st.SaveImportJob(ctx, job); err != nil {
		t.Fatalf("SaveImportJob failed: %v", err)
	}
	if err := env.eng.ContinueBatch(ctx, nil); err != nil {
		t.Fatalf("replayed ContinueBatch failed: %v", err)
	}

	bookmarks, folders := countManaged(t, env)
	if bookmarks != 3 || folders != 3 {
		t.Errorf("replay duplicated content: %d bookmarks / %d folders, want 3 / 3", bookmarks, folders)
	}
}

func TestCancelBatchClearsJobAndLock(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 2)
	env.seedForest(t)

	if _, err := env.eng.StartBatchImport(ctx, nil); err != nil {
		t.Fatalf("StartBatchImport failed: %v", err)
	}
	if err := env.eng.CancelBatch(ctx); err != nil {
		t.Fatalf("CancelBatch failed: %v", err)
	}

	if job, _ := env.st.ImportJob(ctx); job != nil {
		t.Error("job survived cancellation")
	}
	if lock, _ := env.st.ImportLock(ctx); lock != nil {
		t.Error("lock survived cancellation")
	}
	if err := env.eng.ContinueBatch(ctx, nil); !errors.Is(err, domain.ErrNoJob) {
		t.Errorf("ContinueBatch after cancel: err = %v, want ErrNoJob", err)
	}
}

func TestResumePendingRearmsInterruptedBatch(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 2)
	env.seedForest(t)

	if _, err := env.eng.StartBatchImport(ctx, nil); err != nil {
		t.Fatalf("StartBatchImport failed: %v", err)
	}
	if err := env.eng.ContinueBatch(ctx, nil); err != nil {
		t.Fatalf("ContinueBatch failed: %v", err)
	}

	// Crash window: the runner disarmed the one-shot alarm and the chunk
	// died before re-arming. The store holds the committed cursor and
	// nothing else; a fresh instance must pick the job back up.
	log := logger.New("error", false)
	restartSched := &fakeSched{}
	eng2 := New(env.tree, env.meta, env.prov, env.st, restartSched, log, Options{ChunkSize: 2, Source: "test-restart"})

	if err := eng2.ResumePending(ctx); err != nil {
		t.Fatalf("ResumePending failed: %v", err)
	}
	if len(restartSched.created) != 1 || restartSched.created[0] != ContinueAlarm {
		t.Fatalf("continuation alarm not re-armed: %v", restartSched.created)
	}

	for i := 0; i < 10; i++ {
		if err := eng2.ContinueBatch(ctx, nil); err != nil {
			if errors.Is(err, domain.ErrNoJob) {
				break
			}
			t.Fatalf("ContinueBatch failed: %v", err)
		}
	}

	bookmarks, folders := countManaged(t, env)
	if bookmarks != 3 || folders != 3 {
		t.Errorf("resumed batch left %d bookmarks / %d folders, want 3 / 3", bookmarks, folders)
	}
	if job, _ := env.st.ImportJob(ctx); job != nil {
		t.Errorf("job still persisted after resumed completion: %+v", job)
	}
}

func TestResumePendingNoopWithoutJob(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 2)

	if err := env.eng.ResumePending(ctx); err != nil {
		t.Fatalf("ResumePending failed: %v", err)
	}
	if len(env.sched.created) != 0 {
		t.Errorf("alarm armed with no pending job: %v", env.sched.created)
	}
}

func TestBatchCompletionPersistsFinalResult(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 100)
	env.seedForest(t)

	if res, err := env.eng.LastResult(ctx); err != nil || res != nil {
		t.Fatalf("LastResult before any batch = %+v (err=%v), want nil", res, err)
	}

	if _, err := env.eng.StartBatchImport(ctx, nil); err != nil {
		t.Fatalf("StartBatchImport failed: %v", err)
	}
	if err := env.eng.ContinueBatch(ctx, nil); err != nil {
		t.Fatalf("ContinueBatch failed: %v", err)
	}

	res, err := env.eng.LastResult(ctx)
	if err != nil {
		t.Fatalf("LastResult failed: %v", err)
	}
	if res == nil || !res.Success {
		t.Fatalf("final result not persisted: %+v", res)
	}
	if res.ImportedBookmarks != 3 || res.ImportedFolders != 3 {
		t.Errorf("persisted result = %+v, want 3 bookmarks / 3 folders", res)
	}
}

func TestBatchChunkReportsProgress(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 2)
	env.seedForest(t)

	if _, err := env.eng.StartBatchImport(ctx, nil); err != nil {
		t.Fatalf("StartBatchImport failed: %v", err)
	}

	var seen []domain.Progress
	err := env.eng.ContinueBatch(ctx, func(p domain.Progress) { seen = append(seen, p) })
	if err != nil {
		t.Fatalf("ContinueBatch failed: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("progress calls = %d, want 2 (one per chunk item)", len(seen))
	}
	if seen[0].Phase != "batch" || seen[0].Current != 1 || seen[1].Current != 2 {
		t.Errorf("unexpected progress: %+v", seen)
	}
}

func mustTree(t *testing.T, env *testEnv) []*domain.NativeNode {
	t.Helper()
	containers, err := env.prov.GetTree(context.Background())
	if err != nil {
		t.Fatalf("GetTree failed: %v", err)
	}
	return containers
}
