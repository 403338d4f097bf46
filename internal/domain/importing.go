package domain

import "time"

const (
	// LockTTL is how long an import lock stays valid without renewal.
	LockTTL = 5 * time.Minute

	// DefaultChunkSize is the number of items a batch import processes
	// between two persisted cursor commits.
	DefaultChunkSize = 50

	// FlushDebounce coalesces rapid metadata writes into one store write.
	FlushDebounce = 500 * time.Millisecond

	// FlushRetries and FlushBackoff bound the durable-write retry loop.
	FlushRetries = 3
	FlushBackoff = 100 * time.Millisecond
)

// JobStatus is the lifecycle state of a persisted import job.
type JobStatus string

const (
	JobInProgress JobStatus = "in_progress"
	JobDone       JobStatus = "done"
)

// ImportItem is one flattened node from the external forest, annotated with
// the folder path it should be recreated under.
type ImportItem struct {
	ID         string `json:"id"`
	ParentPath string `json:"parent_path"`
	Title      string `json:"title"`
	URL        string `json:"url,omitempty"`
	IsFolder   bool   `json:"is_folder"`
}

// ImportJob is the persisted state of a resumable batch import. It is
// rewritten wholesale after every chunk so a crash resumes from the last
// committed cursor.
type ImportJob struct {
	Items       []ImportItem `json:"items"`
	Cursor      int          `json:"cursor"`
	Accumulated ImportResult `json:"accumulated"`
	Status      JobStatus    `json:"status"`
	StartTime   time.Time    `json:"start_time"`
}

// ImportResult is the outcome of an import or reimport pass. Per-item
// failures are collected in Errors and never abort the run.
type ImportResult struct {
	Success           bool     `json:"success"`
	ImportedBookmarks int      `json:"imported_bookmarks"`
	ImportedFolders   int      `json:"imported_folders"`
	SkippedDuplicates int      `json:"skipped_duplicates"`
	RestoredMetadata  int      `json:"restored_metadata,omitempty"`
	Errors            []string `json:"errors,omitempty"`
}

// ImportLock is the advisory cross-process mutual-exclusion record. The
// underlying store has no compare-and-set, so two near-simultaneous actors
// can both acquire it; that rare race is repaired by ghost cleanup.
type ImportLock struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// Fresh reports whether the lock is still valid at now.
func (l *ImportLock) Fresh(now time.Time, ttl time.Duration) bool {
	return l != nil && now.Sub(l.Timestamp) < ttl
}

// Progress is reported to the optional import progress callback.
type Progress struct {
	Phase       string `json:"phase"`
	Current     int    `json:"current"`
	CurrentItem string `json:"current_item,omitempty"`
}

// ProgressFunc receives progress updates during an import pass.
type ProgressFunc func(Progress)

// Alarm is a persisted named schedule entry. One-shot alarms have a zero
// Period and are deleted after firing; periodic alarms are re-armed.
type Alarm struct {
	Name     string        `json:"name"`
	NextFire time.Time     `json:"next_fire"`
	Period   time.Duration `json:"period,omitempty"`
}
