package store

import (
	"context"
	"time"

	"github.com/arborsync/arbor/internal/domain"
)

// Store is the durable key-value persistence the engine relies on: the root
// folder id, the metadata overlay, the single import job and lock records,
// named alarms, and maintenance timestamps.
//
// The store offers no atomic compare-and-set; the import lock built on top
// of it is advisory only.
type Store interface {
	// RootID returns the persisted managed-root id, or "" when none is set.
	RootID(ctx context.Context) (string, error)
	SaveRootID(ctx context.Context, id string) error

	// Metadata returns the record for id, or nil when absent.
	Metadata(ctx context.Context, id string) (*domain.Metadata, error)
	AllMetadata(ctx context.Context) (map[string]*domain.Metadata, error)
	// SaveMetadataMany writes the given records as one bulk operation:
	// either the whole write succeeds or an error is returned.
	SaveMetadataMany(ctx context.Context, records map[string]*domain.Metadata) error
	DeleteMetadata(ctx context.Context, ids ...string) error

	// ImportJob returns the persisted job, or nil when none is active.
	ImportJob(ctx context.Context) (*domain.ImportJob, error)
	SaveImportJob(ctx context.Context, job *domain.ImportJob) error
	DeleteImportJob(ctx context.Context) error

	// ImportResult returns the outcome of the last finished batch import,
	// or nil when none has completed yet.
	ImportResult(ctx context.Context) (*domain.ImportResult, error)
	SaveImportResult(ctx context.Context, res *domain.ImportResult) error

	// ImportLock returns the advisory lock record, or nil when absent.
	ImportLock(ctx context.Context) (*domain.ImportLock, error)
	SaveImportLock(ctx context.Context, lock *domain.ImportLock) error
	DeleteImportLock(ctx context.Context) error

	// Alarms persist the scheduler's named fire times across restarts.
	Alarm(ctx context.Context, name string) (*domain.Alarm, error)
	Alarms(ctx context.Context) ([]*domain.Alarm, error)
	SaveAlarm(ctx context.Context, alarm *domain.Alarm) error
	DeleteAlarm(ctx context.Context, name string) error

	// Timestamps record when named maintenance jobs last ran.
	Timestamp(ctx context.Context, name string) (time.Time, error)
	SaveTimestamp(ctx context.Context, name string, t time.Time) error
}
