package domain

import "errors"

var (
	// ErrNotInitialized is returned for any operation before Initialize
	// has completed. This is a programmer error, never retried.
	ErrNotInitialized = errors.New("tree service not initialized")

	// ErrOutOfScope is returned when the operand (or, for creates, the
	// target parent) lies outside the managed subtree.
	ErrOutOfScope = errors.New("node outside the managed subtree")

	// ErrCycle is returned when a folder move would place a folder inside
	// its own descendant.
	ErrCycle = errors.New("move would create a cycle")

	// ErrNotFound is returned when an id has vanished from the provider
	// between observation and use. Traversals catch and skip it.
	ErrNotFound = errors.New("node not found")

	// ErrLocked is returned when another actor holds a fresh import lock.
	ErrLocked = errors.New("import lock held by another instance")

	// ErrNoJob is returned when a batch continuation finds no active job.
	ErrNoJob = errors.New("no active import job")

	// ErrWriteFailed wraps a durable write that failed after retry
	// exhaustion. The caller must not assume the last change is durable.
	ErrWriteFailed = errors.New("durable write failed")
)
