package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrBatchFatal marks a failed batch metadata create: no candidate in
	// the batch was persisted and the caller must retry the whole batch.
	ErrBatchFatal = errors.New("batch metadata create failed")

	// ErrDependencyUnavailable marks an unreachable external capability
	// (storage, repository, face detection). Fatal for the affected
	// candidate only.
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrQueueFull is returned when the post-processing queue cannot accept
	// another task without blocking the request path.
	ErrQueueFull = errors.New("task queue full")
)
