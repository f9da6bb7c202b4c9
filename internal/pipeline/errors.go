// Package pipeline defines the error kinds shared across every stage of
// the indexing pipeline, so callers can classify a failure with errors.Is
// regardless of which component raised it.
package pipeline

import "errors"

var (
	// ErrValidation marks a request that failed input validation
	// (a malformed Chunk, an empty path, a negative dimension, etc).
	ErrValidation = errors.New("pipeline: validation error")

	// ErrNotInitialized marks an operation attempted against a vector
	// store that has not had initialize() called on it yet.
	ErrNotInitialized = errors.New("pipeline: store not initialized")

	// ErrTransient marks a failure the caller should retry: timeouts,
	// rate limits, 5xx responses, connection resets.
	ErrTransient = errors.New("pipeline: transient error")

	// ErrPermanent marks a failure retrying will not fix: 4xx responses
	// other than 429, malformed requests, unrecoverable provider errors.
	ErrPermanent = errors.New("pipeline: permanent error")

	// ErrCancelled marks a run stopped by caller cancellation rather
	// than failure.
	ErrCancelled = errors.New("pipeline: cancelled")

	// ErrDiscovery marks a failure walking the target directory
	// (permission denied, broken symlink loop, unreadable root).
	ErrDiscovery = errors.New("pipeline: discovery error")
)
