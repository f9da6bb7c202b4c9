// Package stage implements the Parse, Embed, and Store worker pools that
// connect over bounded, typed channels: a file path goes in one end, a
// persisted, optionally embedded chunk set comes out the other.
package stage

import "codeindex/internal/model"

// ParseResult is what the Parse stage emits for one discovered file that
// was actually read. Files skipped as binary never produce one.
type ParseResult struct {
	Path   string
	File   model.File
	Chunks []model.Chunk
	Err    error
}

// EmbeddedChunk pairs a chunk with its embedding vector. Vector is nil
// when embedding is disabled or the provider could not produce one.
type EmbeddedChunk struct {
	Chunk  model.Chunk
	Vector []float32
}

// EmbeddedFile is what the Embed stage emits: one file's chunks, each
// with whatever vector resolution it could manage.
type EmbeddedFile struct {
	File   model.File
	Chunks []EmbeddedChunk
	Err    error
}

// StoreResult reports the outcome of one Store-stage flush.
type StoreResult struct {
	FilesStored      int
	ChunksStored     int
	EmbeddingsStored int
	Err              error
}

// Counters are the atomic progress counters a coordinator reads while a
// run is in flight. All fields are accessed via sync/atomic.
type Counters struct {
	FilesDiscovered int64
	FilesSkipped    int64
	FilesFailed     int64
	ChunksCreated   int64
	ChunksEmbedded  int64
	ChunksStored    int64
}
