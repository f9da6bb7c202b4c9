package store

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"codeindex/internal/db"
	"codeindex/internal/model"
	"codeindex/internal/pipeline"
)

// FragmentThreshold is the default fragment count at which optimize() is
// invoked automatically after a write.
const FragmentThreshold = 100

// VectorStore is the single entry point for everything the indexing
// pipeline persists: files, chunks, and their embeddings. It serializes
// mutations behind a single-writer lock (in-process via mu, cross-process
// via a flock file) while allowing concurrent reads.
type VectorStore struct {
	database db.DB
	dialect  db.Dialect

	files      *FileStore
	chunks     *ChunkStore
	embeddings *embeddingRecordStore

	mu   sync.RWMutex
	lock *flock.Flock

	fragmentThreshold int
	writesSinceOptim  int
}

// Option configures a VectorStore at construction.
type Option func(*VectorStore)

// WithFragmentThreshold overrides the default optimize() trigger point.
func WithFragmentThreshold(n int) Option {
	return func(s *VectorStore) { s.fragmentThreshold = n }
}

// Open creates or opens a VectorStore backed by database, using lockDir to
// hold the cross-process single-writer lock file (typically the same
// directory the database lives in).
func Open(database db.DB, dialect db.Dialect, lockDir string, opts ...Option) (*VectorStore, error) {
	s := &VectorStore{
		database:          database,
		dialect:           dialect,
		lock:              flock.New(filepath.Join(lockDir, "store.lock")),
		fragmentThreshold: FragmentThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.initialize(); err != nil {
		return nil, err
	}
	return s, nil
}

// initialize creates or opens every table this store owns. Idempotent.
func (s *VectorStore) initialize() error {
	files, err := NewFileStore(s.database, s.dialect)
	if err != nil {
		return err
	}
	chunks, err := NewChunkStore(s.database, s.dialect)
	if err != nil {
		return err
	}
	embeddings, err := newEmbeddingRecordStore(s.database, s.dialect)
	if err != nil {
		return err
	}
	s.files = files
	s.chunks = chunks
	s.embeddings = embeddings
	return nil
}

// withWriteLock serializes fn against every other mutating call, in this
// process via mu and across processes via the flock file.
func (s *VectorStore) withWriteLock(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("acquiring store write lock: %w", err)
	}
	defer s.lock.Unlock()

	return fn()
}

// UpsertFile inserts or updates File and returns its id.
func (s *VectorStore) UpsertFile(f model.File) (int64, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	var id int64
	err := s.withWriteLock(func() error {
		var err error
		id, err = s.files.Upsert(f)
		return err
	})
	return id, err
}

// GetFileByPath returns the File on record for path, if any.
func (s *VectorStore) GetFileByPath(path string) (model.File, bool, error) {
	return s.files.GetByPath(path)
}

// InsertChunksBatch persists chunks and returns their assigned ids,
// preserving any pre-assigned id. Automatically triggers optimize() once
// fragment growth crosses the configured threshold.
func (s *VectorStore) InsertChunksBatch(chunks []model.Chunk) ([]int64, error) {
	for _, c := range chunks {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}

	var ids []int64
	needsOptimize := false
	err := s.withWriteLock(func() error {
		var err error
		ids, err = s.chunks.InsertBatch(chunks)
		if err != nil {
			return err
		}
		s.writesSinceOptim += len(chunks)
		if s.writesSinceOptim >= s.fragmentThreshold {
			needsOptimize = true
			s.writesSinceOptim = 0
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if needsOptimize {
		// Optimize runs outside the caller's write lock so it never blocks
		// the batch that triggered it.
		go func() { _ = s.Optimize() }()
	}
	return ids, nil
}

// GetChunksByHashes returns the chunks on record whose content_hash
// appears in hashes.
func (s *VectorStore) GetChunksByHashes(hashes []string) ([]model.Chunk, error) {
	if s.chunks == nil {
		return nil, pipeline.ErrNotInitialized
	}
	return s.chunks.GetByHashes(hashes)
}

// GetChunksByFilePath returns every chunk on record for path.
func (s *VectorStore) GetChunksByFilePath(path string) ([]model.Chunk, error) {
	return s.chunks.GetByFilePath(path)
}

// GetChunksByIDs returns the chunks on record whose id appears in ids.
func (s *VectorStore) GetChunksByIDs(ids []int64) ([]model.Chunk, error) {
	return s.chunks.GetByIDs(ids)
}

// FilterExistingEmbeddings returns the subset of chunkIDs that do not
// already have a usable embedding for (provider, model).
func (s *VectorStore) FilterExistingEmbeddings(chunkIDs []int64, provider, modelName string) ([]int64, error) {
	return s.embeddings.FilterExisting(chunkIDs, provider, modelName)
}

// InsertEmbeddingsBatch merges records on (chunk_id, provider, model) and
// returns a per-chunk status map.
func (s *VectorStore) InsertEmbeddingsBatch(records []model.EmbeddingRecord) (map[int64]model.EmbeddingStatus, error) {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	var status map[int64]model.EmbeddingStatus
	err := s.withWriteLock(func() error {
		var err error
		status, err = s.embeddings.InsertBatch(records)
		return err
	})
	return status, err
}

// DeleteEmbeddingsForChunks removes the (provider, model) embedding for
// each of chunkIDs.
func (s *VectorStore) DeleteEmbeddingsForChunks(chunkIDs []int64, provider, modelName string) error {
	return s.withWriteLock(func() error {
		return s.embeddings.DeleteForChunks(chunkIDs, provider, modelName)
	})
}

// FragmentCounts reports the row count for each table this store owns.
func (s *VectorStore) FragmentCounts() (map[string]int, error) {
	counts := make(map[string]int, 3)

	n, err := s.files.Count()
	if err != nil {
		return nil, err
	}
	counts["files"] = n

	n, err = s.chunks.Count()
	if err != nil {
		return nil, err
	}
	counts["chunks"] = n

	n, err = s.embeddings.Count()
	if err != nil {
		return nil, err
	}
	counts["chunk_embeddings"] = n

	return counts, nil
}

// Optimize compacts fragments. It takes a read lock, not the write lock,
// so readers continue to make progress while it runs; writers wait for it
// to finish, and it waits for a write already in progress. The
// underlying dialect's own maintenance statement (VACUUM-equivalent) is
// delegated to the database driver, which already serializes internally.
func (s *VectorStore) Optimize() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.dialect.Name() {
	case "sqlite":
		_, err := s.database.Exec("PRAGMA optimize")
		return err
	case "postgres":
		_, err := s.database.Exec("ANALYZE files, chunks, chunk_embeddings")
		return err
	default:
		return nil
	}
}

// ClearAll truncates every table this store owns and resets write
// bookkeeping.
func (s *VectorStore) ClearAll() error {
	return s.withWriteLock(func() error {
		if err := s.files.ClearAll(); err != nil {
			return err
		}
		if err := s.chunks.ClearAll(); err != nil {
			return err
		}
		if err := s.embeddings.ClearAll(); err != nil {
			return err
		}
		s.writesSinceOptim = 0
		return nil
	})
}
