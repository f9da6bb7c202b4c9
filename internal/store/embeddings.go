package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"codeindex/internal/db"
	"codeindex/internal/model"
)

// embeddingRecordStore persists one vector per (chunk_id, provider, model),
// distinct from EmbeddingCache's content-hash-keyed dedup table: two
// chunks with identical code share a cache entry, but each still gets its
// own row here so filter_existing_embeddings can answer per chunk id.
type embeddingRecordStore struct {
	database db.DB
	dialect  db.Dialect
	schema   *db.SchemaBuilder
	mu       sync.RWMutex
}

func newEmbeddingRecordStore(database db.DB, dialect db.Dialect) (*embeddingRecordStore, error) {
	s := &embeddingRecordStore{
		database: database,
		dialect:  dialect,
		schema:   db.NewSchemaBuilder(database, dialect),
	}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initializing chunk_embeddings schema: %w", err)
	}
	return s, nil
}

func (s *embeddingRecordStore) initSchema() error {
	columns := []db.ColumnDef{
		{Name: "chunk_id", Type: db.ColTypeInteger, Nullable: false},
		{Name: "provider", Type: db.ColTypeText, Nullable: false},
		{Name: "model", Type: db.ColTypeText, Nullable: false},
		{Name: "dimensions", Type: db.ColTypeInteger, Nullable: false},
		{Name: "vector", Type: db.ColTypeText, Nullable: false},
		{Name: "status", Type: db.ColTypeText, Nullable: false},
		{Name: "created_time", Type: db.ColTypeInteger, Nullable: false},
	}
	if _, err := s.database.Exec(s.dialect.CreateTableSQL("chunk_embeddings", columns)); err != nil {
		return fmt.Errorf("creating chunk_embeddings table: %w", err)
	}
	idx := s.dialect.CreateIndexSQL("chunk_embeddings", "idx_chunk_embeddings_unique",
		[]string{"chunk_id", "provider", "model"}, true)
	if _, err := s.database.Exec(idx); err != nil {
		return fmt.Errorf("creating chunk_embeddings unique index: %w", err)
	}
	return nil
}

// FilterExisting returns the subset of chunkIDs that do NOT already have a
// usable (status=success) embedding for (provider, model).
func (s *embeddingRecordStore) FilterExisting(chunkIDs []int64, provider, modelName string) ([]int64, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := make([]string, len(chunkIDs))
	args := make([]interface{}, 0, len(chunkIDs)+2)
	for i, id := range chunkIDs {
		placeholders[i] = s.dialect.Placeholder(i + 1)
		args = append(args, id)
	}
	args = append(args, provider, modelName)

	query := s.schema.SubstitutePlaceholders(fmt.Sprintf(
		"SELECT chunk_id FROM chunk_embeddings WHERE chunk_id IN (%s) AND provider = %s AND model = %s AND status = 'success'",
		strings.Join(placeholders, ", "), s.dialect.Placeholder(len(chunkIDs)+1), s.dialect.Placeholder(len(chunkIDs)+2)))

	rows, err := s.database.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying existing embeddings: %w", err)
	}
	defer rows.Close()

	have := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		have[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []int64
	for _, id := range chunkIDs {
		if !have[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// InsertBatch merges records on (chunk_id, provider, model), replacing any
// prior vector. Returns a per-chunk status map.
func (s *embeddingRecordStore) InsertBatch(records []model.EmbeddingRecord) (map[int64]model.EmbeddingStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	status := make(map[int64]model.EmbeddingStatus, len(records))

	columns := []string{"chunk_id", "provider", "model", "dimensions", "vector", "status", "created_time"}
	conflict := []string{"chunk_id", "provider", "model"}
	updates := []string{"dimensions", "vector", "status", "created_time"}
	upsertSQL := s.schema.SubstitutePlaceholders(s.dialect.UpsertSQL("chunk_embeddings", columns, conflict, updates))

	for _, r := range records {
		vecJSON, err := json.Marshal(r.Vector)
		if err != nil {
			status[r.ChunkID] = model.EmbeddingFailed
			continue
		}
		if _, err := s.database.Exec(upsertSQL, r.ChunkID, r.Provider, r.Model, r.Dimensions, string(vecJSON), string(r.Status), now); err != nil {
			return nil, fmt.Errorf("inserting embedding for chunk %d: %w", r.ChunkID, err)
		}
		status[r.ChunkID] = r.Status
	}
	return status, nil
}

// DeleteForChunks removes the (provider, model) embedding for each of
// chunkIDs, if present.
func (s *embeddingRecordStore) DeleteForChunks(chunkIDs []int64, provider, modelName string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	placeholders := make([]string, len(chunkIDs))
	args := make([]interface{}, 0, len(chunkIDs)+2)
	for i, id := range chunkIDs {
		placeholders[i] = s.dialect.Placeholder(i + 1)
		args = append(args, id)
	}
	args = append(args, provider, modelName)

	stmt := s.schema.SubstitutePlaceholders(fmt.Sprintf(
		"DELETE FROM chunk_embeddings WHERE chunk_id IN (%s) AND provider = %s AND model = %s",
		strings.Join(placeholders, ", "), s.dialect.Placeholder(len(chunkIDs)+1), s.dialect.Placeholder(len(chunkIDs)+2)))

	_, err := s.database.Exec(stmt, args...)
	return err
}

// Count returns the number of embedding rows on record.
func (s *embeddingRecordStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.database.QueryRow("SELECT COUNT(*) FROM chunk_embeddings")
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ClearAll truncates the chunk_embeddings table.
func (s *embeddingRecordStore) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.database.Exec("DELETE FROM chunk_embeddings")
	return err
}
