package store

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"codeindex/internal/db"
	"codeindex/internal/model"
)

// ChunkStore persists chunk content and metadata, keyed by an
// auto-assigned id that is monotonic within a process. A chunk's
// embedding records live in the chunk_embeddings table, keyed by chunk_id;
// EmbeddingCache separately holds vectors keyed by the content_hash this
// table records.
type ChunkStore struct {
	database db.DB
	dialect  db.Dialect
	schema   *db.SchemaBuilder
	mu       sync.RWMutex
}

// NewChunkStore opens (and if needed creates) the chunks table.
func NewChunkStore(database db.DB, dialect db.Dialect) (*ChunkStore, error) {
	s := &ChunkStore{
		database: database,
		dialect:  dialect,
		schema:   db.NewSchemaBuilder(database, dialect),
	}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initializing chunks schema: %w", err)
	}
	return s, nil
}

func (s *ChunkStore) initSchema() error {
	columns := []db.ColumnDef{
		{Name: "id", Type: db.ColTypeAutoIncrement},
		{Name: "file_id", Type: db.ColTypeInteger, Nullable: false},
		{Name: "file_path", Type: db.ColTypeText, Nullable: false},
		{Name: "content", Type: db.ColTypeText, Nullable: false},
		{Name: "content_hash", Type: db.ColTypeText, Nullable: false},
		{Name: "start_line", Type: db.ColTypeInteger, Nullable: false},
		{Name: "end_line", Type: db.ColTypeInteger, Nullable: false},
		{Name: "chunk_type", Type: db.ColTypeText, Nullable: false},
		{Name: "language", Type: db.ColTypeText, Nullable: false},
		{Name: "name", Type: db.ColTypeText, Nullable: true},
		{Name: "created_time", Type: db.ColTypeInteger, Nullable: false},
	}
	if _, err := s.database.Exec(s.dialect.CreateTableSQL("chunks", columns)); err != nil {
		return fmt.Errorf("creating chunks table: %w", err)
	}
	for _, idx := range []struct {
		name string
		cols []string
	}{
		{"idx_chunks_file_id", []string{"file_id"}},
		{"idx_chunks_file_path", []string{"file_path"}},
		{"idx_chunks_content_hash", []string{"content_hash"}},
	} {
		if _, err := s.database.Exec(s.dialect.CreateIndexSQL("chunks", idx.name, idx.cols, false)); err != nil {
			return fmt.Errorf("creating %s: %w", idx.name, err)
		}
	}
	return nil
}

// InsertBatch inserts chunks and returns their assigned ids in the same
// order. A chunk with a non-zero ID already set keeps that id (its row is
// still (re)written so content stays in sync).
func (s *ChunkStore) InsertBatch(chunks []model.Chunk) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, len(chunks))
	now := time.Now().Unix()

	insertSQL := s.schema.SubstitutePlaceholders(fmt.Sprintf(
		"INSERT INTO chunks (file_id, file_path, content, content_hash, start_line, end_line, chunk_type, language, name, created_time) VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s)",
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3), s.dialect.Placeholder(4),
		s.dialect.Placeholder(5), s.dialect.Placeholder(6), s.dialect.Placeholder(7), s.dialect.Placeholder(8),
		s.dialect.Placeholder(9), s.dialect.Placeholder(10)))

	for i, c := range chunks {
		result, err := s.database.Exec(insertSQL,
			c.FileID, c.FilePath, c.Code, c.ContentHash, c.StartLine, c.EndLine,
			string(c.ChunkType), string(c.Language), nullString(c.Symbol), now)
		if err != nil {
			return nil, fmt.Errorf("inserting chunk %d: %w", i, err)
		}
		id := c.ID
		if id == 0 {
			id, err = result.LastInsertId()
			if err != nil {
				return nil, fmt.Errorf("reading inserted chunk id: %w", err)
			}
		}
		ids[i] = id
	}
	return ids, nil
}

// GetByHashes returns the chunks on record whose content_hash appears in
// hashes.
func (s *ChunkStore) GetByHashes(hashes []string) ([]model.Chunk, error) {
	if len(hashes) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := make([]string, len(hashes))
	args := make([]interface{}, len(hashes))
	for i, h := range hashes {
		placeholders[i] = s.dialect.Placeholder(i + 1)
		args[i] = h
	}
	query := s.schema.SubstitutePlaceholders(fmt.Sprintf(
		"SELECT id, file_id, file_path, content, content_hash, start_line, end_line, chunk_type, language, name FROM chunks WHERE content_hash IN (%s)",
		strings.Join(placeholders, ", ")))
	rows, err := s.database.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks by hash: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// GetByFilePath returns every chunk on record for path.
func (s *ChunkStore) GetByFilePath(path string) ([]model.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := s.schema.SubstitutePlaceholders(fmt.Sprintf(
		"SELECT id, file_id, file_path, content, content_hash, start_line, end_line, chunk_type, language, name FROM chunks WHERE file_path = %s",
		s.dialect.Placeholder(1)))
	rows, err := s.database.Query(query, path)
	if err != nil {
		return nil, fmt.Errorf("querying chunks by path: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// GetByIDs returns the chunks on record whose id appears in ids.
func (s *ChunkStore) GetByIDs(ids []int64) ([]model.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = s.dialect.Placeholder(i + 1)
		args[i] = id
	}
	query := s.schema.SubstitutePlaceholders(fmt.Sprintf(
		"SELECT id, file_id, file_path, content, content_hash, start_line, end_line, chunk_type, language, name FROM chunks WHERE id IN (%s)",
		strings.Join(placeholders, ", ")))
	rows, err := s.database.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks by id: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

// DeleteByFilePath removes every chunk on record for path.
func (s *ChunkStore) DeleteByFilePath(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt := s.schema.SubstitutePlaceholders(fmt.Sprintf("DELETE FROM chunks WHERE file_path = %s", s.dialect.Placeholder(1)))
	_, err := s.database.Exec(stmt, path)
	return err
}

// DeleteByIDs removes the chunks on record whose id appears in ids.
func (s *ChunkStore) DeleteByIDs(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = s.dialect.Placeholder(i + 1)
		args[i] = id
	}
	stmt := s.schema.SubstitutePlaceholders(fmt.Sprintf("DELETE FROM chunks WHERE id IN (%s)", strings.Join(placeholders, ", ")))
	_, err := s.database.Exec(stmt, args...)
	return err
}

// Count returns the number of chunk rows on record.
func (s *ChunkStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.database.QueryRow("SELECT COUNT(*) FROM chunks")
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ClearAll truncates the chunks table.
func (s *ChunkStore) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.database.Exec("DELETE FROM chunks")
	return err
}

func scanChunks(rows db.Rows) ([]model.Chunk, error) {
	var out []model.Chunk
	for rows.Next() {
		var c model.Chunk
		var chunkType, language string
		var name sql.NullString
		if err := rows.Scan(&c.ID, &c.FileID, &c.FilePath, &c.Code, &c.ContentHash,
			&c.StartLine, &c.EndLine, &chunkType, &language, &name); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		c.ChunkType = model.ChunkType(chunkType)
		c.Language = model.Language(language)
		c.Symbol = name.String
		out = append(out, c)
	}
	return out, rows.Err()
}
