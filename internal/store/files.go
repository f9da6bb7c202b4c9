// Package store implements the persisted side of the indexing pipeline:
// the files/chunks/embeddings tables and the single-writer discipline that
// guards them, composed from the file, chunk and embedding-record stores,
// each built on db.DB and db.Dialect.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"codeindex/internal/db"
	"codeindex/internal/model"
)

// FileStore persists one row per discovered file, the record used to
// decide whether a later scan can skip re-parsing it.
type FileStore struct {
	database db.DB
	dialect  db.Dialect
	schema   *db.SchemaBuilder
	mu       sync.RWMutex
}

// NewFileStore opens (and if needed creates) the files table.
func NewFileStore(database db.DB, dialect db.Dialect) (*FileStore, error) {
	s := &FileStore{
		database: database,
		dialect:  dialect,
		schema:   db.NewSchemaBuilder(database, dialect),
	}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initializing files schema: %w", err)
	}
	return s, nil
}

func (s *FileStore) initSchema() error {
	columns := []db.ColumnDef{
		{Name: "id", Type: db.ColTypeAutoIncrement},
		{Name: "path", Type: db.ColTypeText, Nullable: false},
		{Name: "size", Type: db.ColTypeInteger, Nullable: false},
		{Name: "modified_time", Type: db.ColTypeInteger, Nullable: false},
		{Name: "content_hash", Type: db.ColTypeText, Nullable: true},
		{Name: "indexed_time", Type: db.ColTypeInteger, Nullable: false},
		{Name: "language", Type: db.ColTypeText, Nullable: false},
	}
	if _, err := s.database.Exec(s.dialect.CreateTableSQL("files", columns)); err != nil {
		return fmt.Errorf("creating files table: %w", err)
	}
	idx := s.dialect.CreateIndexSQL("files", "idx_files_path", []string{"path"}, true)
	if _, err := s.database.Exec(idx); err != nil {
		return fmt.Errorf("creating files path index: %w", err)
	}
	return nil
}

// Upsert updates the row with File's ID when the ID is non-zero. When the
// ID is zero it inserts a row, or updates the row already on record for
// the same path. It returns the row's id either way.
func (s *FileStore) Upsert(f model.File) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().Unix()
	if f.ID != 0 {
		updateSQL := s.schema.SubstitutePlaceholders(fmt.Sprintf(
			"UPDATE files SET size = %s, modified_time = %s, content_hash = %s, indexed_time = %s, language = %s WHERE id = %s",
			s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3),
			s.dialect.Placeholder(4), s.dialect.Placeholder(5), s.dialect.Placeholder(6)))
		if _, err := s.database.Exec(updateSQL, f.SizeBytes, f.MTime, nullString(f.ContentHash), now, string(f.Language), f.ID); err != nil {
			return 0, fmt.Errorf("updating file: %w", err)
		}
		return f.ID, nil
	}

	columns := []string{"path", "size", "modified_time", "content_hash", "indexed_time", "language"}
	conflict := []string{"path"}
	updates := []string{"size", "modified_time", "content_hash", "indexed_time", "language"}
	upsertSQL := s.schema.SubstitutePlaceholders(s.dialect.UpsertSQL("files", columns, conflict, updates))

	if _, err := s.database.Exec(upsertSQL, f.Path, f.SizeBytes, f.MTime, nullString(f.ContentHash), now, string(f.Language)); err != nil {
		return 0, fmt.Errorf("upserting file: %w", err)
	}

	return s.idForPath(f.Path)
}

func (s *FileStore) idForPath(path string) (int64, error) {
	query := s.schema.SubstitutePlaceholders(fmt.Sprintf("SELECT id FROM files WHERE path = %s", s.dialect.Placeholder(1)))
	row := s.database.QueryRow(query, path)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("fetching id for upserted file: %w", err)
	}
	return id, nil
}

// GetByPath returns the File recorded for path, or (File{}, false) if none
// exists.
func (s *FileStore) GetByPath(path string) (model.File, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := s.schema.SubstitutePlaceholders(fmt.Sprintf(
		"SELECT id, path, size, modified_time, content_hash, language FROM files WHERE path = %s",
		s.dialect.Placeholder(1)))
	row := s.database.QueryRow(query, path)

	var f model.File
	var hash sql.NullString
	var lang string
	if err := row.Scan(&f.ID, &f.Path, &f.SizeBytes, &f.MTime, &hash, &lang); err != nil {
		if err == sql.ErrNoRows {
			return model.File{}, false, nil
		}
		return model.File{}, false, fmt.Errorf("querying file by path: %w", err)
	}
	f.ContentHash = hash.String
	f.Language = model.Language(lang)
	return f, true, nil
}

// Delete removes the file row for path, if present.
func (s *FileStore) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt := s.schema.SubstitutePlaceholders(fmt.Sprintf("DELETE FROM files WHERE path = %s", s.dialect.Placeholder(1)))
	_, err := s.database.Exec(stmt, path)
	return err
}

// Count returns the number of file rows on record.
func (s *FileStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.database.QueryRow("SELECT COUNT(*) FROM files")
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ClearAll truncates the files table.
func (s *FileStore) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.database.Exec("DELETE FROM files")
	return err
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
