package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver selects which SQL driver backs a sqlite-family connection, or
// routes to PostgreSQL.
type Driver string

const (
	// DriverModernc uses modernc.org/sqlite, a pure-Go driver with no CGO
	// dependency. This is the default: it runs anywhere Go runs, at the
	// cost of being unable to load the sqlite-vec extension.
	DriverModernc Driver = "modernc"

	// DriverNcruces would use github.com/ncruces/go-sqlite3 (a WASM-backed
	// driver); not implemented in this module.
	DriverNcruces Driver = "ncruces"

	// DriverMattn uses github.com/mattn/go-sqlite3, a cgo driver. Open
	// loads no SQLite extensions for it.
	DriverMattn Driver = "mattn"

	// DriverPostgres routes through lib/pq against a PostgreSQL server.
	DriverPostgres Driver = "postgres"
)

// Config describes how to open a database connection.
type Config struct {
	Driver Driver

	// Path is a filesystem path (or ":memory:") for sqlite-family drivers,
	// or a libpq connection string for DriverPostgres.
	Path string

	// EnableWAL turns on SQLite's WAL journal mode for concurrent readers.
	EnableWAL bool
}

// DefaultConfig returns a Config for a WAL-enabled SQLite database at path.
func DefaultConfig(path string) Config {
	return Config{
		Driver:    DriverModernc,
		Path:      path,
		EnableWAL: true,
	}
}

// Dialect returns the SQL dialect implied by the configured driver.
func (c Config) Dialect() Dialect {
	if c.Driver == DriverPostgres {
		return GetDialect(DatabasePostgres)
	}
	return GetDialect(DatabaseSQLite)
}

// DB is the minimal database surface the rest of the module depends on.
// It mirrors *sql.DB closely enough that a thin wrapper (sqlDBAdapter)
// can adapt an existing *sql.DB without behavioral change.
type DB interface {
	Exec(query string, args ...any) (Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (Result, error)
	Query(query string, args ...any) (Rows, error)
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(query string, args ...any) Row
	QueryRowContext(ctx context.Context, query string, args ...any) Row
	Begin() (Tx, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
	Ping() error
	PingContext(ctx context.Context) error
	Close() error
}

// Tx is a database transaction.
type Tx interface {
	Exec(query string, args ...any) (Result, error)
	Query(query string, args ...any) (Rows, error)
	QueryRow(query string, args ...any) Row
	Prepare(query string) (Stmt, error)
	Commit() error
	Rollback() error
}

// Stmt is a prepared statement.
type Stmt interface {
	Exec(args ...any) (Result, error)
	Query(args ...any) (Rows, error)
	QueryRow(args ...any) Row
	Close() error
}

// Rows is the result set of a Query call.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
	Columns() ([]string, error)
}

// Row is the result of a QueryRow call.
type Row interface {
	Scan(dest ...any) error
	Err() error
}

// Result reports the outcome of an Exec call.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}

// Open opens a database connection per cfg, dispatching on cfg.Driver.
func Open(cfg Config) (DB, error) {
	switch cfg.Driver {
	case DriverModernc, "":
		db, err := OpenModernc(cfg)
		if err != nil {
			return nil, err
		}
		return db, nil
	case DriverMattn:
		sqlDB, err := sql.Open("sqlite3", cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening mattn sqlite3 driver: %w", err)
		}
		if cfg.EnableWAL {
			if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
				sqlDB.Close()
				return nil, fmt.Errorf("enabling WAL: %w", err)
			}
		}
		return WrapSQL(sqlDB), nil
	case DriverPostgres:
		sqlDB, err := sql.Open("postgres", cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening postgres driver: %w", err)
		}
		return WrapSQL(sqlDB), nil
	case DriverNcruces:
		return nil, fmt.Errorf("driver %q: not implemented", cfg.Driver)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

// ModerncDB wraps a *sql.DB opened with the pure-Go modernc.org/sqlite driver.
type ModerncDB struct {
	db *sql.DB
}

// OpenModernc opens a SQLite database using modernc.org/sqlite.
func OpenModernc(cfg Config) (*ModerncDB, error) {
	if cfg.Path != ":memory:" && cfg.Path != "" {
		dir := filepath.Dir(cfg.Path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
	}

	sqlDB, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	if cfg.EnableWAL {
		mode := "WAL"
		if _, err := sqlDB.Exec("PRAGMA journal_mode=" + mode); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("enabling WAL: %w", err)
		}
	}

	return &ModerncDB{db: sqlDB}, nil
}

// Unwrap returns the underlying *sql.DB.
func (m *ModerncDB) Unwrap() *sql.DB { return m.db }

func (m *ModerncDB) Exec(query string, args ...any) (Result, error) {
	return m.db.Exec(query, args...)
}

func (m *ModerncDB) ExecContext(ctx context.Context, query string, args ...any) (Result, error) {
	return m.db.ExecContext(ctx, query, args...)
}

func (m *ModerncDB) Query(query string, args ...any) (Rows, error) {
	rows, err := m.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRowsAdapter{rows}, nil
}

func (m *ModerncDB) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRowsAdapter{rows}, nil
}

func (m *ModerncDB) QueryRow(query string, args ...any) Row {
	return &sqlRowAdapter{m.db.QueryRow(query, args...)}
}

func (m *ModerncDB) QueryRowContext(ctx context.Context, query string, args ...any) Row {
	return &sqlRowAdapter{m.db.QueryRowContext(ctx, query, args...)}
}

func (m *ModerncDB) Begin() (Tx, error) {
	tx, err := m.db.Begin()
	if err != nil {
		return nil, err
	}
	return &sqlTxAdapter{tx}, nil
}

func (m *ModerncDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	tx, err := m.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &sqlTxAdapter{tx}, nil
}

func (m *ModerncDB) Ping() error                        { return m.db.Ping() }
func (m *ModerncDB) PingContext(ctx context.Context) error { return m.db.PingContext(ctx) }
func (m *ModerncDB) Close() error                       { return m.db.Close() }

// WrapSQL adapts an existing *sql.DB (opened by the caller with whatever
// driver it likes) to the DB interface.
func WrapSQL(sqlDB *sql.DB) DB {
	return &sqlDBAdapter{sqlDB}
}

type sqlDBAdapter struct{ db *sql.DB }

func (a *sqlDBAdapter) Exec(query string, args ...any) (Result, error) {
	return a.db.Exec(query, args...)
}

func (a *sqlDBAdapter) ExecContext(ctx context.Context, query string, args ...any) (Result, error) {
	return a.db.ExecContext(ctx, query, args...)
}

func (a *sqlDBAdapter) Query(query string, args ...any) (Rows, error) {
	rows, err := a.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRowsAdapter{rows}, nil
}

func (a *sqlDBAdapter) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRowsAdapter{rows}, nil
}

func (a *sqlDBAdapter) QueryRow(query string, args ...any) Row {
	return &sqlRowAdapter{a.db.QueryRow(query, args...)}
}

func (a *sqlDBAdapter) QueryRowContext(ctx context.Context, query string, args ...any) Row {
	return &sqlRowAdapter{a.db.QueryRowContext(ctx, query, args...)}
}

func (a *sqlDBAdapter) Begin() (Tx, error) {
	tx, err := a.db.Begin()
	if err != nil {
		return nil, err
	}
	return &sqlTxAdapter{tx}, nil
}

func (a *sqlDBAdapter) BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error) {
	tx, err := a.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &sqlTxAdapter{tx}, nil
}

func (a *sqlDBAdapter) Ping() error                          { return a.db.Ping() }
func (a *sqlDBAdapter) PingContext(ctx context.Context) error { return a.db.PingContext(ctx) }
func (a *sqlDBAdapter) Close() error                          { return a.db.Close() }

type sqlRowsAdapter struct{ rows *sql.Rows }

func (r *sqlRowsAdapter) Next() bool                 { return r.rows.Next() }
func (r *sqlRowsAdapter) Scan(dest ...any) error     { return r.rows.Scan(dest...) }
func (r *sqlRowsAdapter) Close() error                { return r.rows.Close() }
func (r *sqlRowsAdapter) Err() error                  { return r.rows.Err() }
func (r *sqlRowsAdapter) Columns() ([]string, error) { return r.rows.Columns() }

type sqlRowAdapter struct{ row *sql.Row }

func (r *sqlRowAdapter) Scan(dest ...any) error { return r.row.Scan(dest...) }
func (r *sqlRowAdapter) Err() error             { return r.row.Err() }

type sqlTxAdapter struct{ tx *sql.Tx }

func (t *sqlTxAdapter) Exec(query string, args ...any) (Result, error) {
	return t.tx.Exec(query, args...)
}

func (t *sqlTxAdapter) Query(query string, args ...any) (Rows, error) {
	rows, err := t.tx.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRowsAdapter{rows}, nil
}

func (t *sqlTxAdapter) QueryRow(query string, args ...any) Row {
	return &sqlRowAdapter{t.tx.QueryRow(query, args...)}
}

func (t *sqlTxAdapter) Prepare(query string) (Stmt, error) {
	stmt, err := t.tx.Prepare(query)
	if err != nil {
		return nil, err
	}
	return &sqlStmtAdapter{stmt}, nil
}

func (t *sqlTxAdapter) Commit() error   { return t.tx.Commit() }
func (t *sqlTxAdapter) Rollback() error { return t.tx.Rollback() }

type sqlStmtAdapter struct{ stmt *sql.Stmt }

func (s *sqlStmtAdapter) Exec(args ...any) (Result, error) {
	return s.stmt.Exec(args...)
}

func (s *sqlStmtAdapter) Query(args ...any) (Rows, error) {
	rows, err := s.stmt.Query(args...)
	if err != nil {
		return nil, err
	}
	return &sqlRowsAdapter{rows}, nil
}

func (s *sqlStmtAdapter) QueryRow(args ...any) Row {
	return &sqlRowAdapter{s.stmt.QueryRow(args...)}
}

func (s *sqlStmtAdapter) Close() error { return s.stmt.Close() }
