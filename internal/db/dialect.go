package db

import "fmt"

// DatabaseType identifies which backend a dialect targets.
type DatabaseType string

const (
	DatabaseSQLite     DatabaseType = "sqlite"
	DatabasePostgres   DatabaseType = "postgres"
	DatabaseClickHouse DatabaseType = "clickhouse"
)

// ColType is a portable column type understood by every Dialect.
type ColType int

const (
	ColTypeText ColType = iota
	ColTypeInteger
	ColTypeReal
	ColTypeBoolean
	ColTypeBlob
	ColTypeVector
	ColTypeAutoIncrement
)

// ColumnDef describes one column in a dialect-neutral way; each Dialect
// renders it into its own CREATE TABLE syntax.
type ColumnDef struct {
	Name            string
	Type            ColType
	Nullable        bool
	PrimaryKey      bool
	Default         string
	VectorDimension int // only meaningful when Type == ColTypeVector
}

// Dialect renders portable schema/query fragments into backend-specific SQL.
type Dialect interface {
	// Name identifies the dialect ("sqlite", "postgres", "clickhouse").
	Name() string

	// Placeholder returns the parameter placeholder for the nth (1-indexed) argument.
	Placeholder(n int) string

	// CreateTableSQL renders a CREATE TABLE IF NOT EXISTS statement.
	CreateTableSQL(table string, columns []ColumnDef) string

	// CreateIndexSQL renders a CREATE [UNIQUE] INDEX IF NOT EXISTS statement.
	CreateIndexSQL(table, indexName string, columns []string, unique bool) string

	// UpsertSQL renders an insert-or-update statement using dialect-native
	// conflict resolution (ON CONFLICT / ON DUPLICATE KEY).
	UpsertSQL(table string, columns []string, conflictColumns []string, updateColumns []string) string

	// InitStatements returns statements to run once per connection
	// (PRAGMAs, session settings).
	InitStatements() []string
}

// GetDialect returns the Dialect implementation for a database type.
func GetDialect(t DatabaseType) Dialect {
	switch t {
	case DatabasePostgres:
		return &PostgresDialect{}
	case DatabaseClickHouse:
		return &ClickHouseDialect{}
	default:
		return &SQLiteDialect{}
	}
}

func columnTypeSQL(dialect string, col ColumnDef) string {
	switch col.Type {
	case ColTypeAutoIncrement:
		switch dialect {
		case "postgres":
			return "BIGSERIAL PRIMARY KEY"
		case "clickhouse":
			return "UInt64"
		default:
			return "INTEGER PRIMARY KEY AUTOINCREMENT"
		}
	case ColTypeInteger:
		if dialect == "clickhouse" {
			return "Int64"
		}
		return "INTEGER"
	case ColTypeReal:
		if dialect == "clickhouse" {
			return "Float64"
		}
		return "REAL"
	case ColTypeBoolean:
		switch dialect {
		case "postgres":
			return "BOOLEAN"
		case "clickhouse":
			return "UInt8"
		default:
			return "INTEGER"
		}
	case ColTypeBlob:
		if dialect == "postgres" {
			return "BYTEA"
		}
		if dialect == "clickhouse" {
			return "String"
		}
		return "BLOB"
	case ColTypeVector:
		if dialect == "postgres" {
			return fmt.Sprintf("vector(%d)", col.VectorDimension)
		}
		if dialect == "clickhouse" {
			return fmt.Sprintf("Array(Float32)")
		}
		return "TEXT"
	default: // ColTypeText
		if dialect == "clickhouse" {
			return "String"
		}
		return "TEXT"
	}
}

func renderColumns(dialectName string, columns []ColumnDef) string {
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		def := fmt.Sprintf("%s %s", col.Name, columnTypeSQL(dialectName, col))
		if col.Type != ColTypeAutoIncrement {
			if col.PrimaryKey {
				def += " PRIMARY KEY"
			}
			if !col.Nullable && dialectName != "clickhouse" {
				def += " NOT NULL"
			}
			if col.Default != "" {
				def += " DEFAULT " + col.Default
			}
		}
		parts = append(parts, def)
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// SQLiteDialect targets modernc.org/sqlite and mattn/go-sqlite3.
type SQLiteDialect struct{}

func (SQLiteDialect) Name() string { return "sqlite" }

func (SQLiteDialect) Placeholder(int) string { return "?" }

func (d SQLiteDialect) CreateTableSQL(table string, columns []ColumnDef) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, renderColumns(d.Name(), columns))
}

func (SQLiteDialect) CreateIndexSQL(table, indexName string, columns []string, unique bool) string {
	uniq := ""
	if unique {
		uniq = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)", uniq, indexName, table, joinStrings(columns, ", "))
}

func (SQLiteDialect) UpsertSQL(table string, columns []string, conflictColumns []string, updateColumns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = "?"
	}
	if len(updateColumns) == 0 {
		return fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
			table, joinStrings(columns, ", "), joinStrings(placeholders, ", "))
	}
	sets := make([]string, len(updateColumns))
	for i, c := range updateColumns {
		sets[i] = fmt.Sprintf("%s = excluded.%s", c, c)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		table, joinStrings(columns, ", "), joinStrings(placeholders, ", "),
		joinStrings(conflictColumns, ", "), joinStrings(sets, ", "))
}

func (SQLiteDialect) InitStatements() []string {
	return []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
}

// PostgresDialect targets lib/pq with pgvector installed.
type PostgresDialect struct{}

func (PostgresDialect) Name() string { return "postgres" }

func (PostgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (d PostgresDialect) CreateTableSQL(table string, columns []ColumnDef) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, renderColumns(d.Name(), columns))
}

func (PostgresDialect) CreateIndexSQL(table, indexName string, columns []string, unique bool) string {
	uniq := ""
	if unique {
		uniq = "UNIQUE "
	}
	return fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)", uniq, indexName, table, joinStrings(columns, ", "))
}

func (PostgresDialect) UpsertSQL(table string, columns []string, conflictColumns []string, updateColumns []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	if len(updateColumns) == 0 {
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
			table, joinStrings(columns, ", "), joinStrings(placeholders, ", "))
	}
	sets := make([]string, len(updateColumns))
	for i, c := range updateColumns {
		sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", c, c)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		table, joinStrings(columns, ", "), joinStrings(placeholders, ", "),
		joinStrings(conflictColumns, ", "), joinStrings(sets, ", "))
}

func (PostgresDialect) InitStatements() []string {
	return []string{"CREATE EXTENSION IF NOT EXISTS vector"}
}

// ClickHouseDialect targets a ClickHouse backend for bulk fragment storage.
type ClickHouseDialect struct{}

func (ClickHouseDialect) Name() string { return "clickhouse" }

func (ClickHouseDialect) Placeholder(int) string { return "?" }

func (d ClickHouseDialect) CreateTableSQL(table string, columns []ColumnDef) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s) ENGINE = MergeTree() ORDER BY tuple()",
		table, renderColumns(d.Name(), columns))
}

func (ClickHouseDialect) CreateIndexSQL(table, indexName string, columns []string, unique bool) string {
	// ClickHouse indexes are declared at table-create time; this is a no-op
	// data-skipping index for the common case.
	return fmt.Sprintf("ALTER TABLE %s ADD INDEX IF NOT EXISTS %s (%s) TYPE minmax GRANULARITY 4",
		table, indexName, joinStrings(columns, ", "))
}

func (ClickHouseDialect) UpsertSQL(table string, columns []string, _ []string, _ []string) string {
	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = "?"
	}
	// ClickHouse has no native upsert; callers rely on ReplacingMergeTree
	// semantics and a periodic OPTIMIZE ... FINAL.
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, joinStrings(columns, ", "), joinStrings(placeholders, ", "))
}

func (ClickHouseDialect) InitStatements() []string {
	return nil
}

func joinStrings(items []string, sep string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += sep
		}
		out += s
	}
	return out
}
