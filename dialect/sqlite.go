package dialect

import (
	"fmt"
	"strings"

	"github.com/tectonic-db/tectonic/schema"
)

// SQLite compiles DDL for SQLite. SQLite has no native ALTER COLUMN and no
// enum types; the engine falls back to column-recreate and CHECK-free TEXT
// columns for those.
type SQLite struct{}

// NewSQLite returns the SQLite compiler.
func NewSQLite() *SQLite { return &SQLite{} }

func (s *SQLite) Name() string       { return "sqlite" }
func (s *SQLite) DriverName() string { return "sqlite3" }

func (s *SQLite) Capabilities() Capabilities {
	return Capabilities{
		SupportsAlterColumn:   false,
		SupportsDropColumn:    true, // 3.35+
		SupportsAddConstraint: false,
		SupportsEnum:          false,
		TransactionalDDL:      true,
	}
}

func (s *SQLite) MapType(genericType string) string {
	switch schema.BaseType(genericType) {
	case "BOOLEAN", "BOOL":
		return "BOOLEAN"
	// SQLite gives every integer spelling INTEGER affinity, so the family
	// is kept in the declared type and survives a later introspection.
	case "INTEGER", "INT", "INT4", "MEDIUMINT", "SERIAL":
		return "INTEGER"
	case "BIGINT", "INT8", "BIGSERIAL":
		return "BIGINT"
	case "SMALLINT", "INT2", "SMALLSERIAL":
		return "SMALLINT"
	case "VARCHAR", "CHARACTER VARYING", "TEXT", "CHAR", "UUID", "JSON", "JSONB":
		return "TEXT"
	case "TIMESTAMP", "TIMESTAMPTZ", "DATETIME":
		return "DATETIME"
	case "DATE":
		return "DATE"
	case "TIME":
		return "TIME"
	case "REAL", "FLOAT", "DOUBLE", "DOUBLE PRECISION":
		return "REAL"
	case "NUMERIC", "DECIMAL":
		return "NUMERIC"
	case "BLOB", "BYTEA", "VARBINARY":
		return "BLOB"
	default:
		return genericType
	}
}

func (s *SQLite) ShouldAutoIncrement(genericType string) bool {
	switch s.MapType(genericType) {
	case "INTEGER", "BIGINT", "SMALLINT":
		return true
	}
	return false
}

func (s *SQLite) AutoIncrementClause(genericType string) (string, bool) {
	if !s.ShouldAutoIncrement(genericType) {
		return "", false
	}
	return "AUTOINCREMENT", true
}

// ResolveAutoIncrementType returns the column type used for an
// auto-incrementing primary key. Only the literal INTEGER PRIMARY KEY is a
// rowid alias, so every integer family collapses to INTEGER here.
func (s *SQLite) ResolveAutoIncrementType(genericType string) string {
	if s.ShouldAutoIncrement(genericType) {
		return "INTEGER"
	}
	return s.MapType(genericType)
}

func (s *SQLite) FormatDefault(def *schema.DefaultValue) (string, bool) {
	if def == nil {
		return "", false
	}
	switch def.Kind {
	case schema.DefaultLiteral:
		return formatLiteral(def.Literal), true
	case schema.DefaultNow:
		return "CURRENT_TIMESTAMP", true
	case schema.DefaultUUID:
		// No built-in UUID function; left to the application layer.
		return "", false
	}
	return "", false
}

func (s *SQLite) ColumnSQL(col schema.ColumnState) string {
	var b strings.Builder
	b.WriteString(s.QuoteIdent(col.Name))
	b.WriteByte(' ')
	if col.PrimaryKey && col.AutoIncrement {
		b.WriteString(s.ResolveAutoIncrementType(col.Type))
	} else {
		b.WriteString(s.MapType(col.Type))
	}
	if col.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
		if col.AutoIncrement {
			if clause, ok := s.AutoIncrementClause(col.Type); ok {
				b.WriteByte(' ')
				b.WriteString(clause)
			}
		}
		return b.String()
	}
	if !col.Nullable {
		b.WriteString(" NOT NULL")
	}
	if col.Unique {
		b.WriteString(" UNIQUE")
	}
	if sql, ok := s.FormatDefault(col.Default); ok {
		b.WriteString(" DEFAULT ")
		b.WriteString(sql)
	}
	return b.String()
}

func (s *SQLite) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (s *SQLite) LedgerTableDDL(name string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	app TEXT NOT NULL,
	name TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	execution_time_ms INTEGER,
	applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (app, name)
)`, s.QuoteIdent(name))
}

func (s *SQLite) ListTablesSQL() string {
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
}

func (s *SQLite) ForeignKeyReferrersSQL(table string) (string, bool) {
	// PRAGMA foreign_key_list is per-table; there is no single query over
	// all referrers. The analyzer walks tables instead.
	return "", false
}

func (s *SQLite) Placeholder(n int) string { return "?" }
