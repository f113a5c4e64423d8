package dialect

import (
	"fmt"
	"strings"

	"github.com/tectonic-db/tectonic/schema"
)

// Postgres compiles DDL for PostgreSQL. Auto-increment is encoded as the
// SERIAL pseudo-types rather than a column keyword.
type Postgres struct{}

// NewPostgres returns the PostgreSQL compiler.
func NewPostgres() *Postgres { return &Postgres{} }

func (p *Postgres) Name() string       { return "postgres" }
func (p *Postgres) DriverName() string { return "postgres" }

func (p *Postgres) Capabilities() Capabilities {
	return Capabilities{
		SupportsAlterColumn:   true,
		SupportsDropColumn:    true,
		SupportsAddConstraint: true,
		SupportsEnum:          true,
		TransactionalDDL:      true,
	}
}

func (p *Postgres) MapType(genericType string) string {
	base := schema.BaseType(genericType)
	switch base {
	case "INTEGER", "INT":
		return "INTEGER"
	case "BIGINT":
		return "BIGINT"
	case "SMALLINT":
		return "SMALLINT"
	case "DATETIME", "TIMESTAMP":
		return "TIMESTAMP"
	case "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE":
		return "TIMESTAMP WITH TIME ZONE"
	case "BOOLEAN", "BOOL":
		return "BOOLEAN"
	case "REAL", "FLOAT":
		return "REAL"
	case "DOUBLE", "DOUBLE PRECISION":
		return "DOUBLE PRECISION"
	case "BLOB", "BYTEA", "VARBINARY":
		return "BYTEA"
	case "TEXT", "CLOB":
		return "TEXT"
	case "VARCHAR", "CHARACTER VARYING":
		if param, ok := schema.TypeParam(genericType); ok {
			return "VARCHAR(" + param + ")"
		}
		return "TEXT"
	case "NUMERIC", "DECIMAL":
		if param, ok := schema.TypeParam(genericType); ok {
			return "NUMERIC(" + param + ")"
		}
		return "NUMERIC"
	case "JSON":
		return "JSONB"
	default:
		return genericType
	}
}

func (p *Postgres) ShouldAutoIncrement(genericType string) bool {
	switch schema.BaseType(genericType) {
	case "INTEGER", "INT", "BIGINT", "SMALLINT", "SERIAL", "BIGSERIAL", "SMALLSERIAL":
		return true
	}
	return false
}

func (p *Postgres) AutoIncrementClause(genericType string) (string, bool) {
	// Auto-increment lives in the type (SERIAL), not a keyword.
	return "", false
}

func (p *Postgres) ResolveAutoIncrementType(genericType string) string {
	switch schema.BaseType(genericType) {
	case "BIGINT", "INT8", "BIGSERIAL":
		return "BIGSERIAL"
	case "SMALLINT", "INT2", "SMALLSERIAL":
		return "SMALLSERIAL"
	default:
		return "SERIAL"
	}
}

func (p *Postgres) FormatDefault(def *schema.DefaultValue) (string, bool) {
	if def == nil {
		return "", false
	}
	switch def.Kind {
	case schema.DefaultLiteral:
		return formatLiteral(def.Literal), true
	case schema.DefaultNow:
		return "CURRENT_TIMESTAMP", true
	case schema.DefaultUUID:
		return "gen_random_uuid()", true
	}
	return "", false
}

func (p *Postgres) ColumnSQL(col schema.ColumnState) string {
	var b strings.Builder
	b.WriteString(p.QuoteIdent(col.Name))
	b.WriteByte(' ')
	if col.AutoIncrement && p.ShouldAutoIncrement(col.Type) {
		b.WriteString(p.ResolveAutoIncrementType(col.Type))
	} else {
		b.WriteString(p.MapType(col.Type))
	}
	if col.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
		return b.String()
	}
	if !col.Nullable {
		b.WriteString(" NOT NULL")
	}
	if col.Unique {
		b.WriteString(" UNIQUE")
	}
	if sql, ok := p.FormatDefault(col.Default); ok {
		b.WriteString(" DEFAULT ")
		b.WriteString(sql)
	}
	return b.String()
}

func (p *Postgres) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (p *Postgres) LedgerTableDDL(name string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id SERIAL PRIMARY KEY,
	app VARCHAR(255) NOT NULL,
	name VARCHAR(255) NOT NULL,
	fingerprint VARCHAR(64) NOT NULL,
	execution_time_ms INTEGER,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (app, name)
)`, p.QuoteIdent(name))
}

func (p *Postgres) ListTablesSQL() string {
	return `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE' ORDER BY table_name`
}

func (p *Postgres) ForeignKeyReferrersSQL(table string) (string, bool) {
	return fmt.Sprintf(`SELECT COUNT(*)
FROM information_schema.table_constraints tc
JOIN information_schema.constraint_column_usage ccu
	ON tc.constraint_name = ccu.constraint_name
	AND tc.table_schema = ccu.table_schema
WHERE tc.constraint_type = 'FOREIGN KEY'
  AND ccu.table_name = '%s'
  AND tc.table_name <> '%s'`, table, table), true
}

func (p *Postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }
