package dialect

import (
	"fmt"
	"strings"

	"github.com/tectonic-db/tectonic/schema"
)

// MySQL compiles DDL for MySQL and MariaDB. DDL statements implicitly
// commit, so a migration interrupted mid-way can be left half-applied;
// the engine surfaces that instead of hiding it.
type MySQL struct{}

// NewMySQL returns the MySQL compiler.
func NewMySQL() *MySQL { return &MySQL{} }

func (m *MySQL) Name() string       { return "mysql" }
func (m *MySQL) DriverName() string { return "mysql" }

func (m *MySQL) Capabilities() Capabilities {
	return Capabilities{
		SupportsAlterColumn:   true,
		SupportsDropColumn:    true,
		SupportsAddConstraint: true,
		SupportsEnum:          false, // column-level ENUM only, no named types
		TransactionalDDL:      false,
	}
}

func (m *MySQL) MapType(genericType string) string {
	base := schema.BaseType(genericType)
	switch base {
	case "INTEGER", "INT":
		return "INT"
	case "BIGINT":
		return "BIGINT"
	case "SMALLINT":
		return "SMALLINT"
	case "TIMESTAMP", "TIMESTAMPTZ", "DATETIME":
		return "DATETIME"
	case "BOOLEAN", "BOOL":
		return "TINYINT(1)"
	case "REAL", "FLOAT":
		return "FLOAT"
	case "DOUBLE", "DOUBLE PRECISION":
		return "DOUBLE"
	case "TEXT", "CLOB":
		return "TEXT"
	case "VARCHAR", "CHARACTER VARYING":
		if param, ok := schema.TypeParam(genericType); ok {
			return "VARCHAR(" + param + ")"
		}
		return "VARCHAR(255)"
	case "NUMERIC", "DECIMAL":
		if param, ok := schema.TypeParam(genericType); ok {
			return "DECIMAL(" + param + ")"
		}
		return "DECIMAL(10,0)"
	case "BLOB", "BYTEA", "VARBINARY":
		return "BLOB"
	case "UUID":
		return "CHAR(36)"
	case "JSON", "JSONB":
		return "JSON"
	default:
		return genericType
	}
}

func (m *MySQL) ShouldAutoIncrement(genericType string) bool {
	switch schema.BaseType(genericType) {
	case "INTEGER", "INT", "BIGINT", "SMALLINT", "SERIAL", "BIGSERIAL":
		return true
	}
	return false
}

func (m *MySQL) AutoIncrementClause(genericType string) (string, bool) {
	if !m.ShouldAutoIncrement(genericType) {
		return "", false
	}
	return "AUTO_INCREMENT", true
}

func (m *MySQL) ResolveAutoIncrementType(genericType string) string {
	return m.MapType(genericType)
}

func (m *MySQL) FormatDefault(def *schema.DefaultValue) (string, bool) {
	if def == nil {
		return "", false
	}
	switch def.Kind {
	case schema.DefaultLiteral:
		return formatLiteral(def.Literal), true
	case schema.DefaultNow:
		return "CURRENT_TIMESTAMP", true
	case schema.DefaultUUID:
		return "(UUID())", true
	}
	return "", false
}

func (m *MySQL) ColumnSQL(col schema.ColumnState) string {
	var b strings.Builder
	b.WriteString(m.QuoteIdent(col.Name))
	b.WriteByte(' ')
	b.WriteString(m.MapType(col.Type))
	if col.PrimaryKey {
		b.WriteString(" NOT NULL")
		if col.AutoIncrement {
			if clause, ok := m.AutoIncrementClause(col.Type); ok {
				b.WriteByte(' ')
				b.WriteString(clause)
			}
		}
		b.WriteString(" PRIMARY KEY")
		return b.String()
	}
	if !col.Nullable {
		b.WriteString(" NOT NULL")
	}
	if col.Unique {
		b.WriteString(" UNIQUE")
	}
	if sql, ok := m.FormatDefault(col.Default); ok {
		b.WriteString(" DEFAULT ")
		b.WriteString(sql)
	}
	return b.String()
}

func (m *MySQL) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (m *MySQL) LedgerTableDDL(name string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INT AUTO_INCREMENT PRIMARY KEY,
	app VARCHAR(255) NOT NULL,
	name VARCHAR(255) NOT NULL,
	fingerprint VARCHAR(64) NOT NULL,
	execution_time_ms INT,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE KEY uniq_app_name (app, name)
)`, m.QuoteIdent(name))
}

func (m *MySQL) ListTablesSQL() string {
	return `SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE' ORDER BY table_name`
}

func (m *MySQL) ForeignKeyReferrersSQL(table string) (string, bool) {
	return fmt.Sprintf(`SELECT COUNT(*)
FROM information_schema.key_column_usage
WHERE referenced_table_name = '%s'
  AND table_schema = DATABASE()
  AND table_name <> '%s'`, table, table), true
}

func (m *MySQL) Placeholder(n int) string { return "?" }
