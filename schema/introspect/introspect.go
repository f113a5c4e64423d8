// Package introspect extracts a normalized SchemaState from a live
// database connection. One introspector per dialect; all of them skip the
// engine's own ledger table and the database's internal tables.
package introspect

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tectonic-db/tectonic/schema"
)

// LedgerTable is the applied-migration ledger's table name, excluded from
// extracted state so the engine never tries to migrate itself.
const LedgerTable = "tectonic_migrations"

// Introspector reads a database's current schema.
type Introspector interface {
	Introspect(ctx context.Context) (schema.SchemaState, error)
}

// New returns the introspector for the given dialect name.
func New(db *sql.DB, dialectName string) (Introspector, error) {
	switch dialectName {
	case "sqlite":
		return &sqliteIntrospector{db: db}, nil
	case "postgres":
		return &postgresIntrospector{db: db}, nil
	case "mysql":
		return &mysqlIntrospector{db: db}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, dialectName)
	}
}

// reservedTables are never part of extracted state.
var reservedTables = map[string]bool{
	LedgerTable: true,
}

func skipTable(name string) bool {
	return reservedTables[name]
}

// markColumnIndexes mirrors single-column index information onto the
// column states so model-declared and introspected state compare equal.
func markColumnIndexes(t *schema.TableState) {
	for _, idx := range t.Indexes {
		if len(idx.Columns) != 1 {
			continue
		}
		col, ok := t.Columns[idx.Columns[0]]
		if !ok {
			continue
		}
		col.Indexed = true
		if idx.Unique {
			col.Unique = true
		}
		t.Columns[idx.Columns[0]] = col
	}
}
