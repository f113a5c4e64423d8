package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tectonic-db/tectonic/schema"
)

type mysqlIntrospector struct {
	db *sql.DB
}

func (i *mysqlIntrospector) Introspect(ctx context.Context) (schema.SchemaState, error) {
	state := schema.NewState()

	rows, err := i.db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`)
	if err != nil {
		return schema.SchemaState{}, fmt.Errorf("%w: %v", ErrIntrospectionFailed, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return schema.SchemaState{}, fmt.Errorf("failed to scan table name: %w", err)
		}
		if !skipTable(name) {
			names = append(names, name)
		}
	}
	if err := rows.Err(); err != nil {
		return schema.SchemaState{}, err
	}

	for _, name := range names {
		table, err := i.introspectTable(ctx, name)
		if err != nil {
			return schema.SchemaState{}, fmt.Errorf("failed to introspect table %s: %w", name, err)
		}
		state.Tables[name] = table
	}

	return state, nil
}

func (i *mysqlIntrospector) introspectTable(ctx context.Context, name string) (schema.TableState, error) {
	table := schema.TableState{Name: name, Columns: map[string]schema.ColumnState{}}

	cols, err := i.introspectColumns(ctx, name)
	if err != nil {
		return schema.TableState{}, err
	}
	for _, col := range cols {
		table.Columns[col.Name] = col
	}

	table.Indexes, err = i.introspectIndexes(ctx, name)
	if err != nil {
		return schema.TableState{}, err
	}
	table.ForeignKeys, err = i.introspectForeignKeys(ctx, name)
	if err != nil {
		return schema.TableState{}, err
	}

	markColumnIndexes(&table)
	return table, nil
}

func (i *mysqlIntrospector) introspectColumns(ctx context.Context, table string) ([]schema.ColumnState, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT
			column_name,
			column_type,
			is_nullable,
			column_default,
			column_key,
			extra
		FROM information_schema.columns
		WHERE table_schema = DATABASE()
		  AND table_name = ?
		ORDER BY ordinal_position
	`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []schema.ColumnState
	for rows.Next() {
		var name, columnType, isNullable, columnKey, extra string
		var dflt sql.NullString

		if err := rows.Scan(&name, &columnType, &isNullable, &dflt, &columnKey, &extra); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		col := schema.ColumnState{
			Name:          name,
			Type:          mapMySQLType(columnType),
			Nullable:      isNullable == "YES",
			PrimaryKey:    columnKey == "PRI",
			AutoIncrement: strings.Contains(extra, "auto_increment"),
		}
		if columnKey == "UNI" {
			col.Unique = true
		}
		if dflt.Valid {
			col.Default = parseDefault(dflt.String)
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (i *mysqlIntrospector) introspectIndexes(ctx context.Context, table string) ([]schema.IndexState, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT index_name, column_name, non_unique
		FROM information_schema.statistics
		WHERE table_schema = DATABASE()
		  AND table_name = ?
		  AND index_name <> 'PRIMARY'
		ORDER BY index_name, seq_in_index
	`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes: %w", err)
	}
	defer rows.Close()

	byName := map[string]*schema.IndexState{}
	var order []string
	for rows.Next() {
		var indexName, columnName string
		var nonUnique int
		if err := rows.Scan(&indexName, &columnName, &nonUnique); err != nil {
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}
		idx, ok := byName[indexName]
		if !ok {
			idx = &schema.IndexState{Name: indexName, Unique: nonUnique == 0}
			byName[indexName] = idx
			order = append(order, indexName)
		}
		idx.Columns = append(idx.Columns, columnName)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	indexes := make([]schema.IndexState, 0, len(order))
	for _, name := range order {
		indexes = append(indexes, *byName[name])
	}
	return indexes, nil
}

func (i *mysqlIntrospector) introspectForeignKeys(ctx context.Context, table string) ([]schema.ForeignKeyState, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT
			kcu.column_name,
			kcu.referenced_table_name,
			kcu.referenced_column_name,
			rc.delete_rule
		FROM information_schema.key_column_usage kcu
		JOIN information_schema.referential_constraints rc
			ON kcu.constraint_name = rc.constraint_name
			AND kcu.table_schema = rc.constraint_schema
		WHERE kcu.table_schema = DATABASE()
		  AND kcu.table_name = ?
		  AND kcu.referenced_table_name IS NOT NULL
	`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []schema.ForeignKeyState
	for rows.Next() {
		var fk schema.ForeignKeyState
		var deleteRule string
		if err := rows.Scan(&fk.Column, &fk.ReferencedTable, &fk.ReferencedColumn, &deleteRule); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		fk.OnDelete = normalizeAction(deleteRule)
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

// mapMySQLType folds column_type spellings back to dialect-neutral names.
func mapMySQLType(columnType string) string {
	t := strings.ToUpper(columnType)
	switch {
	case t == "TINYINT(1)":
		return "BOOLEAN"
	case strings.HasPrefix(t, "INT"):
		return "INTEGER"
	case strings.HasPrefix(t, "BIGINT"):
		return "BIGINT"
	case strings.HasPrefix(t, "SMALLINT"):
		return "SMALLINT"
	case strings.HasPrefix(t, "DATETIME"), strings.HasPrefix(t, "TIMESTAMP"):
		return "TIMESTAMP"
	case strings.HasPrefix(t, "DOUBLE"):
		return "DOUBLE PRECISION"
	case strings.HasPrefix(t, "FLOAT"):
		return "REAL"
	case strings.HasPrefix(t, "CHAR(36)"):
		return "UUID"
	default:
		return t
	}
}
