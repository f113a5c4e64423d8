package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tectonic-db/tectonic/schema"
)

type postgresIntrospector struct {
	db *sql.DB
}

func (i *postgresIntrospector) Introspect(ctx context.Context) (schema.SchemaState, error) {
	state := schema.NewState()

	names, err := i.listTables(ctx)
	if err != nil {
		return schema.SchemaState{}, err
	}
	for _, name := range names {
		table, err := i.introspectTable(ctx, name)
		if err != nil {
			return schema.SchemaState{}, fmt.Errorf("failed to introspect table %s: %w", name, err)
		}
		state.Tables[name] = table
	}

	enums, err := i.introspectEnums(ctx)
	if err != nil {
		return schema.SchemaState{}, err
	}
	for _, e := range enums {
		state.Enums[e.Name] = e
	}

	return state, nil
}

func (i *postgresIntrospector) listTables(ctx context.Context) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		  AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIntrospectionFailed, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		if !skipTable(name) {
			names = append(names, name)
		}
	}
	return names, rows.Err()
}

func (i *postgresIntrospector) introspectTable(ctx context.Context, name string) (schema.TableState, error) {
	table := schema.TableState{Name: name, Columns: map[string]schema.ColumnState{}}

	pkColumn, err := i.primaryKeyColumn(ctx, name)
	if err != nil {
		return schema.TableState{}, err
	}

	cols, err := i.introspectColumns(ctx, name, pkColumn)
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

func (i *postgresIntrospector) introspectColumns(ctx context.Context, table, pkColumn string) ([]schema.ColumnState, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT
			column_name,
			data_type,
			udt_name,
			is_nullable,
			column_default,
			character_maximum_length
		FROM information_schema.columns
		WHERE table_schema = 'public'
		  AND table_name = $1
		ORDER BY ordinal_position
	`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []schema.ColumnState
	for rows.Next() {
		var name, dataType, udtName, isNullable string
		var dflt sql.NullString
		var maxLength sql.NullInt64

		if err := rows.Scan(&name, &dataType, &udtName, &isNullable, &dflt, &maxLength); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		col := schema.ColumnState{
			Name:       name,
			Type:       mapPostgresType(dataType, udtName, maxLength),
			Nullable:   isNullable == "YES",
			PrimaryKey: name == pkColumn,
		}
		if dflt.Valid && dflt.String != "" {
			if strings.HasPrefix(dflt.String, "nextval(") {
				col.AutoIncrement = true
			} else {
				col.Default = parseDefault(dflt.String)
			}
		}
		if col.PrimaryKey {
			col.Nullable = false
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (i *postgresIntrospector) primaryKeyColumn(ctx context.Context, table string) (string, error) {
	var column string
	err := i.db.QueryRowContext(ctx, `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = 'public'
		  AND tc.table_name = $1
		ORDER BY kcu.ordinal_position
		LIMIT 1
	`, table).Scan(&column)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query primary key: %w", err)
	}
	return column, nil
}

func (i *postgresIntrospector) introspectIndexes(ctx context.Context, table string) ([]schema.IndexState, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT
			i.relname,
			array_to_string(array_agg(a.attname ORDER BY array_position(ix.indkey, a.attnum)), ','),
			ix.indisunique
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		JOIN pg_namespace n ON n.oid = t.relnamespace
		WHERE n.nspname = 'public'
		  AND t.relname = $1
		  AND NOT ix.indisprimary
		GROUP BY i.relname, ix.indisunique
		ORDER BY i.relname
	`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes: %w", err)
	}
	defer rows.Close()

	var indexes []schema.IndexState
	for rows.Next() {
		var idx schema.IndexState
		var columnCSV string
		if err := rows.Scan(&idx.Name, &columnCSV, &idx.Unique); err != nil {
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}
		idx.Columns = strings.Split(columnCSV, ",")
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

func (i *postgresIntrospector) introspectForeignKeys(ctx context.Context, table string) ([]schema.ForeignKeyState, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT
			kcu.column_name,
			ccu.table_name,
			ccu.column_name,
			rc.delete_rule
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name
			AND tc.table_schema = ccu.table_schema
		JOIN information_schema.referential_constraints rc
			ON tc.constraint_name = rc.constraint_name
			AND tc.table_schema = rc.constraint_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = 'public'
		  AND tc.table_name = $1
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

func (i *postgresIntrospector) introspectEnums(ctx context.Context) ([]schema.EnumState, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT t.typname, e.enumlabel
		FROM pg_type t
		JOIN pg_enum e ON t.oid = e.enumtypid
		JOIN pg_namespace n ON n.oid = t.typnamespace
		WHERE n.nspname = 'public'
		ORDER BY t.typname, e.enumsortorder
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query enums: %w", err)
	}
	defer rows.Close()

	byName := map[string]*schema.EnumState{}
	var order []string
	for rows.Next() {
		var name, label string
		if err := rows.Scan(&name, &label); err != nil {
			return nil, fmt.Errorf("failed to scan enum value: %w", err)
		}
		e, ok := byName[name]
		if !ok {
			e = &schema.EnumState{Name: name}
			byName[name] = e
			order = append(order, name)
		}
		e.Values = append(e.Values, label)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	enums := make([]schema.EnumState, 0, len(order))
	for _, name := range order {
		enums = append(enums, *byName[name])
	}
	return enums, nil
}

// mapPostgresType folds catalog type spellings back to dialect-neutral
// names.
func mapPostgresType(dataType, udtName string, maxLength sql.NullInt64) string {
	switch dataType {
	case "character varying":
		if maxLength.Valid {
			return fmt.Sprintf("VARCHAR(%d)", maxLength.Int64)
		}
		return "TEXT"
	case "timestamp without time zone":
		return "TIMESTAMP"
	case "timestamp with time zone":
		return "TIMESTAMP WITH TIME ZONE"
	case "double precision":
		return "DOUBLE PRECISION"
	case "USER-DEFINED":
		// Enum and other named types surface under their own name.
		return udtName
	case "ARRAY":
		return udtName
	default:
		return strings.ToUpper(dataType)
	}
}
