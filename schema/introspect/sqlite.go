package introspect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tectonic-db/tectonic/schema"
)

type sqliteIntrospector struct {
	db *sql.DB
}

func (i *sqliteIntrospector) Introspect(ctx context.Context) (schema.SchemaState, error) {
	state := schema.NewState()

	rows, err := i.db.QueryContext(ctx, `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY name
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

func (i *sqliteIntrospector) introspectTable(ctx context.Context, name string) (schema.TableState, error) {
	table := schema.TableState{Name: name, Columns: map[string]schema.ColumnState{}}

	cols, err := i.introspectColumns(ctx, name)
	if err != nil {
		return schema.TableState{}, err
	}
	for _, col := range cols {
		table.Columns[col.Name] = col
	}

	indexes, uniqueCols, err := i.introspectIndexes(ctx, name)
	if err != nil {
		return schema.TableState{}, err
	}
	table.Indexes = indexes
	for _, colName := range uniqueCols {
		if col, ok := table.Columns[colName]; ok {
			col.Unique = true
			table.Columns[colName] = col
		}
	}

	fks, err := i.introspectForeignKeys(ctx, name)
	if err != nil {
		return schema.TableState{}, err
	}
	table.ForeignKeys = fks

	markColumnIndexes(&table)
	return table, nil
}

func (i *sqliteIntrospector) introspectColumns(ctx context.Context, table string) ([]schema.ColumnState, error) {
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var columns []schema.ColumnState
	for rows.Next() {
		var cid, notNull, isPk int
		var name, colType string
		var dflt sql.NullString

		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &isPk); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}

		col := schema.ColumnState{
			Name:       name,
			Type:       colType,
			Nullable:   notNull == 0 && isPk == 0,
			PrimaryKey: isPk == 1,
		}
		// INTEGER PRIMARY KEY is a rowid alias and auto-increments.
		if isPk == 1 && strings.EqualFold(schema.BaseType(colType), "INTEGER") {
			col.AutoIncrement = true
		}
		if dflt.Valid && dflt.String != "" {
			col.Default = parseDefault(dflt.String)
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

// introspectIndexes returns the explicitly created indexes plus the columns
// backed by single-column UNIQUE constraint autoindexes, so inline UNIQUE
// survives extraction without showing up as a named index.
func (i *sqliteIntrospector) introspectIndexes(ctx context.Context, table string) ([]schema.IndexState, []string, error) {
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%q)", table))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query indexes: %w", err)
	}
	defer rows.Close()

	type indexRow struct {
		name   string
		origin string
		unique bool
	}
	var listed []indexRow
	for rows.Next() {
		var seq, unique, partial int
		var name, origin string
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, nil, fmt.Errorf("failed to scan index: %w", err)
		}
		// "c" = explicitly created, "u" = UNIQUE constraint autoindex,
		// "pk" = primary key autoindex (already on the column).
		if origin != "c" && origin != "u" {
			continue
		}
		listed = append(listed, indexRow{name: name, origin: origin, unique: unique == 1})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var indexes []schema.IndexState
	var uniqueCols []string
	for _, ir := range listed {
		columns, err := i.indexColumns(ctx, ir.name)
		if err != nil {
			return nil, nil, err
		}
		if ir.origin == "u" {
			if len(columns) == 1 {
				uniqueCols = append(uniqueCols, columns[0])
			}
			continue
		}
		indexes = append(indexes, schema.IndexState{Name: ir.name, Columns: columns, Unique: ir.unique})
	}
	return indexes, uniqueCols, nil
}

func (i *sqliteIntrospector) indexColumns(ctx context.Context, index string) ([]string, error) {
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%q)", index))
	if err != nil {
		return nil, fmt.Errorf("failed to query index columns: %w", err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var seqno, cid int
		var colName sql.NullString
		if err := rows.Scan(&seqno, &cid, &colName); err != nil {
			return nil, fmt.Errorf("failed to scan index column: %w", err)
		}
		if colName.Valid {
			columns = append(columns, colName.String)
		}
	}
	return columns, rows.Err()
}

func (i *sqliteIntrospector) introspectForeignKeys(ctx context.Context, table string) ([]schema.ForeignKeyState, error) {
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%q)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer rows.Close()

	var fks []schema.ForeignKeyState
	for rows.Next() {
		var id, seq int
		var refTable, from, onUpdate, onDelete, match string
		var to sql.NullString
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		refColumn := "id"
		if to.Valid {
			refColumn = to.String
		}
		fks = append(fks, schema.ForeignKeyState{
			Column:           from,
			ReferencedTable:  refTable,
			ReferencedColumn: refColumn,
			OnDelete:         normalizeAction(onDelete),
		})
	}
	return fks, rows.Err()
}
