package operation

import (
	"fmt"
	"strings"

	"github.com/tectonic-db/tectonic/dialect"
	"github.com/tectonic-db/tectonic/schema"
)

func createTableSQL(d dialect.Dialect, t schema.TableState) ([]string, error) {
	var defs []string
	for _, name := range t.ColumnNames() {
		defs = append(defs, d.ColumnSQL(t.Columns[name]))
	}
	for _, fk := range t.ForeignKeys {
		def := fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			d.QuoteIdent(fk.Column), d.QuoteIdent(fk.ReferencedTable), d.QuoteIdent(fk.ReferencedColumn))
		if fk.OnDelete != "" {
			def += " ON DELETE " + fk.OnDelete
		}
		defs = append(defs, def)
	}
	stmts := []string{fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)",
		d.QuoteIdent(t.Name), strings.Join(defs, ",\n\t"))}
	for _, idx := range t.Indexes {
		stmts = append(stmts, createIndexSQL(d, t.Name, idx))
	}
	return stmts, nil
}

func createIndexSQL(d dialect.Dialect, table string, idx schema.IndexState) string {
	unique := ""
	if idx.Unique {
		unique = "UNIQUE "
	}
	cols := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		cols[i] = d.QuoteIdent(c)
	}
	return fmt.Sprintf("CREATE %sINDEX %s ON %s (%s)",
		unique, d.QuoteIdent(idx.Name), d.QuoteIdent(table), strings.Join(cols, ", "))
}

func dropIndexSQL(d dialect.Dialect, table, name string) string {
	if d.Name() == "mysql" {
		return fmt.Sprintf("DROP INDEX %s ON %s", d.QuoteIdent(name), d.QuoteIdent(table))
	}
	return fmt.Sprintf("DROP INDEX %s", d.QuoteIdent(name))
}

func dropConstraintSQL(d dialect.Dialect, table, name string) ([]string, error) {
	switch d.Name() {
	case "mysql":
		return []string{fmt.Sprintf("ALTER TABLE %s DROP FOREIGN KEY %s",
			d.QuoteIdent(table), d.QuoteIdent(name))}, nil
	case "postgres":
		return []string{fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s",
			d.QuoteIdent(table), d.QuoteIdent(name))}, nil
	default:
		return nil, fmt.Errorf("dialect %s cannot drop constraints", d.Name())
	}
}

func constraintName(table string, fk schema.ForeignKeyState) string {
	return fmt.Sprintf("fk_%s_%s", table, fk.Column)
}

// alterColumnSQL renders the statements moving a column from one state to
// another. SQLite has no ALTER COLUMN: the change is expressed as an
// add-copy-drop-rename of a scratch column instead.
func alterColumnSQL(d dialect.Dialect, table string, from, to schema.ColumnState) ([]string, error) {
	if !d.Capabilities().SupportsAlterColumn {
		return sqliteRecreateColumnSQL(d, table, from, to)
	}

	var stmts []string
	tbl := d.QuoteIdent(table)
	col := d.QuoteIdent(to.Name)

	if !schema.TypesEquivalent(from.Type, to.Type) {
		switch d.Name() {
		case "postgres":
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s",
				tbl, col, d.MapType(to.Type), col, d.MapType(to.Type)))
		case "mysql":
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", tbl, d.ColumnSQL(to)))
			// MODIFY COLUMN re-states nullability and default, nothing
			// more to do.
			return stmts, nil
		}
	}

	if from.Nullable != to.Nullable {
		switch d.Name() {
		case "postgres":
			if to.Nullable {
				stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL", tbl, col))
			} else {
				stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", tbl, col))
			}
		case "mysql":
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", tbl, d.ColumnSQL(to)))
			return stmts, nil
		}
	}

	if !from.Default.Equal(to.Default) {
		switch d.Name() {
		case "postgres":
			if sql, ok := d.FormatDefault(to.Default); ok {
				stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", tbl, col, sql))
			} else {
				stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", tbl, col))
			}
		case "mysql":
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", tbl, d.ColumnSQL(to)))
		}
	}

	return stmts, nil
}

func sqliteRecreateColumnSQL(d dialect.Dialect, table string, from, to schema.ColumnState) ([]string, error) {
	if !to.Nullable && to.Default == nil {
		return nil, fmt.Errorf("dialect %s cannot alter %s.%s to NOT NULL without a default",
			d.Name(), table, to.Name)
	}
	tmp := to
	tmp.Name = "__tectonic_tmp_" + to.Name
	tmp.PrimaryKey = false
	tmp.Unique = false

	tbl := d.QuoteIdent(table)
	return []string{
		fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", tbl, d.ColumnSQL(tmp)),
		fmt.Sprintf("UPDATE %s SET %s = %s", tbl, d.QuoteIdent(tmp.Name), d.QuoteIdent(from.Name)),
		fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", tbl, d.QuoteIdent(from.Name)),
		fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", tbl, d.QuoteIdent(tmp.Name), d.QuoteIdent(to.Name)),
	}, nil
}

func createEnumSQL(d dialect.Dialect, e schema.EnumState) string {
	vals := make([]string, len(e.Values))
	for i, v := range e.Values {
		vals[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return fmt.Sprintf("CREATE TYPE %s AS ENUM (%s)", d.QuoteIdent(e.Name), strings.Join(vals, ", "))
}
