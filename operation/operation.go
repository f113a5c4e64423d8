// Package operation defines the typed, reversible units of schema change a
// migration is made of. Each variant renders itself to dialect-correct SQL
// through a dialect.Dialect and knows its structural inverse. Reversibility
// covers schema shape only, never data: reverting a DropColumn restores the
// column, not its contents.
package operation

import (
	"fmt"

	"github.com/tectonic-db/tectonic/dialect"
	"github.com/tectonic-db/tectonic/schema"
)

// Kind tags the operation variants.
type Kind string

const (
	KindCreateTable    Kind = "create_table"
	KindDropTable      Kind = "drop_table"
	KindAddColumn      Kind = "add_column"
	KindDropColumn     Kind = "drop_column"
	KindAlterColumn    Kind = "alter_column"
	KindCreateIndex    Kind = "create_index"
	KindDropIndex      Kind = "drop_index"
	KindAddForeignKey  Kind = "add_foreign_key"
	KindDropForeignKey Kind = "drop_foreign_key"
	KindCreateEnum     Kind = "create_enum"
	KindDropEnum       Kind = "drop_enum"
	KindAlterEnum      Kind = "alter_enum"
)

// Operation is a single schema change. Implementations are plain data:
// they carry exactly the delta needed to both apply and invert the change.
type Operation interface {
	Kind() Kind

	// Describe returns a single-line human description for analyzer output
	// and dry-run logs.
	Describe() string

	// Destructive reports whether applying the operation may discard data.
	Destructive() bool

	// Reversible reports whether BackwardSQL can restore the prior schema
	// shape.
	Reversible() bool

	// ForwardSQL renders the statements that apply the change.
	ForwardSQL(d dialect.Dialect) ([]string, error)

	// BackwardSQL renders the statements that invert the change.
	BackwardSQL(d dialect.Dialect) ([]string, error)
}

// CreateTable creates a table with all of its columns and inline foreign
// keys.
type CreateTable struct {
	Table schema.TableState `json:"table"`
}

func (o *CreateTable) Kind() Kind        { return KindCreateTable }
func (o *CreateTable) Destructive() bool { return false }
func (o *CreateTable) Reversible() bool  { return true }
func (o *CreateTable) Describe() string {
	return fmt.Sprintf("Create table %s (%d columns)", o.Table.Name, len(o.Table.Columns))
}

func (o *CreateTable) ForwardSQL(d dialect.Dialect) ([]string, error) {
	return createTableSQL(d, o.Table)
}

func (o *CreateTable) BackwardSQL(d dialect.Dialect) ([]string, error) {
	return []string{fmt.Sprintf("DROP TABLE %s", d.QuoteIdent(o.Table.Name))}, nil
}

// DropTable drops a table. The full prior table state is retained so the
// inverse can recreate the shape; when an artifact predating that carries
// only the name, the operation is irreversible.
type DropTable struct {
	Table schema.TableState `json:"table"`
}

func (o *DropTable) Kind() Kind        { return KindDropTable }
func (o *DropTable) Destructive() bool { return true }
func (o *DropTable) Reversible() bool  { return len(o.Table.Columns) > 0 }
func (o *DropTable) Describe() string {
	return fmt.Sprintf("Drop table %s", o.Table.Name)
}

func (o *DropTable) ForwardSQL(d dialect.Dialect) ([]string, error) {
	return []string{fmt.Sprintf("DROP TABLE %s", d.QuoteIdent(o.Table.Name))}, nil
}

func (o *DropTable) BackwardSQL(d dialect.Dialect) ([]string, error) {
	if !o.Reversible() {
		return nil, fmt.Errorf("drop of table %s recorded without column state, cannot recreate", o.Table.Name)
	}
	return createTableSQL(d, o.Table)
}

// AddColumn adds one column to an existing table.
type AddColumn struct {
	Table  string             `json:"table"`
	Column schema.ColumnState `json:"column"`
}

func (o *AddColumn) Kind() Kind        { return KindAddColumn }
func (o *AddColumn) Destructive() bool { return false }
func (o *AddColumn) Reversible() bool  { return true }
func (o *AddColumn) Describe() string {
	return fmt.Sprintf("Add column %s.%s (%s)", o.Table, o.Column.Name, o.Column.Type)
}

func (o *AddColumn) ForwardSQL(d dialect.Dialect) ([]string, error) {
	col := o.Column
	var stmts []string
	// SQLite rejects ADD COLUMN ... UNIQUE; the constraint becomes a
	// separate unique index there. Dropping the column drops the index,
	// so the inverse needs no extra statement.
	if col.Unique && !d.Capabilities().SupportsAddConstraint {
		col.Unique = false
		idx := schema.IndexState{
			Name:    fmt.Sprintf("idx_%s_%s", o.Table, col.Name),
			Columns: []string{col.Name},
			Unique:  true,
		}
		stmts = append(stmts, createIndexSQL(d, o.Table, idx))
	}
	return append([]string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s",
		d.QuoteIdent(o.Table), d.ColumnSQL(col))}, stmts...), nil
}

func (o *AddColumn) BackwardSQL(d dialect.Dialect) ([]string, error) {
	return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
		d.QuoteIdent(o.Table), d.QuoteIdent(o.Column.Name))}, nil
}

// DropColumn removes a column. Destructive: the data is gone. The prior
// column state is retained so the inverse restores the schema shape.
type DropColumn struct {
	Table  string             `json:"table"`
	Column schema.ColumnState `json:"column"`
}

func (o *DropColumn) Kind() Kind        { return KindDropColumn }
func (o *DropColumn) Destructive() bool { return true }
func (o *DropColumn) Reversible() bool  { return o.Column.Type != "" }
func (o *DropColumn) Describe() string {
	return fmt.Sprintf("Drop column %s.%s", o.Table, o.Column.Name)
}

func (o *DropColumn) ForwardSQL(d dialect.Dialect) ([]string, error) {
	if !d.Capabilities().SupportsDropColumn {
		return nil, fmt.Errorf("dialect %s cannot drop columns", d.Name())
	}
	return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s",
		d.QuoteIdent(o.Table), d.QuoteIdent(o.Column.Name))}, nil
}

func (o *DropColumn) BackwardSQL(d dialect.Dialect) ([]string, error) {
	if !o.Reversible() {
		return nil, fmt.Errorf("drop of column %s.%s recorded without type, cannot restore", o.Table, o.Column.Name)
	}
	return []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s",
		d.QuoteIdent(o.Table), d.ColumnSQL(o.Column))}, nil
}

// AlterColumn changes a column's type, nullability or default. Both the old
// and new state are stored so the operation can invert itself.
type AlterColumn struct {
	Table string             `json:"table"`
	Old   schema.ColumnState `json:"old"`
	New   schema.ColumnState `json:"new"`
}

func (o *AlterColumn) Kind() Kind { return KindAlterColumn }

// Destructive when the type changes: a narrowing or lossy conversion may
// truncate values.
func (o *AlterColumn) Destructive() bool {
	return !schema.TypesEquivalent(o.Old.Type, o.New.Type)
}
func (o *AlterColumn) Reversible() bool { return true }
func (o *AlterColumn) Describe() string {
	return fmt.Sprintf("Alter column %s.%s (%s -> %s, nullable %t -> %t)",
		o.Table, o.Old.Name, o.Old.Type, o.New.Type, o.Old.Nullable, o.New.Nullable)
}

func (o *AlterColumn) ForwardSQL(d dialect.Dialect) ([]string, error) {
	return alterColumnSQL(d, o.Table, o.Old, o.New)
}

func (o *AlterColumn) BackwardSQL(d dialect.Dialect) ([]string, error) {
	return alterColumnSQL(d, o.Table, o.New, o.Old)
}

// CreateIndex creates a secondary index.
type CreateIndex struct {
	Table string            `json:"table"`
	Index schema.IndexState `json:"index"`
}

func (o *CreateIndex) Kind() Kind        { return KindCreateIndex }
func (o *CreateIndex) Destructive() bool { return false }
func (o *CreateIndex) Reversible() bool  { return true }
func (o *CreateIndex) Describe() string {
	return fmt.Sprintf("Create index %s on %s", o.Index.Name, o.Table)
}

func (o *CreateIndex) ForwardSQL(d dialect.Dialect) ([]string, error) {
	return []string{createIndexSQL(d, o.Table, o.Index)}, nil
}

func (o *CreateIndex) BackwardSQL(d dialect.Dialect) ([]string, error) {
	return []string{dropIndexSQL(d, o.Table, o.Index.Name)}, nil
}

// DropIndex removes an index. The prior index state is retained for the
// inverse.
type DropIndex struct {
	Table string            `json:"table"`
	Index schema.IndexState `json:"index"`
}

func (o *DropIndex) Kind() Kind        { return KindDropIndex }
func (o *DropIndex) Destructive() bool { return false }
func (o *DropIndex) Reversible() bool  { return len(o.Index.Columns) > 0 }
func (o *DropIndex) Describe() string {
	return fmt.Sprintf("Drop index %s on %s", o.Index.Name, o.Table)
}

func (o *DropIndex) ForwardSQL(d dialect.Dialect) ([]string, error) {
	return []string{dropIndexSQL(d, o.Table, o.Index.Name)}, nil
}

func (o *DropIndex) BackwardSQL(d dialect.Dialect) ([]string, error) {
	if !o.Reversible() {
		return nil, fmt.Errorf("drop of index %s recorded without columns, cannot recreate", o.Index.Name)
	}
	return []string{createIndexSQL(d, o.Table, o.Index)}, nil
}

// AddForeignKey adds a foreign key constraint to an existing table.
type AddForeignKey struct {
	Table      string                 `json:"table"`
	ForeignKey schema.ForeignKeyState `json:"foreign_key"`
}

func (o *AddForeignKey) Kind() Kind        { return KindAddForeignKey }
func (o *AddForeignKey) Destructive() bool { return false }
func (o *AddForeignKey) Reversible() bool  { return true }
func (o *AddForeignKey) Describe() string {
	return fmt.Sprintf("Add foreign key %s.%s -> %s.%s",
		o.Table, o.ForeignKey.Column, o.ForeignKey.ReferencedTable, o.ForeignKey.ReferencedColumn)
}

func (o *AddForeignKey) ForwardSQL(d dialect.Dialect) ([]string, error) {
	if !d.Capabilities().SupportsAddConstraint {
		return nil, fmt.Errorf("dialect %s cannot add constraints to existing tables", d.Name())
	}
	fk := o.ForeignKey
	sql := fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
		d.QuoteIdent(o.Table), d.QuoteIdent(constraintName(o.Table, fk)),
		d.QuoteIdent(fk.Column), d.QuoteIdent(fk.ReferencedTable), d.QuoteIdent(fk.ReferencedColumn))
	if fk.OnDelete != "" {
		sql += " ON DELETE " + fk.OnDelete
	}
	return []string{sql}, nil
}

func (o *AddForeignKey) BackwardSQL(d dialect.Dialect) ([]string, error) {
	return dropConstraintSQL(d, o.Table, constraintName(o.Table, o.ForeignKey))
}

// DropForeignKey removes a foreign key constraint.
type DropForeignKey struct {
	Table      string                 `json:"table"`
	ForeignKey schema.ForeignKeyState `json:"foreign_key"`
}

func (o *DropForeignKey) Kind() Kind        { return KindDropForeignKey }
func (o *DropForeignKey) Destructive() bool { return false }
func (o *DropForeignKey) Reversible() bool  { return true }
func (o *DropForeignKey) Describe() string {
	return fmt.Sprintf("Drop foreign key %s.%s -> %s",
		o.Table, o.ForeignKey.Column, o.ForeignKey.ReferencedTable)
}

func (o *DropForeignKey) ForwardSQL(d dialect.Dialect) ([]string, error) {
	return dropConstraintSQL(d, o.Table, constraintName(o.Table, o.ForeignKey))
}

func (o *DropForeignKey) BackwardSQL(d dialect.Dialect) ([]string, error) {
	add := AddForeignKey{Table: o.Table, ForeignKey: o.ForeignKey}
	return add.ForwardSQL(d)
}

// CreateEnum creates a named enum type. On dialects without named enum
// types the operation compiles to nothing and enum-typed columns degrade
// to text.
type CreateEnum struct {
	Enum schema.EnumState `json:"enum"`
}

func (o *CreateEnum) Kind() Kind        { return KindCreateEnum }
func (o *CreateEnum) Destructive() bool { return false }
func (o *CreateEnum) Reversible() bool  { return true }
func (o *CreateEnum) Describe() string {
	return fmt.Sprintf("Create enum %s (%d values)", o.Enum.Name, len(o.Enum.Values))
}

func (o *CreateEnum) ForwardSQL(d dialect.Dialect) ([]string, error) {
	if !d.Capabilities().SupportsEnum {
		return nil, nil
	}
	return []string{createEnumSQL(d, o.Enum)}, nil
}

func (o *CreateEnum) BackwardSQL(d dialect.Dialect) ([]string, error) {
	if !d.Capabilities().SupportsEnum {
		return nil, nil
	}
	return []string{fmt.Sprintf("DROP TYPE %s", d.QuoteIdent(o.Enum.Name))}, nil
}

// DropEnum removes a named enum type, retaining its values for the inverse.
type DropEnum struct {
	Enum schema.EnumState `json:"enum"`
}

func (o *DropEnum) Kind() Kind        { return KindDropEnum }
func (o *DropEnum) Destructive() bool { return true }
func (o *DropEnum) Reversible() bool  { return len(o.Enum.Values) > 0 }
func (o *DropEnum) Describe() string {
	return fmt.Sprintf("Drop enum %s", o.Enum.Name)
}

func (o *DropEnum) ForwardSQL(d dialect.Dialect) ([]string, error) {
	if !d.Capabilities().SupportsEnum {
		return nil, nil
	}
	return []string{fmt.Sprintf("DROP TYPE %s", d.QuoteIdent(o.Enum.Name))}, nil
}

func (o *DropEnum) BackwardSQL(d dialect.Dialect) ([]string, error) {
	if !d.Capabilities().SupportsEnum {
		return nil, nil
	}
	if !o.Reversible() {
		return nil, fmt.Errorf("drop of enum %s recorded without values, cannot recreate", o.Enum.Name)
	}
	return []string{createEnumSQL(d, o.Enum)}, nil
}

// AlterEnum adds or removes enum values. PostgreSQL can only append values,
// so an alteration that added values cannot be inverted and one that
// removed values cannot be applied; both are surfaced as explicit errors
// rather than partial DDL.
type AlterEnum struct {
	Name    string           `json:"name"`
	Old     schema.EnumState `json:"old"`
	New     schema.EnumState `json:"new"`
	Added   []string         `json:"added,omitempty"`
	Removed []string         `json:"removed,omitempty"`
}

func (o *AlterEnum) Kind() Kind        { return KindAlterEnum }
func (o *AlterEnum) Destructive() bool { return len(o.Removed) > 0 }
func (o *AlterEnum) Reversible() bool  { return len(o.Added) == 0 }
func (o *AlterEnum) Describe() string {
	return fmt.Sprintf("Alter enum %s (+%d/-%d values)", o.Name, len(o.Added), len(o.Removed))
}

func (o *AlterEnum) ForwardSQL(d dialect.Dialect) ([]string, error) {
	if !d.Capabilities().SupportsEnum {
		return nil, nil
	}
	if len(o.Removed) > 0 {
		return nil, fmt.Errorf("dialect %s cannot remove values from enum %s", d.Name(), o.Name)
	}
	var stmts []string
	for _, v := range o.Added {
		stmts = append(stmts, fmt.Sprintf("ALTER TYPE %s ADD VALUE '%s'", d.QuoteIdent(o.Name), v))
	}
	return stmts, nil
}

func (o *AlterEnum) BackwardSQL(d dialect.Dialect) ([]string, error) {
	if !d.Capabilities().SupportsEnum {
		return nil, nil
	}
	if !o.Reversible() {
		return nil, fmt.Errorf("enum %s gained values, removal is not supported", o.Name)
	}
	var stmts []string
	for _, v := range o.Removed {
		stmts = append(stmts, fmt.Sprintf("ALTER TYPE %s ADD VALUE '%s'", d.QuoteIdent(o.Name), v))
	}
	return stmts, nil
}
