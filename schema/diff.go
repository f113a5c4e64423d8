package schema

import "fmt"

// FieldChange records one attribute-level change inside a column alteration.
type FieldChange struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// ColumnAlteration carries the old and new column state plus the computed
// field-level diff between them.
type ColumnAlteration struct {
	Name    string        `json:"name"`
	Old     ColumnState   `json:"old"`
	New     ColumnState   `json:"new"`
	Changes []FieldChange `json:"changes"`
}

// TableDiff groups per-table column and index changes.
type TableDiff struct {
	Table         string             `json:"table"`
	AddColumns    []ColumnState      `json:"add_columns,omitempty"`
	DropColumns   []ColumnState      `json:"drop_columns,omitempty"`
	AlterColumns  []ColumnAlteration `json:"alter_columns,omitempty"`
	CreateIndexes []IndexState       `json:"create_indexes,omitempty"`
	DropIndexes   []IndexState       `json:"drop_indexes,omitempty"`
}

// Empty reports whether the table diff carries no changes.
func (t TableDiff) Empty() bool {
	return len(t.AddColumns) == 0 && len(t.DropColumns) == 0 &&
		len(t.AlterColumns) == 0 && len(t.CreateIndexes) == 0 &&
		len(t.DropIndexes) == 0
}

// EnumDiff carries an enum alteration with added and removed value sets.
type EnumDiff struct {
	Name    string    `json:"name"`
	Old     EnumState `json:"old"`
	New     EnumState `json:"new"`
	Added   []string  `json:"added,omitempty"`
	Removed []string  `json:"removed,omitempty"`
}

// SchemaDiff is the structural difference between two schema states. The
// six buckets partition all detected changes: anything identical on both
// sides appears in none of them.
type SchemaDiff struct {
	CreateTables []TableState `json:"create_tables,omitempty"`
	DropTables   []TableState `json:"drop_tables,omitempty"`
	TableDiffs   []TableDiff  `json:"table_diffs,omitempty"`
	CreateEnums  []EnumState  `json:"create_enums,omitempty"`
	DropEnums    []EnumState  `json:"drop_enums,omitempty"`
	AlterEnums   []EnumDiff   `json:"alter_enums,omitempty"`
}

// Empty reports whether the diff carries no changes in any bucket.
func (d SchemaDiff) Empty() bool {
	return len(d.CreateTables) == 0 && len(d.DropTables) == 0 &&
		len(d.TableDiffs) == 0 && len(d.CreateEnums) == 0 &&
		len(d.DropEnums) == 0 && len(d.AlterEnums) == 0
}

// Summary returns a one-line change count for logs.
func (d SchemaDiff) Summary() string {
	cols := 0
	for _, t := range d.TableDiffs {
		cols += len(t.AddColumns) + len(t.DropColumns) + len(t.AlterColumns)
	}
	return fmt.Sprintf("%d tables to create, %d to drop, %d column changes, %d enum changes",
		len(d.CreateTables), len(d.DropTables), cols,
		len(d.CreateEnums)+len(d.DropEnums)+len(d.AlterEnums))
}

// Diff computes the structural difference between two schema states. The
// result is deterministic: buckets are ordered by name regardless of map
// iteration order. Diffing old against new describes how to move a database
// at old to new; swapping the arguments yields the structural inverse.
func Diff(old, new SchemaState) SchemaDiff {
	var d SchemaDiff

	for _, name := range new.TableNames() {
		if _, exists := old.Tables[name]; !exists {
			d.CreateTables = append(d.CreateTables, new.Tables[name])
		}
	}
	for _, name := range old.TableNames() {
		if _, exists := new.Tables[name]; !exists {
			d.DropTables = append(d.DropTables, old.Tables[name])
		}
	}
	for _, name := range old.TableNames() {
		newTable, exists := new.Tables[name]
		if !exists {
			continue
		}
		td := diffTable(old.Tables[name], newTable)
		if !td.Empty() {
			d.TableDiffs = append(d.TableDiffs, td)
		}
	}

	for _, name := range new.EnumNames() {
		if _, exists := old.Enums[name]; !exists {
			d.CreateEnums = append(d.CreateEnums, new.Enums[name])
		}
	}
	for _, name := range old.EnumNames() {
		newEnum, exists := new.Enums[name]
		if !exists {
			d.DropEnums = append(d.DropEnums, old.Enums[name])
			continue
		}
		oldEnum := old.Enums[name]
		if !oldEnum.Equal(newEnum) {
			d.AlterEnums = append(d.AlterEnums, diffEnum(oldEnum, newEnum))
		}
	}

	return d
}

func diffTable(old, new TableState) TableDiff {
	td := TableDiff{Table: old.Name}

	for _, name := range new.ColumnNames() {
		if _, exists := old.Columns[name]; !exists {
			td.AddColumns = append(td.AddColumns, new.Columns[name])
		}
	}
	for _, name := range old.ColumnNames() {
		if _, exists := new.Columns[name]; !exists {
			td.DropColumns = append(td.DropColumns, old.Columns[name])
		}
	}
	for _, name := range old.ColumnNames() {
		newCol, exists := new.Columns[name]
		if !exists {
			continue
		}
		oldCol := old.Columns[name]
		if !oldCol.Equal(newCol) {
			td.AlterColumns = append(td.AlterColumns, ColumnAlteration{
				Name:    name,
				Old:     oldCol,
				New:     newCol,
				Changes: columnFieldChanges(oldCol, newCol),
			})
		}
	}

	oldIndexes := make(map[string]IndexState, len(old.Indexes))
	for _, idx := range old.Indexes {
		oldIndexes[idx.Name] = idx
	}
	newIndexes := make(map[string]IndexState, len(new.Indexes))
	for _, idx := range new.Indexes {
		newIndexes[idx.Name] = idx
	}
	for _, idx := range new.Indexes {
		prev, exists := oldIndexes[idx.Name]
		if !exists {
			td.CreateIndexes = append(td.CreateIndexes, idx)
		} else if !prev.Equal(idx) {
			// Index changed shape: drop and recreate under the same name.
			td.DropIndexes = append(td.DropIndexes, prev)
			td.CreateIndexes = append(td.CreateIndexes, idx)
		}
	}
	for _, idx := range old.Indexes {
		if _, exists := newIndexes[idx.Name]; !exists {
			if backsUniqueColumn(idx, new) {
				continue
			}
			td.DropIndexes = append(td.DropIndexes, idx)
		}
	}

	return td
}

// backsUniqueColumn reports whether idx is the index form of a single-column
// UNIQUE constraint the target state keeps as a column attribute. Dialects
// without inline ADD COLUMN ... UNIQUE implement the constraint as a unique
// index; that index is not drift.
func backsUniqueColumn(idx IndexState, new TableState) bool {
	if !idx.Unique || len(idx.Columns) != 1 {
		return false
	}
	col, ok := new.Columns[idx.Columns[0]]
	return ok && col.Unique
}

func columnFieldChanges(old, new ColumnState) []FieldChange {
	var changes []FieldChange
	if !TypesEquivalent(old.Type, new.Type) {
		changes = append(changes, FieldChange{Field: "type", From: old.Type, To: new.Type})
	}
	if old.Nullable != new.Nullable {
		changes = append(changes, FieldChange{Field: "nullable", From: fmt.Sprintf("%t", old.Nullable), To: fmt.Sprintf("%t", new.Nullable)})
	}
	if !old.Default.Equal(new.Default) {
		changes = append(changes, FieldChange{Field: "default", From: old.Default.String(), To: new.Default.String()})
	}
	if old.Unique != new.Unique {
		changes = append(changes, FieldChange{Field: "unique", From: fmt.Sprintf("%t", old.Unique), To: fmt.Sprintf("%t", new.Unique)})
	}
	if old.AutoIncrement != new.AutoIncrement {
		changes = append(changes, FieldChange{Field: "autoincrement", From: fmt.Sprintf("%t", old.AutoIncrement), To: fmt.Sprintf("%t", new.AutoIncrement)})
	}
	if old.PrimaryKey != new.PrimaryKey {
		changes = append(changes, FieldChange{Field: "primary_key", From: fmt.Sprintf("%t", old.PrimaryKey), To: fmt.Sprintf("%t", new.PrimaryKey)})
	}
	return changes
}

func diffEnum(old, new EnumState) EnumDiff {
	d := EnumDiff{Name: old.Name, Old: old, New: new}
	oldSet := make(map[string]bool, len(old.Values))
	for _, v := range old.Values {
		oldSet[v] = true
	}
	newSet := make(map[string]bool, len(new.Values))
	for _, v := range new.Values {
		newSet[v] = true
	}
	for _, v := range new.Values {
		if !oldSet[v] {
			d.Added = append(d.Added, v)
		}
	}
	for _, v := range old.Values {
		if !newSet[v] {
			d.Removed = append(d.Removed, v)
		}
	}
	return d
}
