package operation

import (
	"fmt"

	"github.com/tectonic-db/tectonic/schema"
)

// FromDiff turns a schema diff into an ordered operation list. The order is
// dependency-safe: enums before the tables that use them, created tables
// topologically sorted by foreign key reference, column additions before
// removals, and table drops last so no live foreign key is left dangling.
// Primary key columns are never auto-altered; a skipped alteration is
// reported as a warning.
func FromDiff(d schema.SchemaDiff) ([]Operation, []string) {
	var ops []Operation
	var warnings []string

	for _, e := range d.CreateEnums {
		ops = append(ops, &CreateEnum{Enum: e})
	}
	for _, e := range d.AlterEnums {
		ops = append(ops, &AlterEnum{Name: e.Name, Old: e.Old, New: e.New, Added: e.Added, Removed: e.Removed})
	}

	sorted, cycleWarnings := sortTablesByDependency(d.CreateTables)
	warnings = append(warnings, cycleWarnings...)
	for _, t := range sorted {
		ops = append(ops, &CreateTable{Table: t})
	}

	for _, td := range d.TableDiffs {
		for _, col := range td.AddColumns {
			ops = append(ops, &AddColumn{Table: td.Table, Column: col})
		}
	}
	for _, td := range d.TableDiffs {
		for _, idx := range td.DropIndexes {
			ops = append(ops, &DropIndex{Table: td.Table, Index: idx})
		}
		for _, col := range td.DropColumns {
			ops = append(ops, &DropColumn{Table: td.Table, Column: col})
		}
	}
	for _, td := range d.TableDiffs {
		for _, alt := range td.AlterColumns {
			if alt.Old.PrimaryKey || alt.New.PrimaryKey {
				warnings = append(warnings, fmt.Sprintf(
					"column %s.%s is a primary key and was not auto-altered; write a manual migration",
					td.Table, alt.Name))
				continue
			}
			ops = append(ops, &AlterColumn{Table: td.Table, Old: alt.Old, New: alt.New})
		}
		for _, idx := range td.CreateIndexes {
			ops = append(ops, &CreateIndex{Table: td.Table, Index: idx})
		}
	}

	// Drops run in reverse dependency order: a referencing child goes
	// before the parent it points at, or the parent drop trips the child's
	// foreign key constraint.
	dropOrder, dropWarnings := sortTablesByDependency(d.DropTables)
	warnings = append(warnings, dropWarnings...)
	for i := len(dropOrder) - 1; i >= 0; i-- {
		ops = append(ops, &DropTable{Table: dropOrder[i]})
	}
	for _, e := range d.DropEnums {
		ops = append(ops, &DropEnum{Enum: e})
	}

	return ops, warnings
}
