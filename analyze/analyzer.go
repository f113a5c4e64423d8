package analyze

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tectonic-db/tectonic/dialect"
	"github.com/tectonic-db/tectonic/operation"
	"github.com/tectonic-db/tectonic/schema"
)

// Analyzer walks a migration's operation list against the live database.
type Analyzer struct {
	db *sql.DB
	d  dialect.Dialect
}

// New returns an analyzer bound to a connection and dialect.
func New(db *sql.DB, d dialect.Dialect) *Analyzer {
	return &Analyzer{db: db, d: d}
}

// Analyze checks every operation of one migration. Operations are matched
// by variant; each variant has its own rule set.
func (a *Analyzer) Analyze(ctx context.Context, migration string, ops []operation.Operation) (*Result, error) {
	result := &Result{Migration: migration, RowCounts: map[string]int64{}}

	// Tables created earlier in this same migration cannot have rows yet;
	// probes against them are skipped.
	createdHere := map[string]bool{}

	for idx, op := range ops {
		var err error
		switch o := op.(type) {
		case *operation.CreateTable:
			createdHere[o.Table.Name] = true
		case *operation.AddColumn:
			err = a.checkAddColumn(ctx, result, idx, o, createdHere)
		case *operation.DropColumn:
			err = a.checkDropColumn(ctx, result, idx, o, createdHere)
		case *operation.AlterColumn:
			err = a.checkAlterColumn(ctx, result, idx, o, createdHere)
		case *operation.CreateIndex:
			err = a.checkCreateIndex(ctx, result, idx, o, createdHere)
		case *operation.DropTable:
			err = a.checkDropTable(ctx, result, idx, o)
		case *operation.CreateEnum, *operation.DropEnum, *operation.AlterEnum:
			a.checkEnum(result, idx, op)
		case *operation.DropIndex, *operation.AddForeignKey, *operation.DropForeignKey:
			// No data probes; generic flags below still apply.
		}
		if err != nil {
			return nil, fmt.Errorf("analysis of %s failed: %w", op.Describe(), err)
		}

		a.checkGenericFlags(result, idx, op)
	}

	return result, nil
}

func (a *Analyzer) checkAddColumn(ctx context.Context, r *Result, idx int, op *operation.AddColumn, createdHere map[string]bool) error {
	if createdHere[op.Table] {
		return nil
	}
	rows, exists, err := a.rowCount(ctx, op.Table)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	r.RowCounts[op.Table] = rows

	col := op.Column
	if rows > 0 && !col.Nullable && col.Default == nil {
		r.Issues = append(r.Issues, Issue{
			Code:           CodeNotNullNoDefault,
			Severity:       Error,
			Message:        fmt.Sprintf("adding NOT NULL column %s.%s with no default to a table with %d rows", op.Table, col.Name, rows),
			OperationIndex: idx,
			Suggestion:     "add the column as nullable, backfill existing rows, then alter it to NOT NULL",
			AutoFix:        notNullAutoFix(op.Table, col),
			Context:        map[string]any{"table": op.Table, "column": col.Name, "row_count": rows},
		})
	}
	if rows > 0 && col.Unique {
		r.Issues = append(r.Issues, Issue{
			Code:           CodeUniqueOnPopulated,
			Severity:       Warning,
			Message:        fmt.Sprintf("adding UNIQUE column %s.%s to a table with %d rows; identical defaults will collide", op.Table, col.Name, rows),
			OperationIndex: idx,
			Suggestion:     "backfill distinct values before adding the unique constraint",
			Context:        map[string]any{"table": op.Table, "column": col.Name, "row_count": rows},
		})
	}
	if rows > largeTableThreshold {
		r.Issues = append(r.Issues, Issue{
			Code:           CodeLargeTable,
			Severity:       Info,
			Message:        fmt.Sprintf("table %s has %d rows; adding a column may be slow and may lock the table", op.Table, rows),
			OperationIndex: idx,
			Context:        map[string]any{"table": op.Table, "row_count": rows},
		})
	}
	return nil
}

func (a *Analyzer) checkDropColumn(ctx context.Context, r *Result, idx int, op *operation.DropColumn, createdHere map[string]bool) error {
	if createdHere[op.Table] {
		return nil
	}
	nonNull, exists, err := a.nonNullCount(ctx, op.Table, op.Column.Name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if nonNull > 0 {
		r.Issues = append(r.Issues, Issue{
			Code:           CodeDropColumnData,
			Severity:       Warning,
			Message:        fmt.Sprintf("dropping column %s.%s discards %d non-null values", op.Table, op.Column.Name, nonNull),
			OperationIndex: idx,
			Suggestion:     "back up the column or copy it elsewhere before dropping",
			Context:        map[string]any{"table": op.Table, "column": op.Column.Name, "non_null_count": nonNull},
		})
	}
	return nil
}

func (a *Analyzer) checkAlterColumn(ctx context.Context, r *Result, idx int, op *operation.AlterColumn, createdHere map[string]bool) error {
	if !a.d.Capabilities().SupportsAlterColumn {
		r.Issues = append(r.Issues, Issue{
			Code:           CodeDialectLimitation,
			Severity:       Warning,
			Message:        fmt.Sprintf("%s has no native ALTER COLUMN; %s.%s will be recreated via a scratch column", a.d.Name(), op.Table, op.Old.Name),
			OperationIndex: idx,
			Context:        map[string]any{"dialect": a.d.Name(), "table": op.Table, "column": op.Old.Name},
		})
	}
	if createdHere[op.Table] {
		return nil
	}

	// Narrowing VARCHAR: count values that would truncate.
	if oldLen, newLen, narrowing := varcharNarrowing(op.Old.Type, op.New.Type); narrowing {
		over, exists, err := a.overLengthCount(ctx, op.Table, op.Old.Name, newLen)
		if err != nil {
			return err
		}
		if exists && over > 0 {
			r.Issues = append(r.Issues, Issue{
				Code:           CodeVarcharNarrowing,
				Severity:       Error,
				Message:        fmt.Sprintf("narrowing %s.%s from VARCHAR(%d) to VARCHAR(%d) would truncate %d rows", op.Table, op.Old.Name, oldLen, newLen, over),
				OperationIndex: idx,
				Suggestion:     fmt.Sprintf("trim or relocate values longer than %d characters first", newLen),
				Context:        map[string]any{"table": op.Table, "column": op.Old.Name, "over_length_count": over},
			})
		}
	} else if lossyTypeChange(op.Old.Type, op.New.Type) {
		r.Issues = append(r.Issues, Issue{
			Code:           CodeLossyTypeChange,
			Severity:       Warning,
			Message:        fmt.Sprintf("changing %s.%s from %s to %s may lose or mangle data", op.Table, op.Old.Name, op.Old.Type, op.New.Type),
			OperationIndex: idx,
			Suggestion:     "verify every existing value converts cleanly before applying",
			Context:        map[string]any{"table": op.Table, "column": op.Old.Name, "from": op.Old.Type, "to": op.New.Type},
		})
	}

	// Tightening to NOT NULL: count existing NULLs.
	if op.Old.Nullable && !op.New.Nullable {
		nulls, exists, err := a.nullCount(ctx, op.Table, op.Old.Name)
		if err != nil {
			return err
		}
		if exists && nulls > 0 {
			r.Issues = append(r.Issues, Issue{
				Code:           CodeNotNullExistingNulls,
				Severity:       Error,
				Message:        fmt.Sprintf("column %s.%s has %d NULL values and cannot become NOT NULL", op.Table, op.Old.Name, nulls),
				OperationIndex: idx,
				Suggestion:     "backfill the NULL rows before tightening the constraint",
				AutoFix:        fmt.Sprintf("UPDATE %s SET %s = /* backfill value */ WHERE %s IS NULL;", op.Table, op.Old.Name, op.Old.Name),
				Context:        map[string]any{"table": op.Table, "column": op.Old.Name, "null_count": nulls},
			})
		}
	}

	// Tightening to UNIQUE: count duplicates.
	if !op.Old.Unique && op.New.Unique {
		dupes, exists, err := a.duplicateCount(ctx, op.Table, op.Old.Name)
		if err != nil {
			return err
		}
		if exists && dupes > 0 {
			r.Issues = append(r.Issues, Issue{
				Code:           CodeUniqueOnPopulated,
				Severity:       Error,
				Message:        fmt.Sprintf("column %s.%s has %d duplicated values and cannot become UNIQUE", op.Table, op.Old.Name, dupes),
				OperationIndex: idx,
				Suggestion:     "deduplicate the column before adding the unique constraint",
				Context:        map[string]any{"table": op.Table, "column": op.Old.Name, "duplicate_count": dupes},
			})
		}
	}

	return nil
}

func (a *Analyzer) checkCreateIndex(ctx context.Context, r *Result, idx int, op *operation.CreateIndex, createdHere map[string]bool) error {
	if createdHere[op.Table] {
		return nil
	}
	rows, exists, err := a.rowCount(ctx, op.Table)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	r.RowCounts[op.Table] = rows

	if rows > largeTableThreshold {
		r.Issues = append(r.Issues, Issue{
			Code:           CodeLargeTable,
			Severity:       Warning,
			Message:        fmt.Sprintf("building index %s on %s scans %d rows and may lock writes", op.Index.Name, op.Table, rows),
			OperationIndex: idx,
			Suggestion:     "consider building the index during a maintenance window",
			Context:        map[string]any{"table": op.Table, "index": op.Index.Name, "row_count": rows},
		})
	}
	if op.Index.Unique && rows > 0 && len(op.Index.Columns) == 1 {
		dupes, ok, err := a.duplicateCount(ctx, op.Table, op.Index.Columns[0])
		if err != nil {
			return err
		}
		if ok && dupes > 0 {
			r.Issues = append(r.Issues, Issue{
				Code:           CodeUniqueOnPopulated,
				Severity:       Error,
				Message:        fmt.Sprintf("unique index %s on %s.%s conflicts with %d duplicated values", op.Index.Name, op.Table, op.Index.Columns[0], dupes),
				OperationIndex: idx,
				Suggestion:     "deduplicate the column before creating the unique index",
				Context:        map[string]any{"table": op.Table, "column": op.Index.Columns[0], "duplicate_count": dupes},
			})
		}
	}
	return nil
}

func (a *Analyzer) checkDropTable(ctx context.Context, r *Result, idx int, op *operation.DropTable) error {
	rows, exists, err := a.rowCount(ctx, op.Table.Name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	r.RowCounts[op.Table.Name] = rows

	if rows > 0 {
		r.Issues = append(r.Issues, Issue{
			Code:           CodeDropTableData,
			Severity:       Critical,
			Message:        fmt.Sprintf("dropping table %s discards %d rows", op.Table.Name, rows),
			OperationIndex: idx,
			Suggestion:     "dump the table before dropping it",
			Context:        map[string]any{"table": op.Table.Name, "row_count": rows},
		})
	}

	if query, ok := a.d.ForeignKeyReferrersSQL(op.Table.Name); ok {
		var referrers int64
		if err := a.db.QueryRowContext(ctx, query).Scan(&referrers); err != nil {
			return fmt.Errorf("failed to count foreign key referrers of %s: %w", op.Table.Name, err)
		}
		if referrers > 0 {
			r.Issues = append(r.Issues, Issue{
				Code:           CodeDropTableReferenced,
				Severity:       Error,
				Message:        fmt.Sprintf("table %s is referenced by %d live foreign keys", op.Table.Name, referrers),
				OperationIndex: idx,
				Suggestion:     "drop or retarget the referencing foreign keys first",
				Context:        map[string]any{"table": op.Table.Name, "referrer_count": referrers},
			})
		}
	}
	return nil
}

// checkEnum flags enum operations on dialects without named enum types,
// where they compile to nothing and enum-typed columns degrade to text.
func (a *Analyzer) checkEnum(r *Result, idx int, op operation.Operation) {
	if a.d.Capabilities().SupportsEnum {
		return
	}
	r.Issues = append(r.Issues, Issue{
		Code:           CodeDialectLimitation,
		Severity:       Info,
		Message:        fmt.Sprintf("%s has no enum types; %s is a no-op and enum columns degrade to text", a.d.Name(), op.Describe()),
		OperationIndex: idx,
		Context:        map[string]any{"dialect": a.d.Name()},
	})
}

// checkGenericFlags adds the catch-all destructive and irreversible
// warnings. DropColumn and DropTable are excluded from the destructive
// warning: their data-aware rules above already grade the actual risk, and
// a drop that touches no data should not warn at all.
func (a *Analyzer) checkGenericFlags(r *Result, idx int, op operation.Operation) {
	switch op.(type) {
	case *operation.DropColumn, *operation.DropTable:
	default:
		if op.Destructive() {
			r.Issues = append(r.Issues, Issue{
				Code:           CodeDestructiveOperation,
				Severity:       Warning,
				Message:        fmt.Sprintf("operation may discard data: %s", op.Describe()),
				OperationIndex: idx,
			})
		}
	}
	if !op.Reversible() {
		r.Issues = append(r.Issues, Issue{
			Code:           CodeIrreversibleOperation,
			Severity:       Warning,
			Message:        fmt.Sprintf("operation cannot be rolled back: %s", op.Describe()),
			OperationIndex: idx,
		})
	}
}

func notNullAutoFix(table string, col schema.ColumnState) string {
	return fmt.Sprintf(`-- 1. add the column as nullable
ALTER TABLE %[1]s ADD COLUMN %[2]s %[3]s;
-- 2. backfill existing rows
UPDATE %[1]s SET %[2]s = /* backfill value */;
-- 3. tighten to NOT NULL
ALTER TABLE %[1]s ALTER COLUMN %[2]s SET NOT NULL;`, table, col.Name, col.Type)
}
