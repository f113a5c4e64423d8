package operation

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tectonic-db/tectonic/dialect"
	"github.com/tectonic-db/tectonic/internal/debug"
)

// Execer is the subset of database/sql shared by *sql.DB and *sql.Tx that
// operations execute against.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Apply renders and executes the forward statements of op, one round trip
// per statement, strictly in order.
func Apply(ctx context.Context, ex Execer, d dialect.Dialect, op Operation) error {
	stmts, err := op.ForwardSQL(d)
	if err != nil {
		return fmt.Errorf("failed to compile %s: %w", op.Describe(), err)
	}
	return execAll(ctx, ex, stmts)
}

// Revert renders and executes the backward statements of op. It fails fast
// when the operation declares itself irreversible.
func Revert(ctx context.Context, ex Execer, d dialect.Dialect, op Operation) error {
	if !op.Reversible() {
		return fmt.Errorf("operation is not reversible: %s", op.Describe())
	}
	stmts, err := op.BackwardSQL(d)
	if err != nil {
		return fmt.Errorf("failed to compile inverse of %s: %w", op.Describe(), err)
	}
	return execAll(ctx, ex, stmts)
}

func execAll(ctx context.Context, ex Execer, stmts []string) error {
	for _, stmt := range stmts {
		if stmt == "" {
			continue
		}
		debug.Debug("exec", "sql", stmt)
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %q failed: %w", stmt, err)
		}
	}
	return nil
}
