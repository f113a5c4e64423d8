package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tectonic-db/tectonic/dialect"
	"github.com/tectonic-db/tectonic/operation"
	"github.com/tectonic-db/tectonic/schema/introspect"
)

// Record is one ledger row. Its presence IS the "applied" fact; there is
// no separate status column.
type Record struct {
	ID              int64
	App             string
	Name            string
	Fingerprint     string
	ExecutionTimeMs int64
	AppliedAt       time.Time
}

// Ledger is the applied-migration table. The UNIQUE(app, name) constraint
// is what makes concurrent applies safe: the loser of a race sees a
// uniqueness violation and treats it as "already applied".
type Ledger struct {
	db    *sql.DB
	d     dialect.Dialect
	table string
}

// NewLedger returns a ledger over the standard table name.
func NewLedger(db *sql.DB, d dialect.Dialect) *Ledger {
	return &Ledger{db: db, d: d, table: introspect.LedgerTable}
}

// Ensure creates the ledger table when missing.
func (l *Ledger) Ensure(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, l.d.LedgerTableDDL(l.table)); err != nil {
		return fmt.Errorf("failed to create ledger table %s: %w", l.table, err)
	}
	return nil
}

// Applied returns every ledger row in application order.
func (l *Ledger) Applied(ctx context.Context) ([]Record, error) {
	query := fmt.Sprintf(
		"SELECT id, app, name, fingerprint, execution_time_ms, applied_at FROM %s ORDER BY id",
		l.d.QuoteIdent(l.table))
	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.App, &r.Name, &r.Fingerprint, &r.ExecutionTimeMs, &r.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// IsApplied reports whether a migration has a ledger row.
func (l *Ledger) IsApplied(ctx context.Context, app, name string) (bool, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE app = %s AND name = %s",
		l.d.QuoteIdent(l.table), l.d.Placeholder(1), l.d.Placeholder(2))
	var n int
	if err := l.db.QueryRowContext(ctx, query, app, name).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to query ledger: %w", err)
	}
	return n > 0, nil
}

// Insert records a migration as applied. The statement runs on ex so it can
// share the migration's transaction. Returns false when another engine
// already recorded the row.
func (l *Ledger) Insert(ctx context.Context, ex operation.Execer, app, name, fingerprint string, took time.Duration) (bool, error) {
	query := fmt.Sprintf(
		"INSERT INTO %s (app, name, fingerprint, execution_time_ms, applied_at) VALUES (%s, %s, %s, %s, %s)",
		l.d.QuoteIdent(l.table),
		l.d.Placeholder(1), l.d.Placeholder(2), l.d.Placeholder(3), l.d.Placeholder(4), l.d.Placeholder(5))
	_, err := ex.ExecContext(ctx, query, app, name, fingerprint, took.Milliseconds(), time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to record migration %s: %w", name, err)
	}
	return true, nil
}

// Remove deletes a migration's ledger row after a successful rollback.
func (l *Ledger) Remove(ctx context.Context, ex operation.Execer, app, name string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE app = %s AND name = %s",
		l.d.QuoteIdent(l.table), l.d.Placeholder(1), l.d.Placeholder(2))
	if _, err := ex.ExecContext(ctx, query, app, name); err != nil {
		return fmt.Errorf("failed to remove ledger row for %s: %w", name, err)
	}
	return nil
}

// isUniqueViolation matches unique-constraint errors across the three
// supported drivers by message.
func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite, postgres
		strings.Contains(msg, "unique violation") ||
		strings.Contains(msg, "duplicate entry") || // mysql
		strings.Contains(msg, "duplicate key")
}
