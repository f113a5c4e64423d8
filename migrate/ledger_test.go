package migrate

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tectonic-db/tectonic/dialect"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// One in-memory database per test; the pool must not open a second
	// connection and see a different empty database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLedgerEnsureIsIdempotent(t *testing.T) {
	db := testDB(t)
	ledger := NewLedger(db, dialect.NewSQLite())
	ctx := context.Background()

	require.NoError(t, ledger.Ensure(ctx))
	require.NoError(t, ledger.Ensure(ctx))
}

func TestLedgerInsertAndQuery(t *testing.T) {
	db := testDB(t)
	ledger := NewLedger(db, dialect.NewSQLite())
	ctx := context.Background()
	require.NoError(t, ledger.Ensure(ctx))

	recorded, err := ledger.Insert(ctx, db, "app", "0001_initial", "abc123", 42*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, recorded)

	applied, err := ledger.IsApplied(ctx, "app", "0001_initial")
	require.NoError(t, err)
	assert.True(t, applied)

	records, err := ledger.Applied(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "0001_initial", records[0].Name)
	assert.Equal(t, "abc123", records[0].Fingerprint)
	assert.Equal(t, int64(42), records[0].ExecutionTimeMs)
	assert.False(t, records[0].AppliedAt.IsZero())
}

func TestLedgerDuplicateInsertMeansAlreadyApplied(t *testing.T) {
	db := testDB(t)
	ledger := NewLedger(db, dialect.NewSQLite())
	ctx := context.Background()
	require.NoError(t, ledger.Ensure(ctx))

	recorded, err := ledger.Insert(ctx, db, "app", "0001_initial", "abc", 0)
	require.NoError(t, err)
	assert.True(t, recorded)

	// The loser of a concurrent race sees the uniqueness violation as a
	// clean "already applied", not a failure.
	recorded, err = ledger.Insert(ctx, db, "app", "0001_initial", "abc", 0)
	require.NoError(t, err)
	assert.False(t, recorded)

	records, err := ledger.Applied(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestLedgerRemove(t *testing.T) {
	db := testDB(t)
	ledger := NewLedger(db, dialect.NewSQLite())
	ctx := context.Background()
	require.NoError(t, ledger.Ensure(ctx))

	_, err := ledger.Insert(ctx, db, "app", "0001_initial", "abc", 0)
	require.NoError(t, err)
	require.NoError(t, ledger.Remove(ctx, db, "app", "0001_initial"))

	applied, err := ledger.IsApplied(ctx, "app", "0001_initial")
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestLedgerKeepsApplicationOrder(t *testing.T) {
	db := testDB(t)
	ledger := NewLedger(db, dialect.NewSQLite())
	ctx := context.Background()
	require.NoError(t, ledger.Ensure(ctx))

	for _, name := range []string{"0001_a", "0002_b", "0003_c"} {
		_, err := ledger.Insert(ctx, db, "app", name, "fp", 0)
		require.NoError(t, err)
	}
	records, err := ledger.Applied(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "0001_a", records[0].Name)
	assert.Equal(t, "0003_c", records[2].Name)
}
