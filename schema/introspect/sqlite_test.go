package introspect

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tectonic-db/tectonic/schema"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// :memory: databases are per-connection; pin the pool to one.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteIntrospect(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	stmts := []string{
		`CREATE TABLE "users" (
			"id" INTEGER PRIMARY KEY AUTOINCREMENT,
			"email" TEXT NOT NULL,
			"bio" TEXT,
			"created_at" DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE "posts" (
			"id" INTEGER PRIMARY KEY AUTOINCREMENT,
			"author_id" INTEGER NOT NULL,
			FOREIGN KEY ("author_id") REFERENCES "users" ("id") ON DELETE CASCADE
		)`,
		`CREATE UNIQUE INDEX "idx_users_email" ON "users" ("email")`,
		`CREATE TABLE "tectonic_migrations" ("id" INTEGER PRIMARY KEY)`,
	}
	for _, stmt := range stmts {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}

	ins, err := New(db, "sqlite")
	require.NoError(t, err)
	state, err := ins.Introspect(ctx)
	require.NoError(t, err)

	// The ledger table never shows up as schema.
	require.Len(t, state.Tables, 2)
	_, ok := state.Tables["tectonic_migrations"]
	assert.False(t, ok)

	users := state.Tables["users"]
	id := users.Columns["id"]
	assert.True(t, id.PrimaryKey)
	assert.True(t, id.AutoIncrement)
	assert.False(t, id.Nullable)

	email := users.Columns["email"]
	assert.False(t, email.Nullable)
	assert.True(t, email.Unique, "unique index should be mirrored onto the column")
	assert.True(t, email.Indexed)

	assert.True(t, users.Columns["bio"].Nullable)

	created := users.Columns["created_at"]
	require.NotNil(t, created.Default)
	assert.Equal(t, schema.DefaultNow, created.Default.Kind)

	require.Len(t, users.Indexes, 1)
	assert.Equal(t, "idx_users_email", users.Indexes[0].Name)
	assert.True(t, users.Indexes[0].Unique)
	assert.Equal(t, []string{"email"}, users.Indexes[0].Columns)

	posts := state.Tables["posts"]
	require.Len(t, posts.ForeignKeys, 1)
	fk := posts.ForeignKeys[0]
	assert.Equal(t, "author_id", fk.Column)
	assert.Equal(t, "users", fk.ReferencedTable)
	assert.Equal(t, "id", fk.ReferencedColumn)
	assert.Equal(t, "CASCADE", fk.OnDelete)
}

// An inline UNIQUE constraint is backed by an autoindex; it must come back
// as a unique column, not as a named index.
func TestSQLiteInlineUnique(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `CREATE TABLE "users" (
		"id" INTEGER PRIMARY KEY,
		"handle" TEXT NOT NULL UNIQUE
	)`)
	require.NoError(t, err)

	ins, err := New(db, "sqlite")
	require.NoError(t, err)
	state, err := ins.Introspect(ctx)
	require.NoError(t, err)

	users := state.Tables["users"]
	assert.True(t, users.Columns["handle"].Unique)
	assert.Empty(t, users.Indexes)
}

func TestUnsupportedDialect(t *testing.T) {
	_, err := New(testDB(t), "oracle")
	assert.ErrorIs(t, err, ErrUnsupportedDialect)
}
