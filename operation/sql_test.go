package operation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tectonic-db/tectonic/dialect"
	"github.com/tectonic-db/tectonic/schema"
)

func TestCreateTableSQLIncludesForeignKeysAndIndexes(t *testing.T) {
	d := dialect.NewSQLite()
	posts := schema.TableState{
		Name: "posts",
		Columns: map[string]schema.ColumnState{
			"id":        {Name: "id", Type: "INTEGER", PrimaryKey: true, AutoIncrement: true},
			"author_id": {Name: "author_id", Type: "INTEGER"},
		},
		ForeignKeys: []schema.ForeignKeyState{
			{Column: "author_id", ReferencedTable: "users", ReferencedColumn: "id", OnDelete: "CASCADE"},
		},
		Indexes: []schema.IndexState{
			{Name: "idx_posts_author", Columns: []string{"author_id"}},
		},
	}

	stmts, err := (&CreateTable{Table: posts}).ForwardSQL(d)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], `CREATE TABLE "posts"`)
	assert.Contains(t, stmts[0], `FOREIGN KEY ("author_id") REFERENCES "users" ("id") ON DELETE CASCADE`)
	assert.Equal(t, `CREATE INDEX "idx_posts_author" ON "posts" ("author_id")`, stmts[1])
}

// SQLite rejects ADD COLUMN ... UNIQUE; the constraint becomes a separate
// unique index there. Dialects that can add constraints keep it inline.
func TestAddUniqueColumnPerDialect(t *testing.T) {
	op := &AddColumn{
		Table:  "users",
		Column: schema.ColumnState{Name: "handle", Type: "TEXT", Nullable: true, Unique: true},
	}

	stmts, err := op.ForwardSQL(dialect.NewSQLite())
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, `ALTER TABLE "users" ADD COLUMN "handle" TEXT`, stmts[0])
	assert.Equal(t, `CREATE UNIQUE INDEX "idx_users_handle" ON "users" ("handle")`, stmts[1])

	stmts, err = op.ForwardSQL(dialect.NewPostgres())
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "UNIQUE")
}

func TestAlterColumnPostgres(t *testing.T) {
	d := dialect.NewPostgres()
	op := &AlterColumn{
		Table: "users",
		Old:   schema.ColumnState{Name: "age", Type: "INTEGER", Nullable: true},
		New:   schema.ColumnState{Name: "age", Type: "BIGINT", Nullable: false},
	}
	stmts, err := op.ForwardSQL(d)
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, `ALTER TABLE "users" ALTER COLUMN "age" TYPE BIGINT USING "age"::BIGINT`, stmts[0])
	assert.Equal(t, `ALTER TABLE "users" ALTER COLUMN "age" SET NOT NULL`, stmts[1])

	// The backward direction restores the old state.
	back, err := op.BackwardSQL(d)
	require.NoError(t, err)
	require.Len(t, back, 2)
	assert.Contains(t, back[0], "TYPE INTEGER")
	assert.Contains(t, back[1], "DROP NOT NULL")
}

func TestAlterColumnSQLiteRecreatesColumn(t *testing.T) {
	d := dialect.NewSQLite()
	op := &AlterColumn{
		Table: "users",
		Old:   schema.ColumnState{Name: "age", Type: "INTEGER", Nullable: true},
		New:   schema.ColumnState{Name: "age", Type: "BIGINT", Nullable: true},
	}
	stmts, err := op.ForwardSQL(d)
	require.NoError(t, err)
	require.Len(t, stmts, 4)
	assert.Contains(t, stmts[0], `ADD COLUMN "__tectonic_tmp_age"`)
	assert.Equal(t, `UPDATE "users" SET "__tectonic_tmp_age" = "age"`, stmts[1])
	assert.Equal(t, `ALTER TABLE "users" DROP COLUMN "age"`, stmts[2])
	assert.Equal(t, `ALTER TABLE "users" RENAME COLUMN "__tectonic_tmp_age" TO "age"`, stmts[3])
}

func TestAlterColumnSQLiteNotNullWithoutDefaultFails(t *testing.T) {
	d := dialect.NewSQLite()
	op := &AlterColumn{
		Table: "users",
		Old:   schema.ColumnState{Name: "age", Type: "INTEGER", Nullable: true},
		New:   schema.ColumnState{Name: "age", Type: "INTEGER", Nullable: false},
	}
	_, err := op.ForwardSQL(d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT NULL without a default")
}

func TestDropIndexSQLPerDialect(t *testing.T) {
	op := &DropIndex{Table: "users", Index: schema.IndexState{Name: "idx_users_email", Columns: []string{"email"}}}

	stmts, err := op.ForwardSQL(dialect.NewMySQL())
	require.NoError(t, err)
	assert.Equal(t, []string{"DROP INDEX `idx_users_email` ON `users`"}, stmts)

	stmts, err = op.ForwardSQL(dialect.NewPostgres())
	require.NoError(t, err)
	assert.Equal(t, []string{`DROP INDEX "idx_users_email"`}, stmts)
}

func TestDropForeignKeyPerDialect(t *testing.T) {
	op := &DropForeignKey{
		Table:      "posts",
		ForeignKey: schema.ForeignKeyState{Column: "author_id", ReferencedTable: "users", ReferencedColumn: "id"},
	}

	stmts, err := op.ForwardSQL(dialect.NewMySQL())
	require.NoError(t, err)
	assert.Equal(t, []string{"ALTER TABLE `posts` DROP FOREIGN KEY `fk_posts_author_id`"}, stmts)

	stmts, err = op.ForwardSQL(dialect.NewPostgres())
	require.NoError(t, err)
	assert.Equal(t, []string{`ALTER TABLE "posts" DROP CONSTRAINT "fk_posts_author_id"`}, stmts)

	_, err = op.ForwardSQL(dialect.NewSQLite())
	require.Error(t, err)
}

func TestEnumSQLOnlyWhereSupported(t *testing.T) {
	e := schema.EnumState{Name: "status", Values: []string{"active", "banned"}}

	stmts, err := (&CreateEnum{Enum: e}).ForwardSQL(dialect.NewPostgres())
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, `CREATE TYPE "status" AS ENUM ('active', 'banned')`, stmts[0])

	// Dialects without named enum types compile to nothing.
	stmts, err = (&CreateEnum{Enum: e}).ForwardSQL(dialect.NewSQLite())
	require.NoError(t, err)
	assert.Empty(t, stmts)
}

func TestAlterEnumForward(t *testing.T) {
	pg := dialect.NewPostgres()

	add := &AlterEnum{Name: "status", Added: []string{"archived"}}
	stmts, err := add.ForwardSQL(pg)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Equal(t, `ALTER TYPE "status" ADD VALUE 'archived'`, stmts[0])

	// Removing a value has no dialect support anywhere.
	remove := &AlterEnum{Name: "status", Removed: []string{"banned"}}
	_, err = remove.ForwardSQL(pg)
	require.Error(t, err)
}
