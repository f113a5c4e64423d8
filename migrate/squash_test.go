package migrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tectonic-db/tectonic/operation"
	"github.com/tectonic-db/tectonic/schema"
)

func squashEngine(t *testing.T) *Engine {
	t.Helper()
	e := testEngine(t)

	simpleTable := func(name string) schema.TableState {
		return schema.TableState{
			Name:    name,
			Columns: map[string]schema.ColumnState{"id": {Name: "id", Type: "INTEGER", PrimaryKey: true}},
		}
	}

	// 0001 creates users and a scratch table, 0002 grows scratch, 0003
	// drops it again. Only the users operations should survive a squash.
	artifacts := []*Migration{
		{
			App: "app", Name: "0001_initial",
			Operations: []operation.Operation{
				&operation.CreateTable{Table: simpleTable("users")},
				&operation.CreateTable{Table: simpleTable("scratch")},
			},
		},
		{
			App: "app", Name: "0002_scratch_note",
			DependsOn: []Dependency{{App: "app", Name: "0001_initial"}},
			Operations: []operation.Operation{
				&operation.AddColumn{Table: "scratch", Column: schema.ColumnState{Name: "note", Type: "TEXT", Nullable: true}},
				&operation.AddColumn{Table: "users", Column: schema.ColumnState{Name: "email", Type: "TEXT", Nullable: true}},
			},
		},
		{
			App: "app", Name: "0003_drop_scratch",
			DependsOn: []Dependency{{App: "app", Name: "0002_scratch_note"}},
			Operations: []operation.Operation{
				&operation.DropTable{Table: simpleTable("scratch")},
			},
		},
	}
	for _, m := range artifacts {
		_, err := e.loader.Save(m)
		require.NoError(t, err)
	}
	return e
}

func TestSquashCancelsCreateDropPairs(t *testing.T) {
	e := squashEngine(t)

	path, m, err := e.Squash(1, 3, "flat")
	require.NoError(t, err)
	assert.NotEmpty(t, path)
	assert.Equal(t, "0004_flat", m.Name)
	assert.Empty(t, m.DependsOn)

	// scratch and every operation touching it are gone.
	require.Len(t, m.Operations, 2)
	create, ok := m.Operations[0].(*operation.CreateTable)
	require.True(t, ok)
	assert.Equal(t, "users", create.Table.Name)
	add, ok := m.Operations[1].(*operation.AddColumn)
	require.True(t, ok)
	assert.Equal(t, "email", add.Column.Name)

	// The artifact round-trips through the loader.
	loaded, err := e.loader.Load("0004_flat")
	require.NoError(t, err)
	assert.Len(t, loaded.Operations, 2)
}

func TestSquashPartialRangeKeepsDependency(t *testing.T) {
	e := squashEngine(t)

	// 0002..0003 alone: scratch was created before the range, so its drop
	// must survive and the AddColumn on it stays too.
	_, m, err := e.Squash(2, 3, "")
	require.NoError(t, err)
	assert.Equal(t, "0004_squashed_0002_scratch_note_0003_drop_scratch", m.Name)
	require.Len(t, m.DependsOn, 1)
	assert.Equal(t, "0001_initial", m.DependsOn[0].Name)

	require.Len(t, m.Operations, 3)
	_, ok := m.Operations[2].(*operation.DropTable)
	assert.True(t, ok)
}

// A table created, dropped, and created again inside the range must come
// out of the squash with the final create intact.
func TestSquashKeepsRecreateAfterDrop(t *testing.T) {
	table := schema.TableState{
		Name:    "events",
		Columns: map[string]schema.ColumnState{"id": {Name: "id", Type: "INTEGER", PrimaryKey: true}},
	}
	ops := []operation.Operation{
		&operation.CreateTable{Table: table},
		&operation.AddColumn{Table: "events", Column: schema.ColumnState{Name: "kind", Type: "TEXT", Nullable: true}},
		&operation.DropTable{Table: table},
		&operation.CreateTable{Table: table},
		&operation.AddColumn{Table: "events", Column: schema.ColumnState{Name: "payload", Type: "TEXT", Nullable: true}},
	}

	out := squashOperations(ops)
	require.Len(t, out, 2)
	_, ok := out[0].(*operation.CreateTable)
	assert.True(t, ok)
	add, ok := out[1].(*operation.AddColumn)
	require.True(t, ok)
	assert.Equal(t, "payload", add.Column.Name)
}

func TestSquashRejectsBadRanges(t *testing.T) {
	e := squashEngine(t)

	_, _, err := e.Squash(0, 2, "")
	assert.Error(t, err)
	_, _, err = e.Squash(3, 2, "")
	assert.Error(t, err)
	_, _, err = e.Squash(1, 9, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestSquashedMigrationApplies(t *testing.T) {
	e := squashEngine(t)
	ctx := context.Background()

	_, _, err := e.Squash(1, 3, "flat")
	require.NoError(t, err)

	// The originals are marked applied without running, then the squashed
	// artifact executes for real and lands the end state directly.
	faked, _, err := e.Migrate(ctx, ApplyOptions{Target: "0003_drop_scratch", SkipAnalysis: true, Fake: true})
	require.NoError(t, err)
	assert.Len(t, faked, 3)

	applied, _, err := e.Migrate(ctx, ApplyOptions{SkipAnalysis: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"0004_flat"}, applied)

	var n int
	err = e.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	err = e.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'scratch'`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
