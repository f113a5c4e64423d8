package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func usersTable() TableState {
	return TableState{
		Name: "users",
		Columns: map[string]ColumnState{
			"id":    {Name: "id", Type: "INTEGER", PrimaryKey: true, AutoIncrement: true},
			"email": {Name: "email", Type: "VARCHAR(255)"},
		},
	}
}

func stateOf(t *testing.T, tables ...TableState) SchemaState {
	t.Helper()
	s, err := FromModels(tables, nil)
	require.NoError(t, err)
	return s
}

func TestDiffIdentityIsEmpty(t *testing.T) {
	a := stateOf(t, usersTable())
	d := Diff(a, a)
	assert.True(t, d.Empty())
	assert.Empty(t, d.CreateTables)
	assert.Empty(t, d.DropTables)
	assert.Empty(t, d.TableDiffs)
}

func TestDiffEquivalentTypesProduceNothing(t *testing.T) {
	declared := usersTable()
	declared.Columns["created_at"] = ColumnState{Name: "created_at", Type: "TIMESTAMP"}

	introspected := usersTable()
	introspected.Columns["created_at"] = ColumnState{Name: "created_at", Type: "DATETIME"}

	d := Diff(stateOf(t, introspected), stateOf(t, declared))
	assert.True(t, d.Empty())
}

// A live unique index that implements a declared unique column is the
// constraint itself, not drift: the declared side carries it as a column
// attribute and must not plan a DropIndex.
func TestDiffUniqueBackingIndexIsNotDrift(t *testing.T) {
	live := usersTable()
	live.Columns["handle"] = ColumnState{Name: "handle", Type: "TEXT", Nullable: true, Unique: true, Indexed: true}
	live.Indexes = []IndexState{
		{Name: "idx_users_handle", Columns: []string{"handle"}, Unique: true},
	}

	declared := usersTable()
	declared.Columns["handle"] = ColumnState{Name: "handle", Type: "TEXT", Nullable: true, Unique: true}

	d := Diff(stateOf(t, live), stateOf(t, declared))
	assert.True(t, d.Empty(), "backing index reported as drift")

	// Once the column is no longer declared unique, the index goes too.
	declared.Columns["handle"] = ColumnState{Name: "handle", Type: "TEXT", Nullable: true}
	d = Diff(stateOf(t, live), stateOf(t, declared))
	require.Len(t, d.TableDiffs, 1)
	assert.Len(t, d.TableDiffs[0].DropIndexes, 1)
}

func TestDiffCreateAndDropTables(t *testing.T) {
	old := stateOf(t, usersTable())
	posts := TableState{
		Name:    "posts",
		Columns: map[string]ColumnState{"id": {Name: "id", Type: "INTEGER", PrimaryKey: true}},
	}
	new := stateOf(t, posts)

	d := Diff(old, new)
	require.Len(t, d.CreateTables, 1)
	assert.Equal(t, "posts", d.CreateTables[0].Name)
	require.Len(t, d.DropTables, 1)
	assert.Equal(t, "users", d.DropTables[0].Name)
}

func TestDiffColumnBuckets(t *testing.T) {
	old := usersTable()
	old.Columns["age"] = ColumnState{Name: "age", Type: "INTEGER", Nullable: true}
	old.Columns["legacy"] = ColumnState{Name: "legacy", Type: "TEXT", Nullable: true}

	new := usersTable()
	new.Columns["age"] = ColumnState{Name: "age", Type: "INTEGER", Nullable: false}
	new.Columns["verified_at"] = ColumnState{Name: "verified_at", Type: "DATETIME", Nullable: true}

	d := Diff(stateOf(t, old), stateOf(t, new))
	require.Len(t, d.TableDiffs, 1)
	td := d.TableDiffs[0]

	require.Len(t, td.AddColumns, 1)
	assert.Equal(t, "verified_at", td.AddColumns[0].Name)

	require.Len(t, td.DropColumns, 1)
	assert.Equal(t, "legacy", td.DropColumns[0].Name)

	require.Len(t, td.AlterColumns, 1)
	alter := td.AlterColumns[0]
	assert.Equal(t, "age", alter.Name)
	require.Len(t, alter.Changes, 1)
	assert.Equal(t, "nullable", alter.Changes[0].Field)
	assert.Equal(t, "true", alter.Changes[0].From)
	assert.Equal(t, "false", alter.Changes[0].To)
}

func TestDiffChangedIndexDropsAndRecreates(t *testing.T) {
	old := usersTable()
	old.Indexes = []IndexState{{Name: "idx_users_email", Columns: []string{"email"}}}

	new := usersTable()
	new.Indexes = []IndexState{{Name: "idx_users_email", Columns: []string{"email"}, Unique: true}}

	d := Diff(stateOf(t, old), stateOf(t, new))
	require.Len(t, d.TableDiffs, 1)
	td := d.TableDiffs[0]
	require.Len(t, td.DropIndexes, 1)
	require.Len(t, td.CreateIndexes, 1)
	assert.Equal(t, td.DropIndexes[0].Name, td.CreateIndexes[0].Name)
	assert.False(t, td.DropIndexes[0].Unique)
	assert.True(t, td.CreateIndexes[0].Unique)
}

func TestDiffEnums(t *testing.T) {
	old := NewState()
	old.Enums["status"] = EnumState{Name: "status", Values: []string{"active", "banned"}}
	old.Enums["legacy"] = EnumState{Name: "legacy", Values: []string{"a"}}

	new := NewState()
	new.Enums["status"] = EnumState{Name: "status", Values: []string{"active", "banned", "pending"}}
	new.Enums["role"] = EnumState{Name: "role", Values: []string{"admin", "member"}}

	d := Diff(old, new)
	require.Len(t, d.CreateEnums, 1)
	assert.Equal(t, "role", d.CreateEnums[0].Name)
	require.Len(t, d.DropEnums, 1)
	assert.Equal(t, "legacy", d.DropEnums[0].Name)
	require.Len(t, d.AlterEnums, 1)
	assert.Equal(t, []string{"pending"}, d.AlterEnums[0].Added)
	assert.Empty(t, d.AlterEnums[0].Removed)
}

func TestDiffIsSymmetricallyInvertible(t *testing.T) {
	a := stateOf(t, usersTable())

	b := usersTable()
	b.Columns["verified_at"] = ColumnState{Name: "verified_at", Type: "DATETIME", Nullable: true}
	bState := stateOf(t, b)

	forward := Diff(a, bState)
	backward := Diff(bState, a)

	require.Len(t, forward.TableDiffs, 1)
	require.Len(t, backward.TableDiffs, 1)
	require.Len(t, forward.TableDiffs[0].AddColumns, 1)
	require.Len(t, backward.TableDiffs[0].DropColumns, 1)
	assert.Equal(t, forward.TableDiffs[0].AddColumns[0], backward.TableDiffs[0].DropColumns[0])
}
