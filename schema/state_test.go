package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnEqualTypeEquivalence(t *testing.T) {
	a := ColumnState{Name: "created_at", Type: "TIMESTAMP"}
	b := ColumnState{Name: "created_at", Type: "DATETIME"}
	assert.True(t, a.Equal(b))

	c := ColumnState{Name: "created_at", Type: "TIMESTAMP WITH TIME ZONE"}
	assert.True(t, a.Equal(c))

	d := ColumnState{Name: "created_at", Type: "INTEGER"}
	assert.False(t, a.Equal(d))
}

func TestColumnEqualVarcharParams(t *testing.T) {
	a := ColumnState{Name: "email", Type: "VARCHAR(255)"}

	// One side without a parameter still matches within the family.
	assert.True(t, a.Equal(ColumnState{Name: "email", Type: "TEXT"}))

	// Both sides parameterized and different do not.
	assert.False(t, a.Equal(ColumnState{Name: "email", Type: "VARCHAR(100)"}))
	assert.True(t, a.Equal(ColumnState{Name: "email", Type: "varchar(255)"}))
}

func TestColumnEqualAttributes(t *testing.T) {
	base := ColumnState{Name: "age", Type: "INTEGER", Nullable: true}
	assert.True(t, base.Equal(base))
	assert.False(t, base.Equal(ColumnState{Name: "age", Type: "INTEGER", Nullable: false}))
	assert.False(t, base.Equal(ColumnState{Name: "age", Type: "INTEGER", Nullable: true, Unique: true}))

	// Indexed is index metadata, not column identity.
	indexed := base
	indexed.Indexed = true
	assert.True(t, base.Equal(indexed))
}

func TestDefaultValueEqual(t *testing.T) {
	assert.True(t, (*DefaultValue)(nil).Equal(nil))
	assert.False(t, Literal("0").Equal(nil))
	assert.True(t, Literal("0").Equal(Literal("0")))
	assert.False(t, Literal("0").Equal(Literal("1")))
	assert.True(t, Now().Equal(Now()))
	assert.False(t, Now().Equal(UUID()))
	assert.False(t, Now().Equal(Literal("NOW")))
}

func TestEnumEqualIsSetBased(t *testing.T) {
	a := EnumState{Name: "status", Values: []string{"active", "banned", "pending"}}
	b := EnumState{Name: "status", Values: []string{"pending", "active", "banned"}}
	assert.True(t, a.Equal(b))

	c := EnumState{Name: "status", Values: []string{"active", "banned"}}
	assert.False(t, a.Equal(c))
}

func TestTableValidateSinglePrimaryKey(t *testing.T) {
	ok := TableState{
		Name: "users",
		Columns: map[string]ColumnState{
			"id":    {Name: "id", Type: "INTEGER", PrimaryKey: true},
			"email": {Name: "email", Type: "VARCHAR(255)"},
		},
	}
	require.NoError(t, ok.Validate())

	bad := TableState{
		Name: "users",
		Columns: map[string]ColumnState{
			"id":    {Name: "id", Type: "INTEGER", PrimaryKey: true},
			"email": {Name: "email", Type: "VARCHAR(255)", PrimaryKey: true},
		},
	}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "composite primary keys")
}

func TestTableValidateForeignKeyColumn(t *testing.T) {
	bad := TableState{
		Name: "posts",
		Columns: map[string]ColumnState{
			"id": {Name: "id", Type: "INTEGER", PrimaryKey: true},
		},
		ForeignKeys: []ForeignKeyState{
			{Column: "author_id", ReferencedTable: "users", ReferencedColumn: "id"},
		},
	}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown column")
}

func TestFromModelsRejectsDuplicates(t *testing.T) {
	users := TableState{
		Name:    "users",
		Columns: map[string]ColumnState{"id": {Name: "id", Type: "INTEGER", PrimaryKey: true}},
	}
	_, err := FromModels([]TableState{users, users}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate table")
}
