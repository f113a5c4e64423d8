package operation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tectonic-db/tectonic/schema"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ops := []Operation{
		&CreateTable{Table: schema.TableState{
			Name: "users",
			Columns: map[string]schema.ColumnState{
				"id": {Name: "id", Type: "INTEGER", PrimaryKey: true, AutoIncrement: true},
			},
		}},
		&AddColumn{Table: "users", Column: schema.ColumnState{
			Name: "created_at", Type: "TIMESTAMP", Default: schema.Now(),
		}},
		&AlterColumn{
			Table: "users",
			Old:   schema.ColumnState{Name: "age", Type: "INTEGER", Nullable: true},
			New:   schema.ColumnState{Name: "age", Type: "BIGINT", Nullable: false},
		},
	}

	persisted, err := Encode(ops)
	require.NoError(t, err)
	require.Len(t, persisted, 3)
	assert.Equal(t, KindCreateTable, persisted[0].Kind)

	decoded, err := Decode(persisted)
	require.NoError(t, err)
	require.Len(t, decoded, 3)

	add, ok := decoded[1].(*AddColumn)
	require.True(t, ok)
	assert.Equal(t, "users", add.Table)
	require.NotNil(t, add.Column.Default)
	assert.Equal(t, schema.DefaultNow, add.Column.Default.Kind)

	alter, ok := decoded[2].(*AlterColumn)
	require.True(t, ok)
	assert.Equal(t, "BIGINT", alter.New.Type)
	assert.True(t, alter.Old.Nullable)
}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := Decode([]Persisted{{Kind: "rename_galaxy", Payload: []byte(`{}`)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown operation kind")
}

func TestFingerprintIsOrderIndependent(t *testing.T) {
	a := &AddColumn{Table: "users", Column: schema.ColumnState{Name: "bio", Type: "TEXT", Nullable: true}}
	b := &DropColumn{Table: "users", Column: schema.ColumnState{Name: "legacy", Type: "TEXT"}}

	fp1, err := Fingerprint([]Operation{a, b})
	require.NoError(t, err)
	fp2, err := Fingerprint([]Operation{b, a})
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64)

	fp3, err := Fingerprint([]Operation{a})
	require.NoError(t, err)
	assert.NotEqual(t, fp1, fp3)
}

func TestReversibilityDependsOnRetainedShape(t *testing.T) {
	withShape := &DropColumn{Table: "users", Column: schema.ColumnState{Name: "bio", Type: "TEXT"}}
	assert.True(t, withShape.Reversible())

	withoutShape := &DropColumn{Table: "users", Column: schema.ColumnState{Name: "bio"}}
	assert.False(t, withoutShape.Reversible())

	emptyTable := &DropTable{Table: schema.TableState{Name: "users"}}
	assert.False(t, emptyTable.Reversible())

	enumAdd := &AlterEnum{Name: "status", Added: []string{"archived"}}
	assert.False(t, enumAdd.Reversible())
	enumRemove := &AlterEnum{Name: "status", Removed: []string{"archived"}}
	assert.True(t, enumRemove.Reversible())
	assert.True(t, enumRemove.Destructive())
}
