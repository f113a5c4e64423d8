package migrate

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tectonic-db/tectonic/operation"
	"github.com/tectonic-db/tectonic/schema"
)

func sampleMigration(name string) *Migration {
	return &Migration{
		App:  "app",
		Name: name,
		Operations: []operation.Operation{
			&operation.AddColumn{
				Table:  "users",
				Column: schema.ColumnState{Name: "bio", Type: "TEXT", Nullable: true},
			},
		},
	}
}

func TestLoaderSaveAndList(t *testing.T) {
	fs := afero.NewMemMapFs()
	loader := NewLoader(fs, "migrations", "app")

	path, err := loader.Save(sampleMigration("0001_initial"))
	require.NoError(t, err)
	assert.Equal(t, "migrations/0001_initial.json", path)

	_, err = loader.Save(sampleMigration("0002_bio"))
	require.NoError(t, err)

	all, err := loader.List()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "0001_initial", all[0].Name)
	assert.Equal(t, "0002_bio", all[1].Name)
	require.Len(t, all[0].Operations, 1)

	add, ok := all[0].Operations[0].(*operation.AddColumn)
	require.True(t, ok)
	assert.Equal(t, "users", add.Table)
}

// A fresh project has no migrations directory yet; that is an empty set,
// not an error, so the first makemigrations run works.
func TestLoaderListMissingDirectory(t *testing.T) {
	loader := NewLoader(afero.NewMemMapFs(), "migrations", "app")

	all, err := loader.List()
	require.NoError(t, err)
	assert.Empty(t, all)

	latest, err := loader.Latest()
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestLoaderIgnoresForeignFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	loader := NewLoader(fs, "migrations", "app")
	_, err := loader.Save(sampleMigration("0001_initial"))
	require.NoError(t, err)

	require.NoError(t, afero.WriteFile(fs, "migrations/README.md", []byte("notes"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "migrations/backup.json.bak", []byte("{}"), 0o644))

	all, err := loader.List()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLoaderNextSequence(t *testing.T) {
	fs := afero.NewMemMapFs()
	loader := NewLoader(fs, "migrations", "app")

	seq, err := loader.NextSequence()
	require.NoError(t, err)
	assert.Equal(t, 1, seq)

	_, err = loader.Save(sampleMigration("0001_initial"))
	require.NoError(t, err)
	_, err = loader.Save(sampleMigration("0007_gap"))
	require.NoError(t, err)

	seq, err = loader.NextSequence()
	require.NoError(t, err)
	assert.Equal(t, 8, seq)
}

func TestLoaderFormatVersionGate(t *testing.T) {
	fs := afero.NewMemMapFs()
	loader := NewLoader(fs, "migrations", "app")

	future := `{"format_version": "2.0.0", "app": "app", "name": "0001_future", "operations": []}`
	require.NoError(t, afero.WriteFile(fs, "migrations/0001_future.json", []byte(future), 0o644))

	_, err := loader.List()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format")
}

func TestLoaderLoadMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	loader := NewLoader(fs, "migrations", "app")
	require.NoError(t, fs.MkdirAll("migrations", 0o755))

	_, err := loader.Load("0009_missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrArtifactMissing)
}

func TestSequenceName(t *testing.T) {
	assert.Equal(t, "0001_initial", SequenceName(1, "initial"))
	assert.Equal(t, "0012_auto", SequenceName(12, ""))
}

func TestMigrationDerivedProperties(t *testing.T) {
	m := &Migration{Operations: []operation.Operation{
		&operation.AddColumn{Table: "users", Column: schema.ColumnState{Name: "bio", Type: "TEXT", Nullable: true}},
		&operation.DropColumn{Table: "users", Column: schema.ColumnState{Name: "legacy", Type: "TEXT"}},
	}}
	assert.True(t, m.IsReversible())
	assert.True(t, m.HasDestructive())

	m.Operations = append(m.Operations, &operation.DropColumn{
		Table: "users", Column: schema.ColumnState{Name: "shapeless"},
	})
	assert.False(t, m.IsReversible())
}
