package schema

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `
app: blog
tables:
  - name: users
    columns:
      - name: id
        type: INTEGER
        primary_key: true
        autoincrement: true
      - name: email
        type: VARCHAR(255)
      - name: created_at
        type: TIMESTAMP
        default:
          kind: now
    indexes:
      - name: idx_users_email
        columns: [email]
        unique: true
  - name: posts
    columns:
      - name: id
        type: INTEGER
        primary_key: true
        autoincrement: true
      - name: author_id
        type: INTEGER
      - name: status
        type: TEXT
        nullable: true
    foreign_keys:
      - column: author_id
        references: users
        referenced_column: id
        on_delete: CASCADE
enums:
  - name: post_status
    values: [draft, published]
`

func TestLoadManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "schema.yaml", []byte(sampleManifest), 0o644))

	m, err := LoadManifest(fs, "schema.yaml")
	require.NoError(t, err)
	assert.Equal(t, "blog", m.App)
	require.Len(t, m.Tables, 2)

	state, err := m.State()
	require.NoError(t, err)
	require.Contains(t, state.Tables, "users")
	require.Contains(t, state.Tables, "posts")

	users := state.Tables["users"]
	assert.Equal(t, DefaultNow, users.Columns["created_at"].Default.Kind)

	// The declared unique index is mirrored onto the column.
	assert.True(t, users.Columns["email"].Unique)
	assert.True(t, users.Columns["email"].Indexed)

	posts := state.Tables["posts"]
	require.Len(t, posts.ForeignKeys, 1)
	assert.Equal(t, "users", posts.ForeignKeys[0].ReferencedTable)
	assert.Equal(t, "CASCADE", posts.ForeignKeys[0].OnDelete)

	require.Contains(t, state.Enums, "post_status")
}

func TestLoadManifestMissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := LoadManifest(fs, "nope.yaml")
	require.Error(t, err)
}

func TestManifestStateRejectsDuplicateColumns(t *testing.T) {
	m := &Manifest{
		App: "blog",
		Tables: []ManifestTable{{
			Name: "users",
			Columns: []ColumnState{
				{Name: "id", Type: "INTEGER", PrimaryKey: true},
				{Name: "id", Type: "TEXT"},
			},
		}},
	}
	_, err := m.State()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column")
}
