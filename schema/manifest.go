package schema

import (
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Manifest is the file form of the declared schema: the table and enum
// descriptors an ORM layer would otherwise hand over in-process. Kept as
// plain YAML so the engine can run standalone.
type Manifest struct {
	App    string          `yaml:"app"`
	Tables []ManifestTable `yaml:"tables"`
	Enums  []EnumState     `yaml:"enums,omitempty"`
}

// ManifestTable mirrors TableState but keeps columns as an ordered list,
// which reads better in YAML than a map.
type ManifestTable struct {
	Name        string            `yaml:"name"`
	Columns     []ColumnState     `yaml:"columns"`
	ForeignKeys []ForeignKeyState `yaml:"foreign_keys,omitempty"`
	Indexes     []IndexState      `yaml:"indexes,omitempty"`
}

// LoadManifest reads and parses a schema manifest from fs.
func LoadManifest(fs afero.Fs, path string) (*Manifest, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse schema manifest %s: %w", path, err)
	}
	return &m, nil
}

// State converts the manifest into a validated SchemaState.
func (m *Manifest) State() (SchemaState, error) {
	tables := make([]TableState, 0, len(m.Tables))
	for _, mt := range m.Tables {
		t := TableState{
			Name:        mt.Name,
			Columns:     make(map[string]ColumnState, len(mt.Columns)),
			ForeignKeys: mt.ForeignKeys,
			Indexes:     mt.Indexes,
		}
		for _, col := range mt.Columns {
			if _, dup := t.Columns[col.Name]; dup {
				return SchemaState{}, fmt.Errorf("table %s: duplicate column %s", mt.Name, col.Name)
			}
			t.Columns[col.Name] = col
		}
		// Columns covered by a declared single-column index are marked
		// indexed so state extracted from the database compares equal.
		for _, idx := range t.Indexes {
			if len(idx.Columns) != 1 {
				continue
			}
			if col, ok := t.Columns[idx.Columns[0]]; ok {
				col.Indexed = true
				if idx.Unique {
					col.Unique = true
				}
				t.Columns[idx.Columns[0]] = col
			}
		}
		tables = append(tables, t)
	}
	return FromModels(tables, m.Enums)
}
