// Package schema models database schema state and computes structural diffs.
// A SchemaState is extracted either from declared models (see manifest.go and
// FromModels) or from a live database (see the introspect subpackage); the
// two sides are compared with Diff.
package schema

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultKind tags the closed set of default-value forms a column can carry.
type DefaultKind string

const (
	// DefaultLiteral is a plain literal default, stored verbatim.
	DefaultLiteral DefaultKind = "literal"
	// DefaultNow resolves to the dialect's current-timestamp expression.
	DefaultNow DefaultKind = "now"
	// DefaultUUID resolves to the dialect's UUID generation expression,
	// where the dialect has one.
	DefaultUUID DefaultKind = "uuid"
)

// DefaultValue is a column default: either a literal or a symbolic
// reference resolved per dialect at compile time.
type DefaultValue struct {
	Kind    DefaultKind `json:"kind" yaml:"kind"`
	Literal string      `json:"literal,omitempty" yaml:"literal,omitempty"`
}

// Literal builds a literal default value.
func Literal(v string) *DefaultValue {
	return &DefaultValue{Kind: DefaultLiteral, Literal: v}
}

// Now builds the symbolic current-timestamp default.
func Now() *DefaultValue { return &DefaultValue{Kind: DefaultNow} }

// UUID builds the symbolic UUID default.
func UUID() *DefaultValue { return &DefaultValue{Kind: DefaultUUID} }

// Equal compares two defaults. Nil means "no default".
func (d *DefaultValue) Equal(other *DefaultValue) bool {
	if d == nil || other == nil {
		return d == nil && other == nil
	}
	if d.Kind != other.Kind {
		return false
	}
	if d.Kind == DefaultLiteral {
		return d.Literal == other.Literal
	}
	return true
}

// String renders the default for descriptions and diffs, not for SQL.
func (d *DefaultValue) String() string {
	if d == nil {
		return "<none>"
	}
	switch d.Kind {
	case DefaultLiteral:
		return d.Literal
	case DefaultNow:
		return "NOW"
	case DefaultUUID:
		return "UUID4"
	}
	return string(d.Kind)
}

// ColumnState describes one column in dialect-neutral terms.
type ColumnState struct {
	Name          string        `json:"name" yaml:"name"`
	Type          string        `json:"type" yaml:"type"`
	Nullable      bool          `json:"nullable" yaml:"nullable"`
	Default       *DefaultValue `json:"default,omitempty" yaml:"default,omitempty"`
	PrimaryKey    bool          `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	AutoIncrement bool          `json:"autoincrement,omitempty" yaml:"autoincrement,omitempty"`
	Unique        bool          `json:"unique,omitempty" yaml:"unique,omitempty"`
	Indexed       bool          `json:"indexed,omitempty" yaml:"indexed,omitempty"`
}

// Equal reports whether two column states are structurally identical.
// Types compare via the cross-dialect equivalence table, so a column
// introspected as DATETIME matches one declared as TIMESTAMP.
func (c ColumnState) Equal(other ColumnState) bool {
	return c.Name == other.Name &&
		TypesEquivalent(c.Type, other.Type) &&
		c.Nullable == other.Nullable &&
		c.Default.Equal(other.Default) &&
		c.PrimaryKey == other.PrimaryKey &&
		c.AutoIncrement == other.AutoIncrement &&
		c.Unique == other.Unique
}

// ForeignKeyState describes a single-column foreign key.
type ForeignKeyState struct {
	Column           string `json:"column" yaml:"column"`
	ReferencedTable  string `json:"references" yaml:"references"`
	ReferencedColumn string `json:"referenced_column" yaml:"referenced_column"`
	OnDelete         string `json:"on_delete,omitempty" yaml:"on_delete,omitempty"`
}

// Equal compares foreign keys by structure, ignoring constraint names.
func (f ForeignKeyState) Equal(other ForeignKeyState) bool {
	return f.Column == other.Column &&
		f.ReferencedTable == other.ReferencedTable &&
		f.ReferencedColumn == other.ReferencedColumn &&
		strings.EqualFold(f.OnDelete, other.OnDelete)
}

// IndexState describes a named index over an ordered column list.
type IndexState struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []string `json:"columns" yaml:"columns"`
	Unique  bool     `json:"unique,omitempty" yaml:"unique,omitempty"`
}

// Equal compares indexes by structure: same columns in the same order and
// the same uniqueness.
func (i IndexState) Equal(other IndexState) bool {
	if i.Unique != other.Unique || len(i.Columns) != len(other.Columns) {
		return false
	}
	for n, col := range i.Columns {
		if col != other.Columns[n] {
			return false
		}
	}
	return true
}

// EnumState describes a named enum type. Value order is irrelevant for
// comparison.
type EnumState struct {
	Name   string   `json:"name" yaml:"name"`
	Values []string `json:"values" yaml:"values"`
}

// Equal compares enums as value sets.
func (e EnumState) Equal(other EnumState) bool {
	if len(e.Values) != len(other.Values) {
		return false
	}
	set := make(map[string]bool, len(e.Values))
	for _, v := range e.Values {
		set[v] = true
	}
	for _, v := range other.Values {
		if !set[v] {
			return false
		}
	}
	return true
}

// TableState describes one table: columns keyed by name plus foreign keys
// and secondary indexes.
type TableState struct {
	Name        string                 `json:"name" yaml:"name"`
	Columns     map[string]ColumnState `json:"columns" yaml:"columns"`
	ForeignKeys []ForeignKeyState      `json:"foreign_keys,omitempty" yaml:"foreign_keys,omitempty"`
	Indexes     []IndexState           `json:"indexes,omitempty" yaml:"indexes,omitempty"`
}

// PrimaryKey returns the table's primary key column, if any.
func (t TableState) PrimaryKey() (ColumnState, bool) {
	for _, col := range t.Columns {
		if col.PrimaryKey {
			return col, true
		}
	}
	return ColumnState{}, false
}

// ColumnNames returns the table's column names sorted for deterministic
// iteration.
func (t TableState) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for name := range t.Columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate enforces structural invariants on a declared table.
func (t TableState) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("table has no name")
	}
	pkCount := 0
	for name, col := range t.Columns {
		if col.Name != name {
			return fmt.Errorf("table %s: column keyed %q but named %q", t.Name, name, col.Name)
		}
		if col.Type == "" {
			return fmt.Errorf("table %s: column %s has no type", t.Name, name)
		}
		if col.PrimaryKey {
			pkCount++
		}
	}
	if pkCount > 1 {
		return fmt.Errorf("table %s: composite primary keys are not supported (%d primary key columns)", t.Name, pkCount)
	}
	for _, fk := range t.ForeignKeys {
		if _, ok := t.Columns[fk.Column]; !ok {
			return fmt.Errorf("table %s: foreign key on unknown column %s", t.Name, fk.Column)
		}
	}
	return nil
}

// SchemaState is a full schema description: tables and enums keyed by name.
// It represents either what models declare or what a database currently has.
type SchemaState struct {
	Tables map[string]TableState `json:"tables"`
	Enums  map[string]EnumState  `json:"enums,omitempty"`
}

// NewState returns an empty schema state.
func NewState() SchemaState {
	return SchemaState{
		Tables: map[string]TableState{},
		Enums:  map[string]EnumState{},
	}
}

// TableNames returns table names in sorted order.
func (s SchemaState) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EnumNames returns enum names in sorted order.
func (s SchemaState) EnumNames() []string {
	names := make([]string, 0, len(s.Enums))
	for name := range s.Enums {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FromModels builds a SchemaState from model-derived table and enum
// descriptors. It is purely structural: no database access, no side effects.
func FromModels(tables []TableState, enums []EnumState) (SchemaState, error) {
	state := NewState()
	for _, t := range tables {
		if err := t.Validate(); err != nil {
			return SchemaState{}, err
		}
		if _, dup := state.Tables[t.Name]; dup {
			return SchemaState{}, fmt.Errorf("duplicate table %s", t.Name)
		}
		state.Tables[t.Name] = t
	}
	for _, e := range enums {
		if _, dup := state.Enums[e.Name]; dup {
			return SchemaState{}, fmt.Errorf("duplicate enum %s", e.Name)
		}
		state.Enums[e.Name] = e
	}
	return state, nil
}
