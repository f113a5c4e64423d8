// Package migrate orchestrates the full migration lifecycle: generating
// migration artifacts from schema diffs, maintaining the applied-migration
// ledger, running the pre-apply analyzer, executing operations forward and
// backward, and squashing ranges.
package migrate

import (
	"github.com/tectonic-db/tectonic/operation"
)

// Dependency points at a migration this one must run after.
type Dependency struct {
	App  string `json:"app"`
	Name string `json:"name"`
}

// Migration is an ordered operation list with a unique name. Created once
// at generation time and immutable afterward.
type Migration struct {
	App        string
	Name       string
	DependsOn  []Dependency
	Operations []operation.Operation
}

// IsReversible is true only when every operation can be inverted.
func (m *Migration) IsReversible() bool {
	for _, op := range m.Operations {
		if !op.Reversible() {
			return false
		}
	}
	return true
}

// HasDestructive is true when any operation may discard data.
func (m *Migration) HasDestructive() bool {
	for _, op := range m.Operations {
		if op.Destructive() {
			return true
		}
	}
	return false
}

// Fingerprint is a stable hash over the operation set, insensitive to
// operation order. Stored in the ledger so edits after apply are caught.
func (m *Migration) Fingerprint() (string, error) {
	return operation.Fingerprint(m.Operations)
}
