package migrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tectonic-db/tectonic/analyze"
)

// ErrConfirmationRequired is returned when a migration set carries
// WARNING-level issues and no confirmation path was provided.
// Non-interactive callers must pass an explicit override.
var ErrConfirmationRequired = errors.New("analysis produced warnings; confirmation required")

// ErrArtifactMissing is returned when a ledger row points at a migration
// file that no longer exists on disk.
var ErrArtifactMissing = errors.New("migration artifact not found")

// AnalysisBlockedError carries the full per-migration analysis reports when
// at least one ERROR or CRITICAL issue refused the apply. The database was
// not touched.
type AnalysisBlockedError struct {
	Results []*analyze.Result
}

func (e *AnalysisBlockedError) Error() string {
	var blocked []string
	for _, r := range e.Results {
		if !r.CanProceed() {
			blocked = append(blocked, fmt.Sprintf("%s (%s)", r.Migration, r.Summary()))
		}
	}
	return fmt.Sprintf("migration blocked by analysis: %s", strings.Join(blocked, "; "))
}

// IrreversibleError is returned when rollback reaches a migration with a
// non-reversible operation. Nothing was reverted.
type IrreversibleError struct {
	Migration string
	Operation string
}

func (e *IrreversibleError) Error() string {
	return fmt.Sprintf("migration %s cannot be rolled back: %s is not reversible", e.Migration, e.Operation)
}

// PartialApplyError reports exactly which operation of which migration
// failed. On dialects without transactional DDL the operations before
// OperationIndex have already executed and are not reverted.
type PartialApplyError struct {
	Migration      string
	OperationIndex int
	RolledBack     bool
	Err            error
}

func (e *PartialApplyError) Error() string {
	state := "earlier operations were not reverted"
	if e.RolledBack {
		state = "transaction rolled back"
	}
	return fmt.Sprintf("migration %s failed at operation %d (%s): %v",
		e.Migration, e.OperationIndex, state, e.Err)
}

func (e *PartialApplyError) Unwrap() error { return e.Err }

// FingerprintMismatchError means a migration file was edited after it was
// recorded as applied.
type FingerprintMismatchError struct {
	Migration string
	Recorded  string
	Computed  string
}

func (e *FingerprintMismatchError) Error() string {
	return fmt.Sprintf("migration %s was modified after being applied: ledger fingerprint %s, file fingerprint %s",
		e.Migration, short(e.Recorded), short(e.Computed))
}

func short(fingerprint string) string {
	if len(fingerprint) > 12 {
		return fingerprint[:12]
	}
	return fingerprint
}
