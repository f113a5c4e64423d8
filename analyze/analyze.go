// Package analyze statically checks pending migration operations against
// the live database before anything executes. The checker is read-only:
// it runs row counts and targeted content probes, never DDL. Issues come
// back as data so callers can render or act on them; nothing here raises
// for a finding.
package analyze

import (
	"fmt"
	"strings"
)

// Severity grades an issue. ERROR and CRITICAL block the apply; WARNING
// needs confirmation; INFO is advisory.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
	Critical
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	case Critical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Issue codes.
const (
	CodeNotNullNoDefault      = "NOT_NULL_NO_DEFAULT"
	CodeUniqueOnPopulated     = "UNIQUE_ON_POPULATED"
	CodeLargeTable            = "LARGE_TABLE"
	CodeDropColumnData        = "DROP_COLUMN_DATA"
	CodeDropTableData         = "DROP_TABLE_DATA"
	CodeDropTableReferenced   = "DROP_TABLE_REFERENCED"
	CodeVarcharNarrowing      = "VARCHAR_NARROWING"
	CodeLossyTypeChange       = "LOSSY_TYPE_CHANGE"
	CodeNotNullExistingNulls  = "NOT_NULL_EXISTING_NULLS"
	CodeDestructiveOperation  = "DESTRUCTIVE_OPERATION"
	CodeIrreversibleOperation = "IRREVERSIBLE_OPERATION"
	CodeDialectLimitation     = "DIALECT_LIMITATION"
)

// largeTableThreshold is the row count beyond which schema changes are
// flagged as potentially long-running.
const largeTableThreshold = 100_000

// Issue is one finding against one operation of a migration.
type Issue struct {
	Code           string         `json:"code"`
	Severity       Severity       `json:"severity"`
	Message        string         `json:"message"`
	OperationIndex int            `json:"operation_index"`
	Suggestion     string         `json:"suggestion,omitempty"`
	AutoFix        string         `json:"auto_fix,omitempty"`
	Context        map[string]any `json:"context,omitempty"`
}

// Result aggregates the issues for one migration plus the row counts
// collected at analysis time.
type Result struct {
	Migration string           `json:"migration"`
	Issues    []Issue          `json:"issues"`
	RowCounts map[string]int64 `json:"row_counts"`
}

// CanProceed is false when any issue is ERROR or CRITICAL.
func (r *Result) CanProceed() bool {
	for _, issue := range r.Issues {
		if issue.Severity >= Error {
			return false
		}
	}
	return true
}

// HasWarnings reports whether any issue is WARNING severity.
func (r *Result) HasWarnings() bool {
	for _, issue := range r.Issues {
		if issue.Severity == Warning {
			return true
		}
	}
	return false
}

// Blocking returns the ERROR and CRITICAL issues.
func (r *Result) Blocking() []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity >= Error {
			out = append(out, issue)
		}
	}
	return out
}

// Summary returns a one-line issue count by severity.
func (r *Result) Summary() string {
	counts := map[Severity]int{}
	for _, issue := range r.Issues {
		counts[issue.Severity]++
	}
	if len(r.Issues) == 0 {
		return "no issues"
	}
	var parts []string
	for _, s := range []Severity{Critical, Error, Warning, Info} {
		if counts[s] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[s], s))
		}
	}
	return strings.Join(parts, ", ")
}
