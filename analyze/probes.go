package analyze

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/tectonic-db/tectonic/schema"
)

// Probes are read-only counting queries against the live database. Every
// probe distinguishes "table absent" from "zero rows": a missing table is
// not an analysis failure, it just means no data is at risk.

func (a *Analyzer) rowCount(ctx context.Context, table string) (int64, bool, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", a.d.QuoteIdent(table))
	return a.count(ctx, query)
}

func (a *Analyzer) nonNullCount(ctx context.Context, table, column string) (int64, bool, error) {
	query := fmt.Sprintf("SELECT COUNT(%s) FROM %s", a.d.QuoteIdent(column), a.d.QuoteIdent(table))
	return a.count(ctx, query)
}

func (a *Analyzer) nullCount(ctx context.Context, table, column string) (int64, bool, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s IS NULL",
		a.d.QuoteIdent(table), a.d.QuoteIdent(column))
	return a.count(ctx, query)
}

func (a *Analyzer) overLengthCount(ctx context.Context, table, column string, limit int) (int64, bool, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE LENGTH(%s) > %d",
		a.d.QuoteIdent(table), a.d.QuoteIdent(column), limit)
	return a.count(ctx, query)
}

func (a *Analyzer) duplicateCount(ctx context.Context, table, column string) (int64, bool, error) {
	col := a.d.QuoteIdent(column)
	query := fmt.Sprintf(
		"SELECT COUNT(*) FROM (SELECT %s FROM %s WHERE %s IS NOT NULL GROUP BY %s HAVING COUNT(*) > 1) AS dupes",
		col, a.d.QuoteIdent(table), col, col)
	return a.count(ctx, query)
}

func (a *Analyzer) count(ctx context.Context, query string) (int64, bool, error) {
	var n int64
	if err := a.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		if tableMissing(err) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return n, true, nil
}

// tableMissing matches the "no such table" class of errors across the three
// supported drivers by message, since each driver wraps them differently.
func tableMissing(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table") || // sqlite
		strings.Contains(msg, "does not exist") || // postgres
		strings.Contains(msg, "doesn't exist") // mysql
}

// varcharNarrowing reports whether a type change shrinks a sized character
// column, along with both lengths.
func varcharNarrowing(oldType, newType string) (oldLen, newLen int, narrowing bool) {
	if !isSizedChar(oldType) || !isSizedChar(newType) {
		return 0, 0, false
	}
	oldParam, okOld := schema.TypeParam(oldType)
	newParam, okNew := schema.TypeParam(newType)
	if !okOld || !okNew {
		return 0, 0, false
	}
	oldLen, errOld := strconv.Atoi(oldParam)
	newLen, errNew := strconv.Atoi(newParam)
	if errOld != nil || errNew != nil {
		return 0, 0, false
	}
	return oldLen, newLen, newLen < oldLen
}

func isSizedChar(sqlType string) bool {
	switch schema.BaseType(sqlType) {
	case "VARCHAR", "CHAR", "CHARACTER", "CHARACTER VARYING":
		return true
	}
	return false
}

// lossyTypeChange reports whether converting between two type families can
// silently lose information, such as TEXT to INTEGER or BIGINT to INTEGER.
func lossyTypeChange(oldType, newType string) bool {
	if schema.TypesEquivalent(oldType, newType) {
		return false
	}
	oldBase, newBase := schema.BaseType(oldType), schema.BaseType(newType)
	if rank, ok := numericRank[oldBase]; ok {
		if newRank, ok := numericRank[newBase]; ok {
			return newRank < rank
		}
	}
	// Crossing families is lossy whenever the target is narrower than
	// free-form text.
	if charFamily(oldBase) && !charFamily(newBase) {
		return true
	}
	return !charFamily(newBase)
}

var numericRank = map[string]int{
	"SMALLINT": 1, "INT2": 1, "SMALLSERIAL": 1,
	"INTEGER": 2, "INT": 2, "INT4": 2, "SERIAL": 2, "MEDIUMINT": 2,
	"BIGINT": 3, "INT8": 3, "BIGSERIAL": 3,
	"REAL": 4, "FLOAT": 4,
	"DOUBLE": 5, "DOUBLE PRECISION": 5, "FLOAT8": 5,
	"NUMERIC": 6, "DECIMAL": 6,
}

func charFamily(base string) bool {
	switch base {
	case "TEXT", "VARCHAR", "CHAR", "CHARACTER", "CHARACTER VARYING", "CLOB", "LONGTEXT", "MEDIUMTEXT":
		return true
	}
	return false
}
