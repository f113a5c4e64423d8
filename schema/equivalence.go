package schema

import "strings"

// equivalenceGroups lists dialect-neutral type families. Two literal type
// strings compare equal when their base types land in the same family.
// This table must stay consistent with the dialect compilers: any type a
// dialect maps X to is listed in X's family.
var equivalenceGroups = [][]string{
	{"INTEGER", "INT", "INT4", "SERIAL", "MEDIUMINT"},
	{"BIGINT", "INT8", "BIGSERIAL"},
	{"SMALLINT", "INT2", "SMALLSERIAL"},
	{"TEXT", "VARCHAR", "CHARACTER VARYING", "CLOB", "LONGTEXT", "MEDIUMTEXT", "CHAR", "CHARACTER"},
	{"TIMESTAMP", "DATETIME", "TIMESTAMP WITH TIME ZONE", "TIMESTAMP WITHOUT TIME ZONE", "TIMESTAMPTZ"},
	{"BOOLEAN", "BOOL", "TINYINT"},
	{"REAL", "FLOAT", "DOUBLE", "DOUBLE PRECISION", "FLOAT8"},
	{"NUMERIC", "DECIMAL"},
	{"BLOB", "BYTEA", "VARBINARY", "LONGBLOB", "BINARY"},
	{"DATE"},
	{"TIME"},
	{"UUID"},
	{"JSON", "JSONB"},
}

var typeFamily = func() map[string]int {
	m := make(map[string]int)
	for i, group := range equivalenceGroups {
		for _, t := range group {
			m[t] = i
		}
	}
	return m
}()

// BaseType strips a parenthesized length/precision suffix and normalizes
// case: "varchar(255)" -> "VARCHAR".
func BaseType(sqlType string) string {
	t := strings.ToUpper(strings.TrimSpace(sqlType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}

// TypeParam returns the parenthesized parameter of a type, if any:
// "VARCHAR(255)" -> "255", true.
func TypeParam(sqlType string) (string, bool) {
	t := strings.TrimSpace(sqlType)
	open := strings.IndexByte(t, '(')
	close := strings.LastIndexByte(t, ')')
	if open < 0 || close <= open {
		return "", false
	}
	return strings.TrimSpace(t[open+1 : close]), true
}

// TypesEquivalent reports whether two dialect-neutral type strings describe
// the same storage type. Literal equality (case-insensitive) always matches;
// otherwise base types must share a family. Parameters are compared only
// when both sides carry one, so VARCHAR(255) is equivalent to TEXT but not
// to VARCHAR(100).
func TypesEquivalent(a, b string) bool {
	if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b)) {
		return true
	}
	baseA, baseB := BaseType(a), BaseType(b)
	pa, okA := TypeParam(a)
	pb, okB := TypeParam(b)
	if okA && okB && pa != pb {
		return false
	}
	if baseA == baseB {
		return true
	}
	famA, inA := typeFamily[baseA]
	famB, inB := typeFamily[baseB]
	return inA && inB && famA == famB
}
