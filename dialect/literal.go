package dialect

import (
	"strconv"
	"strings"
)

// formatLiteral renders a literal default: numerics and booleans pass
// through bare, everything else is single-quoted.
func formatLiteral(v string) string {
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return v
	}
	switch strings.ToUpper(v) {
	case "TRUE", "FALSE", "NULL":
		return strings.ToUpper(v)
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
