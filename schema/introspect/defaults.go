package introspect

import (
	"strings"

	"github.com/tectonic-db/tectonic/schema"
)

// parseDefault maps a raw column default from the catalog back to the
// engine's default representation. Current-timestamp and UUID expressions
// fold to their symbolic forms so states extracted from different dialects
// compare equal.
func parseDefault(raw string) *schema.DefaultValue {
	trimmed := strings.TrimSpace(raw)
	upper := strings.ToUpper(trimmed)

	switch {
	case upper == "CURRENT_TIMESTAMP",
		strings.HasPrefix(upper, "CURRENT_TIMESTAMP("),
		strings.HasPrefix(upper, "NOW()"):
		return schema.Now()
	case strings.HasPrefix(upper, "GEN_RANDOM_UUID"),
		strings.HasPrefix(upper, "UUID()"),
		strings.HasPrefix(upper, "(UUID())"):
		return schema.UUID()
	}

	// Postgres appends a cast to column defaults: 'x'::character varying.
	if i := strings.Index(trimmed, "::"); i >= 0 {
		trimmed = trimmed[:i]
	}
	trimmed = strings.Trim(trimmed, "'")
	if trimmed == "" {
		return nil
	}
	return schema.Literal(trimmed)
}

// normalizeAction canonicalizes referential actions: NO ACTION, the
// catalogs' spelling of "nothing declared", collapses to empty.
func normalizeAction(action string) string {
	a := strings.ToUpper(strings.TrimSpace(action))
	if a == "" || a == "NO ACTION" {
		return ""
	}
	return a
}
