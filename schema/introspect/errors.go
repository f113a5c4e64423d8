package introspect

import "errors"

var (
	// ErrUnsupportedDialect is returned when no introspector exists for a
	// dialect name.
	ErrUnsupportedDialect = errors.New("unsupported dialect for introspection")
	// ErrIntrospectionFailed wraps database errors during state extraction.
	ErrIntrospectionFailed = errors.New("database introspection failed")
)
