// Package dialect compiles dialect-neutral column and type descriptions
// into DDL fragments for SQLite, PostgreSQL and MySQL. Compilers are pure:
// they render SQL text and never touch a connection.
package dialect

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/tectonic-db/tectonic/schema"
)

// ErrUnknownDialect is returned when no compiler is registered for a
// requested dialect name. Lookup failures are fatal at startup; nothing
// silently defaults.
var ErrUnknownDialect = errors.New("unknown dialect")

// Capabilities declares what a dialect's DDL can express. The engine and
// analyzer consult these before choosing a strategy.
type Capabilities struct {
	SupportsAlterColumn   bool
	SupportsDropColumn    bool
	SupportsAddConstraint bool
	SupportsEnum          bool
	TransactionalDDL      bool
}

// Dialect translates abstract column and type descriptions into
// dialect-correct DDL fragments.
type Dialect interface {
	// Name is the canonical dialect name: "sqlite", "postgres" or "mysql".
	Name() string

	// DriverName is the database/sql driver to open connections with.
	DriverName() string

	Capabilities() Capabilities

	// MapType translates a dialect-neutral type into this dialect's type.
	MapType(genericType string) string

	// ShouldAutoIncrement reports whether genericType can auto-increment.
	ShouldAutoIncrement(genericType string) bool

	// AutoIncrementClause returns the keyword appended to an
	// auto-incrementing column definition, if this dialect uses one.
	AutoIncrementClause(genericType string) (string, bool)

	// ResolveAutoIncrementType rewrites the column type for dialects that
	// encode auto-increment as a distinct type (PostgreSQL SERIAL).
	ResolveAutoIncrementType(genericType string) string

	// FormatDefault renders a default value as a DDL fragment. The second
	// return is false when the dialect cannot express the default.
	FormatDefault(def *schema.DefaultValue) (string, bool)

	// ColumnSQL renders a full column definition for CREATE TABLE or
	// ADD COLUMN.
	ColumnSQL(col schema.ColumnState) string

	// QuoteIdent quotes a table or column identifier.
	QuoteIdent(name string) string

	// LedgerTableDDL returns the CREATE TABLE statement for the applied-
	// migration ledger.
	LedgerTableDDL(name string) string

	// ListTablesSQL returns a query yielding one table name per row.
	ListTablesSQL() string

	// ForeignKeyReferrersSQL returns a query counting live foreign keys
	// that reference the given table, when the dialect can answer that.
	ForeignKeyReferrersSQL(table string) (string, bool)

	// Placeholder returns the bind placeholder for 1-based position n.
	Placeholder(n int) string
}

// Registry holds the dialect compilers available to an engine. It is an
// explicit value populated at construction, passed by reference, never
// ambient state.
type Registry struct {
	dialects map[string]Dialect
}

// NewRegistry returns a registry populated with the three built-in
// dialects.
func NewRegistry() *Registry {
	r := &Registry{dialects: map[string]Dialect{}}
	r.Register(NewSQLite())
	r.Register(NewPostgres())
	r.Register(NewMySQL())
	return r
}

// Register adds or replaces a dialect under its canonical name.
func (r *Registry) Register(d Dialect) {
	r.dialects[d.Name()] = d
}

// Get looks up a dialect by name, accepting the common aliases.
func (r *Registry) Get(name string) (Dialect, error) {
	canonical, err := CanonicalName(name)
	if err != nil {
		return nil, err
	}
	d, ok := r.dialects[canonical]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDialect, name)
	}
	return d, nil
}

// Names returns the registered dialect names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.dialects))
	for name := range r.dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CanonicalName maps a dialect name or alias to its canonical form.
func CanonicalName(name string) (string, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return "sqlite", nil
	case "postgres", "postgresql":
		return "postgres", nil
	case "mysql", "mariadb":
		return "mysql", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownDialect, name)
	}
}

// FromURL detects the dialect from a connection URL scheme.
func FromURL(r *Registry, rawURL string) (Dialect, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: database URL %q has no scheme", ErrUnknownDialect, rawURL)
	}
	return r.Get(u.Scheme)
}

// DSNFromURL converts a connection URL into the string the dialect's
// driver expects.
func DSNFromURL(d Dialect, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid database URL: %w", err)
	}
	switch d.Name() {
	case "sqlite":
		// sqlite://path/to.db or sqlite://:memory:
		dsn := strings.TrimPrefix(rawURL, u.Scheme+"://")
		if dsn == "" {
			dsn = ":memory:"
		}
		return dsn, nil
	case "mysql":
		// go-sql-driver wants user:pass@tcp(host:port)/db
		dsn := ""
		if u.User != nil {
			dsn = u.User.String() + "@"
		}
		dsn += fmt.Sprintf("tcp(%s)%s", u.Host, u.Path)
		if u.RawQuery != "" {
			dsn += "?" + u.RawQuery
		}
		return dsn, nil
	default:
		// lib/pq accepts the URL form directly.
		return rawURL, nil
	}
}
