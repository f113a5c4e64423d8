package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tectonic-db/tectonic/analyze"
	"github.com/tectonic-db/tectonic/dialect"
	"github.com/tectonic-db/tectonic/internal/debug"
	"github.com/tectonic-db/tectonic/operation"
	"github.com/tectonic-db/tectonic/schema"
	"github.com/tectonic-db/tectonic/schema/introspect"
)

// Engine drives the whole lifecycle over one connection. It is
// single-connection and single-threaded per invocation: operations within
// one migration run strictly sequentially, and concurrent engines are
// coordinated only by the ledger's uniqueness constraint.
type Engine struct {
	db       *sql.DB
	dialect  dialect.Dialect
	loader   *Loader
	ledger   *Ledger
	analyzer *analyze.Analyzer
	app      string

	// Confirm is consulted when analysis yields WARNING-only results.
	// When nil, warnings refuse the apply unless ConfirmWarnings is set.
	Confirm func(results []*analyze.Result) (bool, error)
}

// NewEngine wires an engine from its parts.
func NewEngine(db *sql.DB, d dialect.Dialect, loader *Loader, app string) *Engine {
	return &Engine{
		db:       db,
		dialect:  d,
		loader:   loader,
		ledger:   NewLedger(db, d),
		analyzer: analyze.New(db, d),
		app:      app,
	}
}

// Dialect returns the engine's dialect compiler.
func (e *Engine) Dialect() dialect.Dialect { return e.dialect }

// Open resolves a database URL to a connection and its dialect. The scheme
// selects the dialect: sqlite, postgres/postgresql, mysql/mariadb.
func Open(rawURL string) (*sql.DB, dialect.Dialect, error) {
	registry := dialect.NewRegistry()
	d, err := dialect.FromURL(registry, rawURL)
	if err != nil {
		return nil, nil, err
	}
	dsn, err := dialect.DSNFromURL(d, rawURL)
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s database: %w", d.Name(), err)
	}
	debug.Debug("opened database", "dialect", d.Name())
	return db, d, nil
}

// DetectChanges diffs the live schema against the desired one. The string
// slice carries non-fatal planning warnings.
func (e *Engine) DetectChanges(ctx context.Context, desired schema.SchemaState) (schema.SchemaDiff, error) {
	live, err := e.liveState(ctx)
	if err != nil {
		return schema.SchemaDiff{}, err
	}
	return schema.Diff(live, desired), nil
}

func (e *Engine) liveState(ctx context.Context) (schema.SchemaState, error) {
	ins, err := introspect.New(e.db, e.dialect.Name())
	if err != nil {
		return schema.SchemaState{}, err
	}
	return ins.Introspect(ctx)
}

// MakeOptions controls migration generation.
type MakeOptions struct {
	Name   string // label appended to the sequence number
	Empty  bool   // write an artifact even when the diff is empty
	DryRun bool   // build the migration but do not write it
}

// MakeMigrations diffs live against desired, plans the operation list, and
// persists a new artifact. Returns ("", nil, nil) when there is nothing to
// migrate and Empty is false. The warnings slice reports planning fallbacks
// such as foreign key cycles.
func (e *Engine) MakeMigrations(ctx context.Context, desired schema.SchemaState, opts MakeOptions) (string, *Migration, []string, error) {
	diff, err := e.DetectChanges(ctx, desired)
	if err != nil {
		return "", nil, nil, err
	}
	if diff.Empty() && !opts.Empty {
		return "", nil, nil, nil
	}

	ops, warnings := operation.FromDiff(diff)
	seq, err := e.loader.NextSequence()
	if err != nil {
		return "", nil, nil, err
	}

	m := &Migration{
		App:        e.app,
		Name:       SequenceName(seq, opts.Name),
		Operations: ops,
	}
	if latest, err := e.loader.Latest(); err != nil {
		return "", nil, nil, err
	} else if latest != nil {
		m.DependsOn = []Dependency{{App: latest.App, Name: latest.Name}}
	}

	if opts.DryRun {
		return "", m, warnings, nil
	}
	path, err := e.loader.Save(m)
	if err != nil {
		return "", nil, nil, err
	}
	return path, m, warnings, nil
}

// ApplyOptions controls Migrate.
type ApplyOptions struct {
	Target          string // apply up to and including this migration
	Fake            bool   // record ledger rows without executing DDL
	DryRun          bool   // analyze and report, touch nothing
	SkipAnalysis    bool   // bypass the pre-apply checker entirely
	ConfirmWarnings bool   // explicit override for non-interactive callers
}

// Migrate applies every pending migration in order. The analyzer runs over
// all of them before the database is touched; any ERROR or CRITICAL issue
// refuses the whole batch. Each migration executes inside its own
// transaction where the dialect supports transactional DDL, and its ledger
// row is written only after all of its operations succeed.
func (e *Engine) Migrate(ctx context.Context, opts ApplyOptions) ([]string, []*analyze.Result, error) {
	if err := e.ledger.Ensure(ctx); err != nil {
		return nil, nil, err
	}
	pending, err := e.pending(ctx, opts.Target)
	if err != nil {
		return nil, nil, err
	}
	if len(pending) == 0 {
		return nil, nil, nil
	}

	var results []*analyze.Result
	if !opts.SkipAnalysis {
		results, err = e.analyzeAll(ctx, pending)
		if err != nil {
			return nil, nil, err
		}
		for _, r := range results {
			if !r.CanProceed() {
				return nil, results, &AnalysisBlockedError{Results: results}
			}
		}
		if warned(results) && !opts.ConfirmWarnings {
			if e.Confirm == nil {
				return nil, results, ErrConfirmationRequired
			}
			ok, err := e.Confirm(results)
			if err != nil {
				return nil, results, err
			}
			if !ok {
				return nil, results, ErrConfirmationRequired
			}
		}
	}

	if opts.DryRun {
		return names(pending), results, nil
	}

	var applied []string
	for _, m := range pending {
		recorded, err := e.applyOne(ctx, m, opts.Fake)
		if err != nil {
			return applied, results, err
		}
		if recorded {
			applied = append(applied, m.Name)
		}
	}
	return applied, results, nil
}

// applyOne runs one migration's operations and records its ledger row.
// Returns false when another engine recorded the row first.
func (e *Engine) applyOne(ctx context.Context, m *Migration, fake bool) (bool, error) {
	fingerprint, err := m.Fingerprint()
	if err != nil {
		return false, err
	}

	start := time.Now()
	transactional := e.dialect.Capabilities().TransactionalDDL
	debug.Debug("applying migration", "name", m.Name, "operations", len(m.Operations), "transactional", transactional, "fake", fake)

	if fake {
		return e.ledger.Insert(ctx, e.db, m.App, m.Name, fingerprint, 0)
	}

	if transactional {
		tx, err := e.db.BeginTx(ctx, nil)
		if err != nil {
			return false, fmt.Errorf("failed to begin transaction for %s: %w", m.Name, err)
		}
		for i, op := range m.Operations {
			if err := operation.Apply(ctx, tx, e.dialect, op); err != nil {
				tx.Rollback()
				return false, &PartialApplyError{Migration: m.Name, OperationIndex: i, RolledBack: true, Err: err}
			}
		}
		recorded, err := e.ledger.Insert(ctx, tx, m.App, m.Name, fingerprint, time.Since(start))
		if err != nil {
			tx.Rollback()
			return false, err
		}
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("failed to commit %s: %w", m.Name, err)
		}
		return recorded, nil
	}

	// No transactional DDL: a failure mid-migration leaves the earlier
	// operations in place, and the error says which index broke.
	for i, op := range m.Operations {
		if err := operation.Apply(ctx, e.db, e.dialect, op); err != nil {
			return false, &PartialApplyError{Migration: m.Name, OperationIndex: i, Err: err}
		}
	}
	return e.ledger.Insert(ctx, e.db, m.App, m.Name, fingerprint, time.Since(start))
}

// RollbackOptions controls Rollback.
type RollbackOptions struct {
	Target string // roll back everything applied after this migration
	Fake   bool   // remove ledger rows without executing DDL
	DryRun bool   // report what would be reverted, touch nothing
}

// Rollback inverts applied migrations in reverse-application order. With no
// target it reverts only the most recent one; with a target it reverts
// everything applied after the target, leaving the target in place.
// Reversibility and fingerprints are verified across the whole batch before
// anything executes.
func (e *Engine) Rollback(ctx context.Context, opts RollbackOptions) ([]string, error) {
	if err := e.ledger.Ensure(ctx); err != nil {
		return nil, err
	}
	records, err := e.ledger.Applied(ctx)
	if err != nil {
		return nil, err
	}

	var batch []Record
	if opts.Target == "" {
		if len(records) == 0 {
			return nil, nil
		}
		batch = records[len(records)-1:]
	} else {
		cut := -1
		for i, r := range records {
			if r.Name == opts.Target {
				cut = i
				break
			}
		}
		if cut < 0 {
			return nil, fmt.Errorf("target migration %s is not applied", opts.Target)
		}
		batch = records[cut+1:]
	}
	if len(batch) == 0 {
		return nil, nil
	}

	// Reverse order, newest first.
	migrations := make([]*Migration, len(batch))
	for i := range batch {
		r := batch[len(batch)-1-i]
		m, err := e.loader.Load(r.Name)
		if err != nil {
			return nil, err
		}
		fingerprint, err := m.Fingerprint()
		if err != nil {
			return nil, err
		}
		if r.Fingerprint != "" && fingerprint != r.Fingerprint {
			return nil, &FingerprintMismatchError{Migration: m.Name, Recorded: r.Fingerprint, Computed: fingerprint}
		}
		if !m.IsReversible() {
			return nil, &IrreversibleError{Migration: m.Name, Operation: firstIrreversible(m)}
		}
		migrations[i] = m
	}

	if opts.DryRun {
		return names(migrations), nil
	}

	var reverted []string
	for _, m := range migrations {
		if err := e.revertOne(ctx, m, opts.Fake); err != nil {
			return reverted, err
		}
		reverted = append(reverted, m.Name)
	}
	return reverted, nil
}

func (e *Engine) revertOne(ctx context.Context, m *Migration, fake bool) error {
	debug.Debug("reverting migration", "name", m.Name, "operations", len(m.Operations), "fake", fake)
	if fake {
		return e.ledger.Remove(ctx, e.db, m.App, m.Name)
	}

	if e.dialect.Capabilities().TransactionalDDL {
		tx, err := e.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for %s: %w", m.Name, err)
		}
		for i := len(m.Operations) - 1; i >= 0; i-- {
			if err := operation.Revert(ctx, tx, e.dialect, m.Operations[i]); err != nil {
				tx.Rollback()
				return &PartialApplyError{Migration: m.Name, OperationIndex: i, RolledBack: true, Err: err}
			}
		}
		if err := e.ledger.Remove(ctx, tx, m.App, m.Name); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit rollback of %s: %w", m.Name, err)
		}
		return nil
	}

	for i := len(m.Operations) - 1; i >= 0; i-- {
		if err := operation.Revert(ctx, e.db, e.dialect, m.Operations[i]); err != nil {
			return &PartialApplyError{Migration: m.Name, OperationIndex: i, Err: err}
		}
	}
	return e.ledger.Remove(ctx, e.db, m.App, m.Name)
}

// Status pairs a migration on disk with its ledger state.
type Status struct {
	Name        string
	Applied     bool
	AppliedAt   time.Time
	Destructive bool
	Reversible  bool
}

// ShowMigrations lists every migration on disk with its applied state, in
// sequence order. Ledger rows without a matching artifact are appended at
// the end so orphans stay visible.
func (e *Engine) ShowMigrations(ctx context.Context) ([]Status, error) {
	if err := e.ledger.Ensure(ctx); err != nil {
		return nil, err
	}
	all, err := e.loader.List()
	if err != nil {
		return nil, err
	}
	records, err := e.ledger.Applied(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]Record, len(records))
	for _, r := range records {
		byName[r.Name] = r
	}

	statuses := make([]Status, 0, len(all))
	seen := map[string]bool{}
	for _, m := range all {
		s := Status{
			Name:        m.Name,
			Destructive: m.HasDestructive(),
			Reversible:  m.IsReversible(),
		}
		if r, ok := byName[m.Name]; ok {
			s.Applied = true
			s.AppliedAt = r.AppliedAt
		}
		seen[m.Name] = true
		statuses = append(statuses, s)
	}
	for _, r := range records {
		if !seen[r.Name] {
			statuses = append(statuses, Status{Name: r.Name, Applied: true, AppliedAt: r.AppliedAt})
		}
	}
	return statuses, nil
}

// pending returns the on-disk migrations without a ledger row, in sequence
// order, optionally bounded by target (inclusive).
func (e *Engine) pending(ctx context.Context, target string) ([]*Migration, error) {
	all, err := e.loader.List()
	if err != nil {
		return nil, err
	}
	records, err := e.ledger.Applied(ctx)
	if err != nil {
		return nil, err
	}
	applied := make(map[string]bool, len(records))
	for _, r := range records {
		applied[r.Name] = true
	}

	var pending []*Migration
	found := false
	for _, m := range all {
		if !applied[m.Name] {
			pending = append(pending, m)
		}
		if target != "" && m.Name == target {
			found = true
			break
		}
	}
	if target != "" && !found {
		return nil, fmt.Errorf("target migration %s does not exist", target)
	}
	return pending, nil
}

func (e *Engine) analyzeAll(ctx context.Context, migrations []*Migration) ([]*analyze.Result, error) {
	results := make([]*analyze.Result, len(migrations))
	for i, m := range migrations {
		r, err := e.analyzer.Analyze(ctx, m.Name, m.Operations)
		if err != nil {
			return nil, err
		}
		results[i] = r
	}
	return results, nil
}

func warned(results []*analyze.Result) bool {
	for _, r := range results {
		if r.HasWarnings() {
			return true
		}
	}
	return false
}

func names(migrations []*Migration) []string {
	out := make([]string, len(migrations))
	for i, m := range migrations {
		out[i] = m.Name
	}
	return out
}

func firstIrreversible(m *Migration) string {
	for _, op := range m.Operations {
		if !op.Reversible() {
			return op.Describe()
		}
	}
	return "unknown operation"
}
