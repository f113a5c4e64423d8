package migrate

import (
	"fmt"

	"github.com/tectonic-db/tectonic/operation"
)

// Squash concatenates the operations of a contiguous migration range into
// one new artifact, cancelling create/drop pairs. Sequence numbers are
// 1-based and inclusive. The squashed artifact depends on the migration
// preceding the range; the originals are left on disk for the caller to
// archive.
func (e *Engine) Squash(start, end int, name string) (string, *Migration, error) {
	if start < 1 || end < start {
		return "", nil, fmt.Errorf("invalid squash range %d..%d", start, end)
	}
	all, err := e.loader.List()
	if err != nil {
		return "", nil, err
	}
	if end > len(all) {
		return "", nil, fmt.Errorf("squash range %d..%d exceeds %d migrations on disk", start, end, len(all))
	}

	var ops []operation.Operation
	for _, m := range all[start-1 : end] {
		ops = append(ops, m.Operations...)
	}
	ops = squashOperations(ops)

	if name == "" {
		name = fmt.Sprintf("squashed_%s_%s", all[start-1].Name, all[end-1].Name)
	}
	seq, err := e.loader.NextSequence()
	if err != nil {
		return "", nil, err
	}
	squashed := &Migration{
		App:        e.app,
		Name:       SequenceName(seq, name),
		Operations: ops,
	}
	if start > 1 {
		prev := all[start-2]
		squashed.DependsOn = []Dependency{{App: prev.App, Name: prev.Name}}
	}

	path, err := e.loader.Save(squashed)
	if err != nil {
		return "", nil, err
	}
	return path, squashed, nil
}

// squashOperations removes create/drop pairs: a table created and later
// dropped within the range disappears along with every operation on it in
// between. Pairing is positional, so a table re-created after its drop
// survives, and a DropTable for a table never created inside the range
// survives unchanged.
func squashOperations(ops []operation.Operation) []operation.Operation {
	cancelled := make([]bool, len(ops))
	open := map[string]int{}
	any := false
	for i, op := range ops {
		switch o := op.(type) {
		case *operation.CreateTable:
			open[o.Table.Name] = i
		case *operation.DropTable:
			start, ok := open[o.Table.Name]
			if !ok {
				continue
			}
			delete(open, o.Table.Name)
			for j := start; j <= i; j++ {
				if table, targets := targetTable(ops[j]); targets && table == o.Table.Name {
					cancelled[j] = true
					any = true
				}
			}
		}
	}
	if !any {
		return ops
	}

	out := make([]operation.Operation, 0, len(ops))
	for i, op := range ops {
		if cancelled[i] {
			continue
		}
		out = append(out, op)
	}
	return out
}

// targetTable names the table an operation acts on, when it acts on one.
func targetTable(op operation.Operation) (string, bool) {
	switch o := op.(type) {
	case *operation.CreateTable:
		return o.Table.Name, true
	case *operation.DropTable:
		return o.Table.Name, true
	case *operation.AddColumn:
		return o.Table, true
	case *operation.DropColumn:
		return o.Table, true
	case *operation.AlterColumn:
		return o.Table, true
	case *operation.CreateIndex:
		return o.Table, true
	case *operation.DropIndex:
		return o.Table, true
	case *operation.AddForeignKey:
		return o.Table, true
	case *operation.DropForeignKey:
		return o.Table, true
	default:
		return "", false
	}
}
