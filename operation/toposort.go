package operation

import (
	"fmt"
	"sort"

	"github.com/tectonic-db/tectonic/schema"
)

// sortTablesByDependency orders tables so that every table is preceded by
// the tables its foreign keys reference (Kahn's algorithm). Edges to tables
// outside the input set are ignored: those already exist. On a cycle the
// sort does not deadlock; the cyclic remainder is appended in the original
// order and a warning is returned for each cycle member.
func sortTablesByDependency(tables []schema.TableState) ([]schema.TableState, []string) {
	inSet := make(map[string]int, len(tables))
	for i, t := range tables {
		inSet[t.Name] = i
	}

	// indegree counts unsatisfied references; dependents[parent] lists the
	// tables waiting on it.
	indegree := make(map[string]int, len(tables))
	dependents := make(map[string][]string, len(tables))
	for _, t := range tables {
		indegree[t.Name] += 0
		seen := map[string]bool{}
		for _, fk := range t.ForeignKeys {
			parent := fk.ReferencedTable
			if parent == t.Name || seen[parent] {
				continue // self-references do not order anything
			}
			if _, ok := inSet[parent]; !ok {
				continue
			}
			seen[parent] = true
			indegree[t.Name]++
			dependents[parent] = append(dependents[parent], t.Name)
		}
	}

	ready := make([]string, 0, len(tables))
	for _, t := range tables {
		if indegree[t.Name] == 0 {
			ready = append(ready, t.Name)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)
		next := dependents[name]
		sort.Strings(next)
		for _, dep := range next {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	var warnings []string
	if len(order) < len(tables) {
		// Cycle: emit the stragglers in their original declared order.
		emitted := make(map[string]bool, len(order))
		for _, name := range order {
			emitted[name] = true
		}
		for _, t := range tables {
			if !emitted[t.Name] {
				order = append(order, t.Name)
				warnings = append(warnings,
					fmt.Sprintf("foreign key cycle involving table %s; created in declared order", t.Name))
			}
		}
	}

	sorted := make([]schema.TableState, len(order))
	for i, name := range order {
		sorted[i] = tables[inSet[name]]
	}
	return sorted, warnings
}
