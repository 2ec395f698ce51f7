package lower

import (
	"plasma/internal/core"
)

// computeSCCs runs Tarjan's algorithm over the call graph and returns
// the strongly connected components in dependency order: callees before
// callers. Tarjan emits a component only once every component it can
// reach has been emitted, which is exactly the order the inference
// passes need.
func computeSCCs(c *core.Core) [][]core.FuncID {
	ids := c.FuncIDs()
	edges := make(map[core.FuncID][]core.FuncID, len(ids))
	for _, id := range ids {
		f := c.MustFunction(id)
		if !f.HasBody() {
			continue
		}
		seen := make(map[core.FuncID]bool)
		core.WalkExpr(f.Body.Expr, func(e *core.Expr) {
			if call, ok := e.Data.(core.CallData); ok && !seen[call.Func] {
				seen[call.Func] = true
				edges[id] = append(edges[id], call.Func)
			}
		})
	}

	t := &tarjan{
		edges:   edges,
		index:   make(map[core.FuncID]int, len(ids)),
		lowlink: make(map[core.FuncID]int, len(ids)),
		onStack: make(map[core.FuncID]bool, len(ids)),
	}
	for _, id := range ids {
		if _, visited := t.index[id]; !visited {
			t.strongConnect(id)
		}
	}
	return t.sccs
}

type tarjan struct {
	edges   map[core.FuncID][]core.FuncID
	index   map[core.FuncID]int
	lowlink map[core.FuncID]int
	onStack map[core.FuncID]bool
	stack   []core.FuncID
	next    int
	sccs    [][]core.FuncID
}

func (t *tarjan) strongConnect(v core.FuncID) {
	t.index[v] = t.next
	t.lowlink[v] = t.next
	t.next++
	t.stack = append(t.stack, v)
	t.onStack[v] = true

	for _, w := range t.edges[v] {
		if _, visited := t.index[w]; !visited {
			t.strongConnect(w)
			if t.lowlink[w] < t.lowlink[v] {
				t.lowlink[v] = t.lowlink[w]
			}
		} else if t.onStack[w] && t.index[w] < t.lowlink[v] {
			t.lowlink[v] = t.index[w]
		}
	}

	if t.lowlink[v] == t.index[v] {
		var scc []core.FuncID
		for {
			n := len(t.stack) - 1
			w := t.stack[n]
			t.stack = t.stack[:n]
			t.onStack[w] = false
			scc = append(scc, w)
			if w == v {
				break
			}
		}
		t.sccs = append(t.sccs, scc)
	}
}
