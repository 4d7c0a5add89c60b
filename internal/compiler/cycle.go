package compiler

import (
	"slices"

	"github.com/roach88/scenecast/internal/markup"
	"github.com/roach88/scenecast/internal/timeexpr"
)

// dependencyGraph maps scene id → scene ids its timing references.
type dependencyGraph map[string][]string

// buildDependencyGraph collects the static references of every time
// expression below each pending scene. Cue references point at the cue's
// owning scene, except references to the scene's own cues; prev/next point
// at the sibling scene. A scene without a start depends on its predecessor.
//
// The graph is only built after the fixed-point loop stalls, to explain the
// failure; resolution itself never needs it.
func (r *resolver) buildDependencyGraph(pending []int) dependencyGraph {
	graph := make(dependencyGraph)
	for _, i := range pending {
		sc := r.scenes[i]
		id := sc.ID()
		deps := []string{}

		if _, ok := sc.Attr("start"); !ok && i > 0 {
			deps = append(deps, r.scenes[i-1].ID())
		}

		sc.Walk(func(el, _ *markup.Element) bool {
			for _, name := range timeAttrsOf(el.Tag) {
				raw, ok := el.Attr(name)
				if !ok {
					continue
				}
				expr, err := timeexpr.Parse(raw)
				if err != nil {
					continue
				}
				for _, ref := range timeexpr.Refs(expr) {
					dep, ok := r.refScene(i, ref)
					// Cues of the same scene settle inside one attempt.
					if !ok || (ref.Kind == timeexpr.RefCue && dep == id) {
						continue
					}
					deps = append(deps, dep)
				}
			}
			return true
		})

		slices.Sort(deps)
		graph[id] = slices.Compact(deps)
	}

	// Restrict edges to pending scenes; resolved targets cannot block.
	for id, deps := range graph {
		graph[id] = slices.DeleteFunc(deps, func(d string) bool {
			_, pendingDep := graph[d]
			return !pendingDep
		})
	}
	return graph
}

// refScene maps a reference made from scene i to the scene it depends on.
func (r *resolver) refScene(i int, ref timeexpr.Ref) (string, bool) {
	switch ref.Kind {
	case timeexpr.RefScene:
		return ref.ID, true
	case timeexpr.RefCue:
		owner, ok := r.cueOwner[ref.ID]
		return owner, ok
	case timeexpr.RefPrev:
		if i > 0 {
			return r.scenes[i-1].ID(), true
		}
	case timeexpr.RefNext:
		if i+1 < len(r.scenes) {
			return r.scenes[i+1].ID(), true
		}
	}
	return "", false
}

// findCycle returns one reference cycle in graph, starting and ending with
// the same id, or nil. order fixes the iteration order for determinism.
func findCycle(graph dependencyGraph, order []string) []string {
	for _, scc := range tarjanSCC(graph, order) {
		if len(scc) > 1 {
			return reconstructCyclePath(scc, graph)
		}
		if len(scc) == 1 && hasSelfLoop(scc[0], graph) {
			return []string{scc[0], scc[0]}
		}
	}
	return nil
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, where each SCC is a list of scene ids in the order
// they were popped. Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph dependencyGraph, order []string) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and emit an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, inGraph := graph[node]; !inGraph {
			continue
		}
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

// reconstructCyclePath walks edges inside an SCC from its smallest id until
// it returns to the start.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := slices.Min(scc)
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
