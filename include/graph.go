package include

import (
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"
	"github.com/maruel/natural"
	"go.uber.org/multierr"
)

// buildGraph validates every include reference against the registered set and
// constructs the directed dependency graph. An edge goes from the including
// source to the source it includes. All unresolved references are collected
// before failing so one run reports the full damage.
func buildGraph(scans map[string]scanResult) (graph.Graph[string, string], error) {
	var missing error
	for _, name := range sortedNames(scans) {
		for ref := range scans[name].includes {
			if _, ok := scans[ref]; !ok {
				missing = multierr.Append(missing, &MissingDependencyError{Name: ref, From: name})
			}
		}
	}
	if missing != nil {
		return nil, missing
	}

	g := graph.New(graph.StringHash, graph.Directed())
	for name := range scans {
		if err := g.AddVertex(name); err != nil {
			return nil, fmt.Errorf("unable to add source %q to dependency graph: %w", name, err)
		}
	}
	for name, sc := range scans {
		for ref := range sc.includes {
			if err := g.AddEdge(name, ref); err != nil {
				return nil, fmt.Errorf("unable to link %q -> %q: %w", name, ref, err)
			}
		}
	}
	return g, nil
}

// topoOrder produces a dependencies-first total order over all sources using
// Kahn's algorithm. The in-degree of a source is the number of distinct
// sources including it; the single source with in-degree zero is the root and
// ends up last in the returned order.
func topoOrder(g graph.Graph[string, string]) ([]string, error) {
	adjacency, err := g.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("unable to read dependency graph: %w", err)
	}
	predecessors, err := g.PredecessorMap()
	if err != nil {
		return nil, fmt.Errorf("unable to read dependency graph: %w", err)
	}

	inDegrees := make(map[string]int, len(predecessors))
	var frontier []string
	for name, preds := range predecessors {
		inDegrees[name] = len(preds)
		if len(preds) == 0 {
			frontier = append(frontier, name)
		}
	}
	if len(frontier) != 1 {
		sort.Sort(natural.StringSlice(frontier))
		return nil, &AmbiguousRootError{Roots: frontier}
	}

	// Siblings in the frontier are picked in natural order. The partial
	// order alone already fixes the content of every substitution, but a
	// deterministic tie-break keeps repeated merges byte-identical.
	order := make([]string, 0, len(inDegrees))
	for len(frontier) > 0 {
		sort.Sort(natural.StringSlice(frontier))
		name := frontier[0]
		frontier = frontier[1:]
		order = append(order, name)
		for included := range adjacency[name] {
			inDegrees[included]--
			if inDegrees[included] == 0 {
				frontier = append(frontier, included)
			}
		}
	}

	if len(order) != len(inDegrees) {
		var trapped []string
		for name, deg := range inDegrees {
			if deg != 0 {
				trapped = append(trapped, name)
			}
		}
		sort.Sort(natural.StringSlice(trapped))
		return nil, &CyclicDependencyError{Names: trapped}
	}

	// Root first is how Kahn hands the order out, dependents before
	// dependencies. Substitution needs the opposite.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

// sortedNames returns the registered names in natural order, keeping
// validation reports deterministic.
func sortedNames(scans map[string]scanResult) []string {
	names := make([]string, 0, len(scans))
	for name := range scans {
		names = append(names, name)
	}
	sort.Sort(natural.StringSlice(names))
	return names
}
