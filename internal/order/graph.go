package order

import (
	"cmp"
	"slices"

	"github.com/whitphx/tlanislide/internal/ir"
)

// precedenceGraph is a directed graph over cues addressed by sorted rank.
// An edge u → v means cue u must come before cue v.
type precedenceGraph struct {
	succ     [][]int
	indegree []int
}

func newPrecedenceGraph(n int) *precedenceGraph {
	return &precedenceGraph{
		succ:     make([][]int, n),
		indegree: make([]int, n),
	}
}

// addEdge records that rank from precedes rank to.
func (g *precedenceGraph) addEdge(from, to int) {
	g.succ[from] = append(g.succ[from], to)
	g.indegree[to]++
}

// addRunEdges links every rank in [fromLo, fromHi) to every rank in
// [toLo, toHi). The successor list is shared between the ranks of the first
// run, so a run of width w costs one slice rather than w copies.
func (g *precedenceGraph) addRunEdges(fromLo, fromHi, toLo, toHi int) {
	next := make([]int, 0, toHi-toLo)
	for v := toLo; v < toHi; v++ {
		next = append(next, v)
		g.indegree[v] += fromHi - fromLo
	}
	for u := fromLo; u < fromHi; u++ {
		g.succ[u] = next
	}
}

// buildPrecedence derives the precedence relation for cues already sorted by
// GlobalIndex: a precedes b iff a.GlobalIndex < b.GlobalIndex.
//
// Only edges between consecutive runs of equal index are stored. Every other
// pair of the relation follows by transitivity, so both graphs have the same
// topological orders.
func buildPrecedence[T any](sorted []ir.Item[T]) *precedenceGraph {
	g := newPrecedenceGraph(len(sorted))

	runs := equalIndexRuns(sorted)
	for k := 0; k+1 < len(runs); k++ {
		g.addRunEdges(runs[k][0], runs[k][1], runs[k+1][0], runs[k+1][1])
	}
	return g
}

// equalIndexRuns returns [lo, hi) rank bounds of maximal runs of cues with
// the same GlobalIndex.
func equalIndexRuns[T any](sorted []ir.Item[T]) [][2]int {
	var runs [][2]int
	lo := 0
	for i := 1; i <= len(sorted); i++ {
		if i == len(sorted) || sorted[i].GlobalIndex != sorted[lo].GlobalIndex {
			runs = append(runs, [2]int{lo, i})
			lo = i
		}
	}
	return runs
}

// topoSort orders the ranks with Kahn's algorithm.
//
// Ready ranks are released in ascending order, so an acyclic graph built by
// buildPrecedence yields exactly the sorted order. If some ranks are never
// released the graph has a cycle; they are returned as unresolved and the
// order is nil.
func (g *precedenceGraph) topoSort() (order []int, unresolved []int) {
	n := len(g.indegree)
	indegree := slices.Clone(g.indegree)

	queue := make([]int, 0, n)
	for v := 0; v < n; v++ {
		if indegree[v] == 0 {
			queue = append(queue, v)
		}
	}

	order = make([]int, 0, n)
	for head := 0; head < len(queue); head++ {
		v := queue[head]
		order = append(order, v)
		for _, w := range g.succ[v] {
			indegree[w]--
			if indegree[w] == 0 {
				queue = append(queue, w)
			}
		}
	}

	if len(order) == n {
		return order, nil
	}

	for v := 0; v < n; v++ {
		if indegree[v] > 0 {
			unresolved = append(unresolved, v)
		}
	}
	return nil, unresolved
}

// sortByIndex returns a stable copy of items sorted by GlobalIndex.
// Cues with equal index keep their input order.
func sortByIndex[T any](items []ir.Item[T]) []ir.Item[T] {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b ir.Item[T]) int {
		return cmp.Compare(a.GlobalIndex, b.GlobalIndex)
	})
	return sorted
}
