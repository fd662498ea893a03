package btg

import (
	"container/heap"
	"fmt"
)

type uint32MinHeap []uint32

func (h uint32MinHeap) Len() int           { return len(h) }
func (h uint32MinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h uint32MinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *uint32MinHeap) Push(x any)        { *h = append(*h, x.(uint32)) }
func (h *uint32MinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topoOrderIndices returns a deterministic topological ordering of task
// indices using Kahn's algorithm. If the graph is cyclic the returned order
// is shorter than the task count.
//
// Determinism: the ready queue is a min-heap by task index.
func (g *Graph) topoOrderIndices() []uint32 {
	indeg := make([]int, len(g.tasks))
	for i := range g.incoming {
		indeg[i] = len(g.incoming[i])
	}

	ready := &uint32MinHeap{}
	heap.Init(ready)
	for i := range indeg {
		if indeg[i] == 0 {
			heap.Push(ready, uint32(i))
		}
	}

	out := make([]uint32, 0, len(indeg))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(uint32)
		out = append(out, n)
		for _, m := range g.outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	return out
}

// findCycleDeterministic performs a deterministic DFS over task indices to
// extract one cycle path for error reporting.
//
// It does not attempt to list all cycles; it returns a single stable witness.
func (g *Graph) findCycleDeterministic() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make([]int, len(g.tasks))
	parent := make([]int, len(g.tasks))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []uint32

	var dfs func(u uint32) bool
	dfs = func(u uint32) bool {
		color[u] = gray
		for _, v := range g.outgoing[u] { // already sorted
			if color[v] == white {
				parent[v] = int(u)
				if dfs(v) {
					return true
				}
				continue
			}
			if color[v] == gray {
				// Back-edge u -> v. Reconstruct v ... u -> v via parents.
				cycle = append(cycle, v)
				cur := int(u)
				for cur != -1 && uint32(cur) != v {
					cycle = append(cycle, uint32(cur))
					cur = parent[cur]
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}

	for i := range g.tasks {
		if color[i] != white {
			continue
		}
		if dfs(uint32(i)) {
			break
		}
	}

	if len(cycle) == 0 {
		return nil
	}

	// The parent walk produced the cycle in reverse; normalize to forward order.
	out := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		idx := cycle[i]
		out = append(out, fmt.Sprintf("%s#%d", g.tasks[idx].Name, idx))
	}
	return out
}
