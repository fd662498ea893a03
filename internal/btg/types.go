package btg

// Task is one immutable task declaration in the graph.
//
// DefinitionHash identifies the task's declared shape (command, inputs, env)
// for cache-key purposes; it is computed by the resolver that produced the
// buffer and carried through opaquely.
type Task struct {
	Name           string
	PackageIdx     uint32
	Command        string
	DefinitionHash [8]byte

	// FrameBudgetUS is the cooperative time slice in microseconds after
	// which a long-running task should be checked at a safe boundary.
	// Zero means unbounded.
	FrameBudgetUS uint32

	Cacheable bool
}

// Edge is a directed dependency: From must complete before To runs.
// Both endpoints are indices into the graph's task sequence.
type Edge struct {
	From uint32
	To   uint32
}

// Graph is an immutable, validated task graph.
//
// It is safe for concurrent read access. The topological order and parallel
// groups are derived once at decode time; incoming/outgoing adjacency is
// indexed so dependency checks do not scan the full edge list.
type Graph struct {
	tasks []Task
	edges []Edge

	outgoing [][]uint32 // by task index, sorted ascending
	incoming [][]uint32 // by task index, sorted ascending

	topoOrder      []uint32
	parallelGroups [][]uint32
}

// Tasks returns the task sequence in graph order.
func (g *Graph) Tasks() []Task {
	out := make([]Task, len(g.tasks))
	copy(out, g.tasks)
	return out
}

// Task returns the task at idx.
func (g *Graph) Task(idx uint32) (Task, bool) {
	if int(idx) >= len(g.tasks) {
		return Task{}, false
	}
	return g.tasks[idx], true
}

// Len returns the number of tasks.
func (g *Graph) Len() int { return len(g.tasks) }

// Edges returns the dependency edges in canonical (from, to) order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Dependencies returns the indices of tasks that must complete before idx runs.
func (g *Graph) Dependencies(idx uint32) []uint32 {
	if int(idx) >= len(g.incoming) {
		return nil
	}
	return g.incoming[idx]
}

// Dependents returns the indices of tasks that depend on idx.
func (g *Graph) Dependents(idx uint32) []uint32 {
	if int(idx) >= len(g.outgoing) {
		return nil
	}
	return g.outgoing[idx]
}

// TopologicalOrder returns a deterministic topological ordering of task indices.
func (g *Graph) TopologicalOrder() []uint32 {
	out := make([]uint32, len(g.topoOrder))
	copy(out, g.topoOrder)
	return out
}

// ParallelGroups returns the depth-staged execution groups: every task in
// group i depends only on tasks in groups < i, so each group may run fully
// in parallel once the previous groups have completed.
func (g *Graph) ParallelGroups() [][]uint32 {
	out := make([][]uint32, len(g.parallelGroups))
	for i, grp := range g.parallelGroups {
		out[i] = append([]uint32(nil), grp...)
	}
	return out
}
