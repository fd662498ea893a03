// Package bag implements the Binary Affected Graph: a precomputed
// inverse-dependency index answering "which packages must rebuild" for a
// changed package or file in O(result), without walking the dependency graph
// at query time.
package bag

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// Dep declares that Package depends on DependsOn.
type Dep struct {
	Package   uint32
	DependsOn uint32
}

// Graph is an immutable impact index over a workspace's packages.
type Graph struct {
	packageCount uint32
	inverseDeps  [][]uint32        // package -> direct dependents, sorted
	closure      [][]uint32        // package -> all transitive dependents, sorted
	fileMap      map[uint64]uint32 // xxhash64(path) -> owning package
}

// Build constructs the index from package-level dependency declarations and
// a file-to-package ownership map.
func Build(packageCount uint32, deps []Dep, files map[string]uint32) (*Graph, error) {
	inverse := make([][]uint32, packageCount)
	for _, d := range deps {
		if d.Package >= packageCount || d.DependsOn >= packageCount {
			return nil, fmt.Errorf("dependency (%d -> %d) references package outside [0, %d)", d.Package, d.DependsOn, packageCount)
		}
		inverse[d.DependsOn] = append(inverse[d.DependsOn], d.Package)
	}
	for i := range inverse {
		sort.Slice(inverse[i], func(a, b int) bool { return inverse[i][a] < inverse[i][b] })
	}

	fileMap := make(map[uint64]uint32, len(files))
	for path, pkg := range files {
		if pkg >= packageCount {
			return nil, fmt.Errorf("file %q owned by package %d outside [0, %d)", path, pkg, packageCount)
		}
		fileMap[xxhash.Sum64String(path)] = pkg
	}

	g := &Graph{
		packageCount: packageCount,
		inverseDeps:  inverse,
		fileMap:      fileMap,
	}
	g.closure = g.computeClosure()
	return g, nil
}

// computeClosure runs one BFS over the inverse edges per package. Workspace
// package counts are small enough that the quadratic worst case is fine.
func (g *Graph) computeClosure() [][]uint32 {
	closure := make([][]uint32, g.packageCount)
	for start := uint32(0); start < g.packageCount; start++ {
		visited := make([]bool, g.packageCount)
		queue := append([]uint32(nil), g.inverseDeps[start]...)
		var out []uint32
		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			if visited[u] {
				continue
			}
			visited[u] = true
			out = append(out, u)
			queue = append(queue, g.inverseDeps[u]...)
		}
		sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
		closure[start] = out
	}
	return closure
}

// PackageCount returns the number of packages in the index.
func (g *Graph) PackageCount() uint32 { return g.packageCount }

// Dependents returns the packages that directly depend on pkg.
func (g *Graph) Dependents(pkg uint32) []uint32 {
	if pkg >= g.packageCount {
		return nil
	}
	return append([]uint32(nil), g.inverseDeps[pkg]...)
}

// Affected returns every package transitively impacted by a change to pkg,
// sorted ascending. The changed package itself is not included.
func (g *Graph) Affected(pkg uint32) []uint32 {
	if pkg >= g.packageCount {
		return nil
	}
	return append([]uint32(nil), g.closure[pkg]...)
}

// AffectedByFile maps a changed file path to its owning package and returns
// that package plus everything transitively affected. ok is false when the
// file is not owned by any known package.
func (g *Graph) AffectedByFile(path string) (owner uint32, affected []uint32, ok bool) {
	owner, ok = g.fileMap[xxhash.Sum64String(path)]
	if !ok {
		return 0, nil, false
	}
	return owner, g.Affected(owner), true
}
