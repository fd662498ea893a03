package dxl

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func pkg(name string, major uint16) PackageResolution {
	return PackageResolution{
		Name:       name,
		Version:    Version{Major: major},
		TarballURL: "https://registry.npmjs.org/" + name,
	}
}

func TestMerge_TheirsStrictlyNewer(t *testing.T) {
	ours := &Lockfile{
		Packages: []PackageResolution{pkg("react", 17)},
		Clock:    VectorClock{1, 0},
	}
	theirs := &Lockfile{
		Packages: []PackageResolution{pkg("react", 18)},
		Clock:    VectorClock{1, 5},
	}

	merged, conflicts := Merge(ours, theirs)
	if len(conflicts) != 0 {
		t.Fatalf("unexpected conflicts: %v", conflicts)
	}
	got, _ := merged.Package("react")
	if got.Version.Major != 18 {
		t.Fatalf("merged react at %d, want the newer 18", got.Version.Major)
	}
	if merged.Clock != (VectorClock{1, 5}) {
		t.Fatalf("merged clock = %v, want joined {1,5}", merged.Clock)
	}
}

func TestMerge_OursStrictlyNewer(t *testing.T) {
	ours := &Lockfile{
		Packages: []PackageResolution{pkg("react", 18)},
		Clock:    VectorClock{2, 5},
	}
	theirs := &Lockfile{
		Packages: []PackageResolution{pkg("react", 17)},
		Clock:    VectorClock{1, 5},
	}

	merged, conflicts := Merge(ours, theirs)
	if len(conflicts) != 0 {
		t.Fatalf("unexpected conflicts: %v", conflicts)
	}
	got, _ := merged.Package("react")
	if got.Version.Major != 18 {
		t.Fatalf("merged react at %d, want ours at 18", got.Version.Major)
	}
}

func TestMerge_ConcurrentDivergenceIsConflict(t *testing.T) {
	ours := &Lockfile{
		Packages: []PackageResolution{pkg("react", 17)},
		Clock:    VectorClock{2, 0},
	}
	theirs := &Lockfile{
		Packages: []PackageResolution{pkg("react", 18)},
		Clock:    VectorClock{0, 3},
	}

	merged, conflicts := Merge(ours, theirs)
	if len(conflicts) != 1 {
		t.Fatalf("got %d conflicts, want 1", len(conflicts))
	}
	c := conflicts[0]
	if c.Name != "react" || c.Ours.Version.Major != 17 || c.Theirs.Version.Major != 18 {
		t.Fatalf("conflict = %+v, want both resolutions surfaced", c)
	}

	// The merged set keeps ours pending explicit resolution.
	got, _ := merged.Package("react")
	if got.Version.Major != 17 {
		t.Fatalf("merged react at %d, want ours kept at 17", got.Version.Major)
	}
	if merged.Clock != (VectorClock{2, 3}) {
		t.Fatalf("merged clock = %v, want joined {2,3}", merged.Clock)
	}
}

func TestMerge_ConcurrentIdenticalIsSilent(t *testing.T) {
	ours := &Lockfile{
		Packages: []PackageResolution{pkg("react", 18)},
		Clock:    VectorClock{2, 0},
	}
	theirs := &Lockfile{
		Packages: []PackageResolution{pkg("react", 18)},
		Clock:    VectorClock{0, 3},
	}

	_, conflicts := Merge(ours, theirs)
	if len(conflicts) != 0 {
		t.Fatalf("identical resolutions must not conflict: %v", conflicts)
	}
}

func TestMerge_DisjointPackagesUnion(t *testing.T) {
	ours := &Lockfile{
		Packages: []PackageResolution{pkg("a", 1), pkg("b", 1)},
		Clock:    VectorClock{1, 0},
	}
	theirs := &Lockfile{
		Packages: []PackageResolution{pkg("c", 1)},
		Clock:    VectorClock{0, 1},
	}

	merged, conflicts := Merge(ours, theirs)
	if len(conflicts) != 0 {
		t.Fatalf("unexpected conflicts: %v", conflicts)
	}
	names := make([]string, 0, len(merged.Packages))
	for _, p := range merged.Packages {
		names = append(names, p.Name)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, names); diff != "" {
		t.Fatalf("merged package names mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	l := &Lockfile{
		Packages: []PackageResolution{pkg("a", 1), pkg("b", 2)},
		Clock:    VectorClock{4, 2},
	}

	merged, conflicts := Merge(l, l)
	if len(conflicts) != 0 {
		t.Fatalf("self-merge conflicted: %v", conflicts)
	}
	if merged.Clock != l.Clock {
		t.Fatalf("self-merge changed the clock: %v", merged.Clock)
	}
	if len(merged.Packages) != 2 {
		t.Fatalf("self-merge changed the package set: %v", merged.Packages)
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	ours := &Lockfile{
		Packages: []PackageResolution{pkg("react", 17)},
		Clock:    VectorClock{1, 0},
	}
	theirs := &Lockfile{
		Packages: []PackageResolution{pkg("react", 18)},
		Clock:    VectorClock{0, 1},
	}

	Merge(ours, theirs)

	if ours.Clock != (VectorClock{1, 0}) || theirs.Clock != (VectorClock{0, 1}) {
		t.Fatal("merge mutated an input clock")
	}
	if ours.Packages[0].Version.Major != 17 || theirs.Packages[0].Version.Major != 18 {
		t.Fatal("merge mutated an input package set")
	}
}
