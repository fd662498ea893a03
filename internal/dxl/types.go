package dxl

// Version is a resolved semantic version. Minor and Patch are bounded to
// 10 bits each by the packed encoding; Major to 12 bits.
type Version struct {
	Major uint16
	Minor uint16
	Patch uint16
}

// Dependency is one declared dependency of a resolved package.
type Dependency struct {
	Name  string
	Range string
}

// PackageResolution is one resolved package entry.
type PackageResolution struct {
	Name         string
	Version      Version
	Integrity    [32]byte
	TarballURL   string
	Dependencies []Dependency
}

// Lockfile is the in-memory form of a DXL lockfile: the resolved package set
// plus the vector clock that orders edits across machines.
//
// Lifecycle: produced by an external resolver, persisted via Encode, merged
// when two copies diverge, otherwise append-only.
type Lockfile struct {
	Packages []PackageResolution
	Clock    VectorClock
}

// New creates an empty lockfile.
func New() *Lockfile {
	return &Lockfile{}
}

// Package returns the resolution for name, scanning the package list.
func (l *Lockfile) Package(name string) (PackageResolution, bool) {
	for _, p := range l.Packages {
		if p.Name == name {
			return p, true
		}
	}
	return PackageResolution{}, false
}

func (p PackageResolution) equal(o PackageResolution) bool {
	if p.Name != o.Name || p.Version != o.Version || p.Integrity != o.Integrity || p.TarballURL != o.TarballURL {
		return false
	}
	if len(p.Dependencies) != len(o.Dependencies) {
		return false
	}
	for i := range p.Dependencies {
		if p.Dependencies[i] != o.Dependencies[i] {
			return false
		}
	}
	return true
}
