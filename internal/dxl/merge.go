package dxl

import "sort"

// Conflict records one package whose two resolutions were edited
// concurrently: neither lockfile's clock dominates the other, and the
// resolutions differ, so no winner can be chosen silently.
type Conflict struct {
	Name   string
	Ours   PackageResolution
	Theirs PackageResolution
}

// Merge reconciles two lockfiles.
//
// The vector clocks are always joined (component-wise maximum). Packages are
// merged by name using the clocks' causal relation:
//   - theirs strictly newer: adopt their resolution for differing packages
//   - ours strictly newer: keep ours
//   - concurrent: identical resolutions merge silently; divergent ones keep
//     ours in the merged set and are surfaced as explicit conflicts for the
//     caller's resolution policy, never dropped silently
//
// Packages present on only one side are always included: the lockfile is
// append-only, so a one-sided package is an addition, not a deletion.
//
// Merge is a pure function over two owned values; neither input is mutated.
func Merge(ours, theirs *Lockfile) (*Lockfile, []Conflict) {
	rel := ours.Clock.Compare(theirs.Clock)

	byName := make(map[string]PackageResolution, len(ours.Packages)+len(theirs.Packages))
	for _, p := range ours.Packages {
		byName[p.Name] = p
	}

	var conflicts []Conflict
	for _, t := range theirs.Packages {
		o, exists := byName[t.Name]
		if !exists {
			byName[t.Name] = t
			continue
		}
		if o.equal(t) {
			continue
		}
		switch rel {
		case OrderBefore:
			byName[t.Name] = t
		case OrderAfter:
			// Keep ours.
		default:
			// Concurrent edits, or equal clocks with divergent content
			// (which indicates an unclocked mutation): a true conflict.
			conflicts = append(conflicts, Conflict{Name: t.Name, Ours: o, Theirs: t})
		}
	}

	merged := &Lockfile{
		Packages: make([]PackageResolution, 0, len(byName)),
		Clock:    ours.Clock.Join(theirs.Clock),
	}
	for _, p := range byName {
		merged.Packages = append(merged.Packages, p)
	}
	sort.Slice(merged.Packages, func(i, j int) bool {
		return merged.Packages[i].Name < merged.Packages[j].Name
	})
	sort.Slice(conflicts, func(i, j int) bool {
		return conflicts[i].Name < conflicts[j].Name
	})

	return merged, conflicts
}
