package dxc

// FilePatch is the XOR diff for one file of an entry patch.
type FilePatch struct {
	Path  string
	Mode  uint32
	Patch Patch
}

// EntryPatch reconstructs a cache entry from a base entry without shipping
// unchanged bytes. It carries one FilePatch per target file: files absent
// from the base diff against empty content, files absent from the patch are
// dropped, and an unchanged file costs only its two hashes.
type EntryPatch struct {
	BaseHash [32]byte
	Files    []FilePatch
}

// CreateEntryPatch diffs target against base, matching files by path.
func CreateEntryPatch(base, target *Entry) *EntryPatch {
	baseByPath := make(map[string][]byte, len(base.Files))
	for _, f := range base.Files {
		baseByPath[f.Path] = f.Content
	}

	p := &EntryPatch{BaseHash: base.TaskHash}
	for _, f := range target.Files {
		p.Files = append(p.Files, FilePatch{
			Path:  f.Path,
			Mode:  f.Mode,
			Patch: *CreatePatch(baseByPath[f.Path], f.Content),
		})
	}
	return p
}

// Apply materializes the target entry from the base under newHash.
func (p *EntryPatch) Apply(base *Entry, newHash [32]byte) *Entry {
	baseByPath := make(map[string][]byte, len(base.Files))
	for _, f := range base.Files {
		baseByPath[f.Path] = f.Content
	}

	out := NewEntry(newHash)
	for _, fp := range p.Files {
		out.AddFile(fp.Path, fp.Patch.Apply(baseByPath[fp.Path]), fp.Mode)
	}
	return out
}

// Size returns the total encoded size of all file patches.
func (p *EntryPatch) Size() int {
	size := 32
	for _, fp := range p.Files {
		size += len(fp.Path) + 4 + fp.Patch.Size()
	}
	return size
}
