package dxc

import "lukechampine.com/blake3"

// Block is one contiguous run of differing bytes in an XOR patch.
type Block struct {
	// Offset is the byte offset within the file.
	Offset uint64

	// Data holds base XOR target for the run.
	Data []byte
}

// Patch is a sparse byte-wise XOR diff between a base payload and a target
// payload. Applying it to the base reconstructs the target exactly
// (base XOR (base XOR target) == target), so near-identical outputs can be
// shipped as a small diff instead of a full record.
type Patch struct {
	BaseHash   [32]byte
	TargetHash [32]byte

	// TargetLen is the exact target byte length. XOR against an implicitly
	// zero-padded shorter side can only grow the buffer; the recorded length
	// lets Apply also shrink it.
	TargetLen uint64

	Blocks []Block
}

// CreatePatch computes the sparse XOR diff from base to target.
//
// When the lengths differ, the shorter side is treated as zero-padded, so
// Apply can both grow and shrink content.
func CreatePatch(base, target []byte) *Patch {
	p := &Patch{
		BaseHash:   blake3.Sum256(base),
		TargetHash: blake3.Sum256(target),
		TargetLen:  uint64(len(target)),
	}

	maxLen := len(base)
	if len(target) > maxLen {
		maxLen = len(target)
	}

	var cur *Block
	for i := 0; i < maxLen; i++ {
		var b, t byte
		if i < len(base) {
			b = base[i]
		}
		if i < len(target) {
			t = target[i]
		}
		x := b ^ t

		if x != 0 {
			if cur == nil {
				p.Blocks = append(p.Blocks, Block{Offset: uint64(i)})
				cur = &p.Blocks[len(p.Blocks)-1]
			}
			cur.Data = append(cur.Data, x)
		} else {
			cur = nil
		}
	}
	return p
}

// Apply reconstructs the target from the base. The result is extended when a
// block reaches past the base's length.
func (p *Patch) Apply(base []byte) []byte {
	result := make([]byte, len(base))
	copy(result, base)

	for _, block := range p.Blocks {
		end := block.Offset + uint64(len(block.Data))
		if end > uint64(len(result)) {
			grown := make([]byte, end)
			copy(grown, result)
			result = grown
		}
		for i, x := range block.Data {
			result[block.Offset+uint64(i)] ^= x
		}
	}
	if p.TargetLen < uint64(len(result)) {
		result = result[:p.TargetLen]
	}
	return result
}

// Size returns the encoded patch size: both hashes plus per-block offset and
// data bytes.
func (p *Patch) Size() int {
	size := 64
	for _, b := range p.Blocks {
		size += 8 + len(b.Data)
	}
	return size
}

// Efficiency returns patch size relative to the target size; values well
// below 1.0 mean the patch is worth shipping instead of the full payload.
func (p *Patch) Efficiency(targetSize int) float64 {
	if targetSize == 0 {
		return 1.0
	}
	return float64(p.Size()) / float64(targetSize)
}
