package cache

import "encoding/binary"

// bloomWords is the fixed filter size: 1024 64-bit words (8 KiB, 65536 bits).
const (
	bloomWords  = 1024
	bloomProbes = 4
)

// bloomFilter accelerates negative lookups: a miss is authoritative (no
// false negatives), a hit still requires confirmation against the real
// store. Probes use double hashing over the first 16 bytes of the task hash,
// which is already uniformly distributed content-hash output.
type bloomFilter struct {
	words [bloomWords]uint64
}

func bloomIndexes(hash *[32]byte) [bloomProbes]uint32 {
	h1 := binary.LittleEndian.Uint64(hash[0:8])
	h2 := binary.LittleEndian.Uint64(hash[8:16])

	var idx [bloomProbes]uint32
	for i := 0; i < bloomProbes; i++ {
		idx[i] = uint32((h1 + uint64(i)*h2) % (bloomWords * 64))
	}
	return idx
}

func (f *bloomFilter) add(hash *[32]byte) {
	for _, idx := range bloomIndexes(hash) {
		f.words[idx/64] |= 1 << (idx % 64)
	}
}

func (f *bloomFilter) mayContain(hash *[32]byte) bool {
	for _, idx := range bloomIndexes(hash) {
		if f.words[idx/64]&(1<<(idx%64)) == 0 {
			return false
		}
	}
	return true
}

func (f *bloomFilter) reset() {
	f.words = [bloomWords]uint64{}
}
