package executor

import (
	"math/bits"
	"sync/atomic"
)

// bitset is a fixed-capacity atomic bit array, one bit per task.
//
// Workers set completion bits concurrently while the coordinator reads them
// when recomputing the ready set; per-word atomics keep that race-free
// without a lock around the whole array.
type bitset struct {
	words []atomic.Uint64
	n     int
}

func newBitset(n int) *bitset {
	return &bitset{words: make([]atomic.Uint64, (n+63)/64), n: n}
}

func (b *bitset) set(i uint32) {
	if int(i) >= b.n {
		return
	}
	b.words[i/64].Or(1 << (i % 64))
}

func (b *bitset) get(i uint32) bool {
	if int(i) >= b.n {
		return false
	}
	return b.words[i/64].Load()&(1<<(i%64)) != 0
}

func (b *bitset) reset() {
	for i := range b.words {
		b.words[i].Store(0)
	}
}

func (b *bitset) count() int {
	total := 0
	for i := range b.words {
		total += bits.OnesCount64(b.words[i].Load())
	}
	return total
}
