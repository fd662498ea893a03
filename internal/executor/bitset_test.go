package executor

import (
	"sync"
	"testing"
)

func TestBitset_SetGetCount(t *testing.T) {
	b := newBitset(130)

	for _, i := range []uint32{0, 63, 64, 129} {
		if b.get(i) {
			t.Fatalf("bit %d set on fresh bitset", i)
		}
		b.set(i)
		if !b.get(i) {
			t.Fatalf("bit %d not set after set", i)
		}
	}
	if got := b.count(); got != 4 {
		t.Fatalf("count = %d, want 4", got)
	}

	b.reset()
	if got := b.count(); got != 0 {
		t.Fatalf("count after reset = %d, want 0", got)
	}
}

func TestBitset_ConcurrentSet(t *testing.T) {
	const n = 512
	b := newBitset(n)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := uint32(w); i < n; i += 8 {
				b.set(i)
			}
		}(w)
	}
	wg.Wait()

	if got := b.count(); got != n {
		t.Fatalf("count = %d, want %d", got, n)
	}
}
