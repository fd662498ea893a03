package cache

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"lukechampine.com/blake3"
)

func TestBloom_EmptyFilterMatchesNothing(t *testing.T) {
	var f bloomFilter
	h := blake3.Sum256([]byte("anything"))
	if f.mayContain(&h) {
		t.Fatal("empty filter reported a hit")
	}
}

func TestBloom_AddedHashAlwaysFound(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("no false negatives", prop.ForAll(
		func(payloads [][]byte) bool {
			var f bloomFilter
			hashes := make([][32]byte, len(payloads))
			for i, p := range payloads {
				hashes[i] = blake3.Sum256(p)
				f.add(&hashes[i])
			}
			for i := range hashes {
				if !f.mayContain(&hashes[i]) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.SliceOf(gen.UInt8())),
	))

	properties.TestingRun(t)
}

func TestBloom_Reset(t *testing.T) {
	var f bloomFilter
	h := blake3.Sum256([]byte("entry"))
	f.add(&h)
	if !f.mayContain(&h) {
		t.Fatal("added hash not found")
	}
	f.reset()
	if f.mayContain(&h) {
		t.Fatal("hash survived reset")
	}
}

func TestRecencyList_OldestOrder(t *testing.T) {
	l := newRecencyList()
	a, b, c := [32]byte{1}, [32]byte{2}, [32]byte{3}

	l.touch(a, 10)
	l.touch(b, 10)
	l.touch(c, 10)
	l.touch(a, 10) // a is now most recent

	victim, size, ok := l.oldest()
	if !ok || victim != b || size != 10 {
		t.Fatalf("oldest = (%v, %d, %v), want b", victim[0], size, ok)
	}

	l.remove(b)
	victim, _, ok = l.oldest()
	if !ok || victim != c {
		t.Fatalf("oldest after removing b = %v, want c", victim[0])
	}
}

func TestRecencyList_EmptyAfterReset(t *testing.T) {
	l := newRecencyList()
	l.touch([32]byte{1}, 10)
	l.reset()
	if _, _, ok := l.oldest(); ok {
		t.Fatal("reset list still has entries")
	}
}
