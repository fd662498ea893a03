package dxl

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genClock() gopter.Gen {
	return gen.SliceOfN(NodeCount, gen.UInt64Range(0, 1000)).Map(
		func(vs []uint64) VectorClock {
			var c VectorClock
			copy(c[:], vs)
			return c
		})
}

func TestClock_Increment(t *testing.T) {
	var c VectorClock
	c.Increment(3)
	c.Increment(3)
	c.Increment(0)

	if c[3] != 2 || c[0] != 1 {
		t.Fatalf("unexpected clock %v", c)
	}

	c.Increment(-1)
	c.Increment(NodeCount)
	if c != (VectorClock{1, 0, 0, 2, 0, 0, 0, 0}) {
		t.Fatalf("out-of-range node mutated clock: %v", c)
	}
}

func TestClock_Compare(t *testing.T) {
	a := VectorClock{1, 2, 3}
	b := VectorClock{1, 2, 3}
	if got := a.Compare(b); got != OrderEqual {
		t.Fatalf("Compare(a, a) = %v, want equal", got)
	}

	newer := VectorClock{1, 2, 4}
	if got := a.Compare(newer); got != OrderBefore {
		t.Fatalf("Compare = %v, want before", got)
	}
	if got := newer.Compare(a); got != OrderAfter {
		t.Fatalf("Compare = %v, want after", got)
	}

	other := VectorClock{0, 2, 4}
	if got := a.Compare(other); got != OrderConcurrent {
		t.Fatalf("Compare = %v, want concurrent", got)
	}
}

func TestClock_ConcurrentWithSelfIsFalse(t *testing.T) {
	c := VectorClock{5, 0, 1}
	if c.Concurrent(c) {
		t.Fatal("a clock must not be concurrent with itself")
	}
}

func TestClock_JoinLaws(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("idempotent", prop.ForAll(
		func(a VectorClock) bool { return a.Join(a) == a },
		genClock(),
	))
	properties.Property("commutative", prop.ForAll(
		func(a, b VectorClock) bool { return a.Join(b) == b.Join(a) },
		genClock(), genClock(),
	))
	properties.Property("associative", prop.ForAll(
		func(a, b, c VectorClock) bool {
			return a.Join(b).Join(c) == a.Join(b.Join(c))
		},
		genClock(), genClock(), genClock(),
	))
	properties.Property("join dominates both inputs", prop.ForAll(
		func(a, b VectorClock) bool {
			j := a.Join(b)
			return j.Compare(a) != OrderBefore && j.Compare(b) != OrderBefore
		},
		genClock(), genClock(),
	))

	properties.TestingRun(t)
}
