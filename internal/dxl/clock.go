package dxl

// NodeCount is the fixed number of writer slots in a vector clock.
const NodeCount = 8

// VectorClock holds one counter per writer node (0-7). Counters only grow;
// comparing two clocks component-wise distinguishes ordered edits from
// truly concurrent ones.
type VectorClock [NodeCount]uint64

// Ordering is the causal relation between two vector clocks.
type Ordering int

const (
	OrderEqual Ordering = iota
	OrderBefore
	OrderAfter
	OrderConcurrent
)

func (o Ordering) String() string {
	switch o {
	case OrderEqual:
		return "equal"
	case OrderBefore:
		return "before"
	case OrderAfter:
		return "after"
	case OrderConcurrent:
		return "concurrent"
	default:
		return "unknown"
	}
}

// Increment bumps the counter for the local node on a local mutation.
// Node ids outside [0, NodeCount) are ignored.
func (c *VectorClock) Increment(node int) {
	if node >= 0 && node < NodeCount {
		c[node]++
	}
}

// Join returns the component-wise maximum: the standard vector-clock join.
// It is idempotent, commutative and associative.
func (c VectorClock) Join(other VectorClock) VectorClock {
	out := c
	for i, v := range other {
		if v > out[i] {
			out[i] = v
		}
	}
	return out
}

// Compare classifies the causal relation between c and other.
func (c VectorClock) Compare(other VectorClock) Ordering {
	var less, greater bool
	for i := range c {
		if c[i] < other[i] {
			less = true
		}
		if c[i] > other[i] {
			greater = true
		}
	}
	switch {
	case less && greater:
		return OrderConcurrent
	case less:
		return OrderBefore
	case greater:
		return OrderAfter
	default:
		return OrderEqual
	}
}

// Concurrent reports whether neither clock dominates the other: some
// components strictly less and others strictly greater. This signals a true
// conflict requiring resolution policy, as opposed to one side being stale.
func (c VectorClock) Concurrent(other VectorClock) bool {
	return c.Compare(other) == OrderConcurrent
}
