package gcounter

import (
	"math/big"

	"golang.org/x/exp/constraints"
)

// Arith is the numeric capability a count type must provide: an additive
// identity, addition, and an order. Cmp returns a value <0, 0 or >0 for
// a<b, a==b, a>b; the per-replica maximum in Merge derives from it.
// Overflow policy belongs to the instance: pick Wrap, Sat or Big.
type Arith[E any] interface {
	Zero() E
	Add(a, b E) E
	Cmp(a, b E) int
}

// Wrap adds with Go's modular unsigned arithmetic.
type Wrap[E constraints.Unsigned] struct{}

func (Wrap[E]) Zero() (z E) { return }
func (Wrap[E]) Add(a, b E) E { return a + b }
func (Wrap[E]) Cmp(a, b E) int { return cmpOrdered(a, b) }

// Sat clamps the sum at the type's maximum instead of wrapping.
type Sat[E constraints.Unsigned] struct{}

func (Sat[E]) Zero() (z E) { return }

func (Sat[E]) Add(a, b E) E {
	sum := a + b
	if sum < a {
		return ^E(0)
	}
	return sum
}

func (Sat[E]) Cmp(a, b E) int { return cmpOrdered(a, b) }

// Int is plain signed arithmetic. It is the unsigned instances' negative
// sibling: the one under which a negative delta can actually show up and
// be rejected by Increment.
type Int[E constraints.Signed] struct{}

func (Int[E]) Zero() (z E) { return }
func (Int[E]) Add(a, b E) E { return a + b }
func (Int[E]) Cmp(a, b E) int { return cmpOrdered(a, b) }

// Float is floating-point arithmetic.
type Float[E constraints.Float] struct{}

func (Float[E]) Zero() (z E) { return }
func (Float[E]) Add(a, b E) E { return a + b }
func (Float[E]) Cmp(a, b E) int { return cmpOrdered(a, b) }

// Big is unbounded arithmetic over *big.Int; counters built with it never
// overflow. Values are treated as immutable, Add allocates the sum.
type Big struct{}

func (Big) Zero() *big.Int { return new(big.Int) }
func (Big) Add(a, b *big.Int) *big.Int { return new(big.Int).Add(a, b) }
func (Big) Cmp(a, b *big.Int) int { return a.Cmp(b) }

func cmpOrdered[E constraints.Ordered](a, b E) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
