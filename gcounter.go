// Package gcounter implements a grow-only counter, a state-based CRDT.
//
// Each replica accumulates its own contribution under its own id; the
// counter value is the sum of all contributions. Replicas increment
// locally with no coordination and exchange whole states over whatever
// channel they like; Merge joins two states by taking the per-replica
// maximum, which makes the set of states a join-semilattice. However two
// replicas diverged, their states have a unique least upper bound and
// every replica converges to it once all merges have propagated.
//
// States are plain values. Operations never mutate their inputs; a state
// handed to a caller stays the way it was. The transport and persistence
// of states is the caller's business, as is assigning replica ids.
package gcounter

import (
	"errors"
	"fmt"
)

var ErrNegativeDelta = errors.New("gcounter: negative increment")

// State is the convergent state of one logical counter: every replica's
// cumulative contribution, keyed by replica id. The zero value is the
// empty state (all contributions zero). Replicas with a zero contribution
// are never stored, so absence and zero are the same thing.
type State[R comparable, E any] struct {
	counts map[R]E
}

// Len is the number of replicas with a non-zero contribution.
func (s State[R, E]) Len() int { return len(s.counts) }

// Map copies the mapping out, e.g. for a transport layer to serialize.
// Mutating the returned map does not affect the state.
func (s State[R, E]) Map() map[R]E {
	m := make(map[R]E, len(s.counts))
	for src, count := range s.counts {
		m[src] = count
	}
	return m
}

func (s State[R, E]) String() string {
	return fmt.Sprintf("%v", s.counts)
}

// Ordering is the outcome of comparing two states in the counter's
// partial order. Two states that each carry a count the other has not
// seen are Concurrent, i.e. not comparable.
type Ordering int

const (
	Equal Ordering = iota
	Less
	Greater
	Concurrent
)

func (o Ordering) String() string {
	switch o {
	case Equal:
		return "equal"
	case Less:
		return "less"
	case Greater:
		return "greater"
	default:
		return "concurrent"
	}
}

// GCounter carries the numeric capability the counter operations need.
// The capability is an explicit value, fixed at construction; see Arith.
type GCounter[R comparable, E any] struct {
	arith Arith[E]
}

// New makes a counter handle for replica-id type R and count type E.
// E's arithmetic, including its overflow policy, comes from a.
func New[R comparable, E any](a Arith[E]) GCounter[R, E] {
	return GCounter[R, E]{arith: a}
}

// Empty is the empty state, the identity element of Merge.
func (g GCounter[R, E]) Empty() State[R, E] { return State[R, E]{} }

// FromMap builds a state from explicit per-replica counts, e.g. one a
// transport layer deserialized. Zero counts are dropped; counts are
// expected to be non-negative. The input map is not retained.
func (g GCounter[R, E]) FromMap(counts map[R]E) State[R, E] {
	zero := g.arith.Zero()
	m := make(map[R]E, len(counts))
	for src, count := range counts {
		if g.arith.Cmp(count, zero) != 0 {
			m[src] = count
		}
	}
	if len(m) == 0 {
		return State[R, E]{}
	}
	return State[R, E]{counts: m}
}

// Increment returns a fresh state with src's contribution raised by
// delta; s itself is left alone. A zero delta is a no-op returning s. A
// negative delta fails with ErrNegativeDelta and applies nothing: this
// is the core's only failure mode.
func (g GCounter[R, E]) Increment(s State[R, E], src R, delta E) (State[R, E], error) {
	switch c := g.arith.Cmp(delta, g.arith.Zero()); {
	case c < 0:
		return s, ErrNegativeDelta
	case c == 0:
		return s, nil
	}
	next := make(map[R]E, len(s.counts)+1)
	for k, v := range s.counts {
		next[k] = v
	}
	if mine, ok := next[src]; ok {
		next[src] = g.arith.Add(mine, delta)
	} else {
		next[src] = delta
	}
	return State[R, E]{counts: next}, nil
}

// Get returns src's contribution, zero if absent. Never fails.
func (g GCounter[R, E]) Get(s State[R, E], src R) E {
	if count, ok := s.counts[src]; ok {
		return count
	}
	return g.arith.Zero()
}

// Total is the counter value as seen from this state: the sum of all
// contributions. The empty sum is zero.
func (g GCounter[R, E]) Total(s State[R, E]) E {
	sum := g.arith.Zero()
	for _, count := range s.counts {
		sum = g.arith.Add(sum, count)
	}
	return sum
}

// Merge joins two states: the key union with the per-replica maximum,
// absent entries reading as zero. Commutative, associative, idempotent,
// with Empty as identity, and the result is the least upper bound of x
// and y under Compare. Linear in the key union.
func (g GCounter[R, E]) Merge(x, y State[R, E]) State[R, E] {
	// states are immutable, so an operand can be returned as is
	if len(y.counts) == 0 {
		return x
	}
	if len(x.counts) == 0 {
		return y
	}
	joined := make(map[R]E, max(len(x.counts), len(y.counts)))
	for src, count := range x.counts {
		joined[src] = count
	}
	for src, count := range y.counts {
		if mine, ok := joined[src]; !ok || g.arith.Cmp(count, mine) > 0 {
			joined[src] = count
		}
	}
	return State[R, E]{counts: joined}
}

// MergeAll folds any number of states into one.
func (g GCounter[R, E]) MergeAll(states ...State[R, E]) State[R, E] {
	joined := g.Empty()
	for _, s := range states {
		joined = g.Merge(joined, s)
	}
	return joined
}

// Compare places x and y in the counter partial order: x ≤ y iff every
// replica's count in x is ≤ its count in y, absence reading as zero on
// both sides. Equal is returned iff the mappings coincide.
func (g GCounter[R, E]) Compare(x, y State[R, E]) Ordering {
	xley, ylex := true, true
	for src, xc := range x.counts {
		switch c := g.arith.Cmp(xc, g.Get(y, src)); {
		case c < 0:
			ylex = false
		case c > 0:
			xley = false
		}
	}
	zero := g.arith.Zero()
	for src, yc := range y.counts {
		if _, ok := x.counts[src]; ok {
			continue
		}
		if g.arith.Cmp(yc, zero) > 0 {
			ylex = false
		}
	}
	switch {
	case xley && ylex:
		return Equal
	case xley:
		return Less
	case ylex:
		return Greater
	default:
		return Concurrent
	}
}

// LessEq reports whether x ≤ y, i.e. y has seen everything x has.
func (g GCounter[R, E]) LessEq(x, y State[R, E]) bool {
	o := g.Compare(x, y)
	return o == Less || o == Equal
}

// Equal reports whether two states carry identical mappings. Defined via
// the capability's comparator because E need not be comparable.
func (g GCounter[R, E]) Equal(x, y State[R, E]) bool {
	return g.Compare(x, y) == Equal
}
