package gcounter

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTwoReplicasConverge(t *testing.T) {
	g := New[uint64](Wrap[uint64]{})

	a, err := g.Increment(g.Empty(), 1, 1)
	assert.NoError(t, err)
	b, err := g.Increment(g.Empty(), 2, 2)
	assert.NoError(t, err)

	ab := g.Merge(a, b)
	ba := g.Merge(b, a)
	assert.True(t, g.Equal(ab, ba))
	assert.Equal(t, uint64(1), g.Get(ab, 1))
	assert.Equal(t, uint64(2), g.Get(ab, 2))
	assert.Equal(t, uint64(3), g.Total(ab))
}

func TestMergeMaxWins(t *testing.T) {
	g := New[uint64](Wrap[uint64]{})
	x := g.FromMap(map[uint64]uint64{1: 5})
	y := g.FromMap(map[uint64]uint64{1: 3})

	m := g.Merge(x, y)
	assert.Equal(t, uint64(5), g.Get(m, 1))
	assert.True(t, g.Equal(m, x))
	assert.Equal(t, uint64(5), g.Total(m))
}

func TestAbsenceIsZero(t *testing.T) {
	g := New[uint64](Wrap[uint64]{})
	assert.Equal(t, uint64(0), g.Get(g.Empty(), 42))
	assert.Equal(t, uint64(0), g.Total(g.Empty()))

	// explicit zeros are not stored either
	s := g.FromMap(map[uint64]uint64{1: 0, 2: 7})
	assert.Equal(t, 1, s.Len())
	assert.True(t, g.Equal(s, g.FromMap(map[uint64]uint64{2: 7})))
}

func TestIncrementMonotonic(t *testing.T) {
	g := New[uint64](Wrap[uint64]{})
	s := g.FromMap(map[uint64]uint64{1: 3, 2: 4})

	next, err := g.Increment(s, 1, 10)
	assert.NoError(t, err)
	assert.True(t, g.LessEq(s, next))
	assert.Equal(t, uint64(13), g.Get(next, 1))
	// the input state is untouched
	assert.Equal(t, uint64(3), g.Get(s, 1))
}

func TestIncrementZeroNoop(t *testing.T) {
	g := New[uint64](Wrap[uint64]{})
	s := g.FromMap(map[uint64]uint64{1: 3})

	same, err := g.Increment(s, 2, 0)
	assert.NoError(t, err)
	assert.True(t, g.Equal(s, same))
	assert.Equal(t, 1, same.Len())
}

func TestIncrementNegativeRejected(t *testing.T) {
	g := New[string](Int[int64]{})
	s := g.FromMap(map[string]int64{"a": 1})

	got, err := g.Increment(s, "a", -1)
	assert.ErrorIs(t, err, ErrNegativeDelta)
	assert.True(t, g.Equal(s, got))
	assert.Equal(t, int64(1), g.Get(s, "a"))
}

func TestCompareScenarios(t *testing.T) {
	g := New[uint64](Wrap[uint64]{})
	x := g.FromMap(map[uint64]uint64{1: 1})
	y := g.FromMap(map[uint64]uint64{1: 1, 2: 1})
	z := g.FromMap(map[uint64]uint64{2: 1})

	assert.Equal(t, Less, g.Compare(x, y))
	assert.Equal(t, Greater, g.Compare(y, x))
	assert.Equal(t, Concurrent, g.Compare(x, z))
	assert.Equal(t, Concurrent, g.Compare(z, x))
	assert.Equal(t, Equal, g.Compare(x, x))
	assert.True(t, g.LessEq(x, y))
	assert.False(t, g.LessEq(x, z))
}

func randState(rnd *rand.Rand, g GCounter[uint64, uint64]) State[uint64, uint64] {
	s := g.Empty()
	for i := rnd.Intn(6); i > 0; i-- {
		s, _ = g.Increment(s, uint64(rnd.Intn(4)+1), uint64(rnd.Intn(100)))
	}
	return s
}

func TestMergeLaws(t *testing.T) {
	g := New[uint64](Wrap[uint64]{})
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		a := randState(rnd, g)
		b := randState(rnd, g)
		c := randState(rnd, g)

		assert.True(t, g.Equal(g.Merge(a, b), g.Merge(b, a)), "commutativity: %v %v", a, b)
		assert.True(t, g.Equal(g.Merge(g.Merge(a, b), c), g.Merge(a, g.Merge(b, c))),
			"associativity: %v %v %v", a, b, c)
		assert.True(t, g.Equal(g.Merge(a, a), a), "idempotence: %v", a)
		assert.True(t, g.Equal(g.Merge(a, g.Empty()), a), "identity: %v", a)
	}
}

func TestMergeIsLeastUpperBound(t *testing.T) {
	g := New[uint64](Wrap[uint64]{})
	rnd := rand.New(rand.NewSource(7))
	bounds := 0
	for i := 0; i < 1000; i++ {
		a := randState(rnd, g)
		b := randState(rnd, g)
		m := g.Merge(a, b)

		assert.True(t, g.LessEq(a, m), "a ≤ merge(a,b): %v %v", a, b)
		assert.True(t, g.LessEq(b, m), "b ≤ merge(a,b): %v %v", a, b)

		// least: the merge takes exactly the per-replica maximum, so no
		// smaller state can dominate both operands
		for src, count := range m.Map() {
			want := g.Get(a, src)
			if bc := g.Get(b, src); bc > want {
				want = bc
			}
			assert.Equal(t, want, count, "key %d of %v %v", src, a, b)
		}

		// any independently found common upper bound dominates the merge
		c := randState(rnd, g)
		if g.LessEq(a, c) && g.LessEq(b, c) {
			bounds++
			assert.True(t, g.LessEq(m, c), "merge(a,b) ≤ c: %v %v %v", a, b, c)
		}
	}
	assert.NotZero(t, bounds)
}

func TestCompareIsPartialOrder(t *testing.T) {
	g := New[uint64](Wrap[uint64]{})
	rnd := rand.New(rand.NewSource(99))
	for i := 0; i < 500; i++ {
		a := randState(rnd, g)
		b := randState(rnd, g)
		c := randState(rnd, g)

		// reflexivity
		assert.Equal(t, Equal, g.Compare(a, a))
		// antisymmetry
		if g.LessEq(a, b) && g.LessEq(b, a) {
			assert.True(t, g.Equal(a, b))
		}
		// transitivity
		if g.LessEq(a, b) && g.LessEq(b, c) {
			assert.True(t, g.LessEq(a, c), "%v ≤ %v ≤ %v", a, b, c)
		}
	}
}

func TestMergeAll(t *testing.T) {
	g := New[uint64](Wrap[uint64]{})
	a := g.FromMap(map[uint64]uint64{1: 1})
	b := g.FromMap(map[uint64]uint64{2: 2, 3: 1})
	c := g.FromMap(map[uint64]uint64{3: 5})

	m := g.MergeAll(a, b, c)
	assert.True(t, g.Equal(m, g.FromMap(map[uint64]uint64{1: 1, 2: 2, 3: 5})))
	assert.Equal(t, uint64(8), g.Total(m))
	assert.True(t, g.Equal(g.Empty(), g.MergeAll()))
}

func TestMapIsACopy(t *testing.T) {
	g := New[uint64](Wrap[uint64]{})
	s := g.FromMap(map[uint64]uint64{1: 1})

	m := s.Map()
	m[1] = 100
	m[2] = 200
	assert.Equal(t, uint64(1), g.Get(s, 1))
	assert.Equal(t, uint64(0), g.Get(s, 2))
}

func TestOpaqueReplicaIDs(t *testing.T) {
	g := New[uuid.UUID](Wrap[uint64]{})
	r1, r2 := uuid.New(), uuid.New()

	a, err := g.Increment(g.Empty(), r1, 10)
	assert.NoError(t, err)
	b, err := g.Increment(g.Empty(), r2, 32)
	assert.NoError(t, err)

	m := g.Merge(a, b)
	assert.Equal(t, uint64(42), g.Total(m))
	assert.Equal(t, uint64(10), g.Get(m, r1))
	assert.True(t, g.Equal(m, g.Merge(b, a)))
}
