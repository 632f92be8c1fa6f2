// Package counters layers replica-local concurrency over the pure
// gcounter core.
//
// # AtomicCounter
//
// AtomicCounter owns one grow-only counter state under a fixed local
// replica id. It is built for the usual split of a replicated counter's
// traffic:
//
//   - **Local writes are immediately visible.** The running total lives in
//     an atomic and is bumped on the increment path; Get never takes the
//     write lock.
//   - **Remote data arrives over an unreliable channel.** Snapshots from
//     peers may be delayed, reordered or delivered more than once. Merge
//     is idempotent, so redelivery is always safe; to also make it cheap,
//     the counter remembers a digest of the last snapshot merged from each
//     peer and drops byte-for-byte redeliveries before taking the lock.
//
// Correctness never depends on the digest cache. It is bounded (LRU), so
// under peer churn old entries fall out and the worst case is a redundant,
// harmless re-merge.
//
// ## Thread safety
//
// All methods are safe for concurrent use. Increment and Merge serialize
// on a write lock; Get reads the cached total without locking.
package counters

import (
	"context"
	"encoding/binary"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/drpcorg/gcounter"
	"github.com/drpcorg/gcounter/utils"
)

var ErrDecrementN = errors.WithMessage(gcounter.ErrNegativeDelta, "decrementing a grow-only counter")

// seenPeers bounds the digest cache, not the replica set.
const seenPeers = 1024

type AtomicCounter struct {
	gc    gcounter.GCounter[uint64, uint64]
	src   uint64
	lock  sync.RWMutex
	state gcounter.State[uint64, uint64]
	total atomic.Uint64
	seen  *lru.Cache[uint64, uint64]
	log   utils.Logger
}

// NewAtomicCounter creates a counter owned by the replica id src. The id
// must be unique among the replicas of one logical counter; assigning
// ids is the caller's business.
func NewAtomicCounter(src uint64, log utils.Logger) *AtomicCounter {
	seen, _ := lru.New[uint64, uint64](seenPeers)
	gc := gcounter.New[uint64](gcounter.Wrap[uint64]{})
	return &AtomicCounter{
		gc:    gc,
		src:   src,
		state: gc.Empty(),
		seen:  seen,
		log:   log,
	}
}

// Src is the local replica id.
func (a *AtomicCounter) Src() uint64 { return a.src }

// Increment adds val to the local replica's contribution and returns the
// new total. Grow-only: a negative val is rejected with ErrDecrementN and
// nothing is applied.
func (a *AtomicCounter) Increment(ctx context.Context, val int64) (uint64, error) {
	if val < 0 {
		return 0, ErrDecrementN
	}
	a.lock.Lock()
	next, err := a.gc.Increment(a.state, a.src, uint64(val))
	if err != nil {
		a.lock.Unlock()
		return 0, err
	}
	a.state = next
	total := a.total.Add(uint64(val))
	a.lock.Unlock()
	a.log.DebugCtx(ctx, "increment", "src", a.src, "val", val, "total", total)
	return total, nil
}

// Get returns the current total: the local contribution plus everything
// merged in from other replicas so far.
func (a *AtomicCounter) Get() uint64 {
	return a.total.Load()
}

// Merge joins a snapshot received from peer into the local state and
// reports whether the state advanced. A snapshot identical to the last
// one merged from that peer is dropped without taking the write lock.
func (a *AtomicCounter) Merge(ctx context.Context, peer uint64, snap gcounter.State[uint64, uint64]) bool {
	d := digest(snap)
	if last, ok := a.seen.Get(peer); ok && last == d {
		a.log.DebugCtx(ctx, "merge: duplicate snapshot dropped", "src", a.src, "peer", peer)
		return false
	}
	a.lock.Lock()
	joined := a.gc.Merge(a.state, snap)
	advanced := !a.gc.Equal(joined, a.state)
	if advanced {
		a.state = joined
		a.total.Store(a.gc.Total(joined))
	}
	a.lock.Unlock()
	a.seen.Add(peer, d)
	if advanced {
		a.log.InfoCtx(ctx, "merge: state advanced",
			"src", a.src, "peer", peer, "replicas", joined.Len(), "total", a.total.Load())
	}
	return advanced
}

// Snapshot is the current state value, safe to hand to a transport: the
// counter never mutates a state it has given out.
func (a *AtomicCounter) Snapshot() gcounter.State[uint64, uint64] {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return a.state
}

// digest hashes a snapshot in canonical (sorted) order. Only used for
// duplicate detection, not a wire format.
func digest(s gcounter.State[uint64, uint64]) uint64 {
	m := s.Map()
	srcs := make([]uint64, 0, len(m))
	for src := range m {
		srcs = append(srcs, src)
	}
	slices.Sort(srcs)
	h := xxhash.New()
	var buf [16]byte
	for _, src := range srcs {
		binary.LittleEndian.PutUint64(buf[:8], src)
		binary.LittleEndian.PutUint64(buf[8:], m[src])
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
