package counters

import (
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/drpcorg/gcounter/utils"
)

// Registry hands out named counters, one instance per name, all owned by
// the same local replica id.
type Registry struct {
	src      uint64
	log      utils.Logger
	counters *xsync.MapOf[string, *AtomicCounter]
}

func NewRegistry(src uint64, log utils.Logger) *Registry {
	return &Registry{
		src:      src,
		log:      log,
		counters: xsync.NewMapOf[string, *AtomicCounter](),
	}
}

// Counter returns the counter registered under name, creating it on
// first use. Concurrent callers get the same instance.
func (r *Registry) Counter(name string) *AtomicCounter {
	c, loaded := r.counters.LoadOrCompute(name, func() *AtomicCounter {
		return NewAtomicCounter(r.src, r.log)
	})
	if !loaded {
		r.log.Debug("registered counter", "name", name, "src", r.src)
	}
	return c
}

// Range calls f for every registered counter until f returns false.
func (r *Registry) Range(f func(name string, c *AtomicCounter) bool) {
	r.counters.Range(f)
}

func (r *Registry) Size() int {
	return r.counters.Size()
}
