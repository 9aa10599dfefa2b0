package lock

import (
	"github.com/petermattis/goid"
	"github.com/puzpuzpuz/xsync/v3"
	"sync/atomic"
)

// noOwner is the registry value if no goroutine holds the lock exclusively.
// Goroutine ids start at 1.
const noOwner int64 = 0

// currentGoroutine returns the id of the calling goroutine.
func currentGoroutine() int64 {
	return goid.Get()
}

// registry records which goroutines hold a Locker through a reentrant guard.
//
// The exclusive holder is exact: there is at most one. Shared holders are kept
// per goroutine, together with the number of reentries on top of the first
// acquisition, so that every reader (not only the first one) can re-enter.
//
// Every entry is only written by the goroutine it describes and only while
// that goroutine holds the mutex.
type registry struct {
	owner  atomic.Int64             // exclusive holder (noOwner = none)
	depth  int                      // reentries of the exclusive holder
	shared *xsync.MapOf[int64, int] // shared holder -> reentries
}

func (r *registry) init() {
	r.shared = xsync.NewMapOf[int64, int]()
}

// ownedBy reports whether g holds the lock exclusively.
func (r *registry) ownedBy(g int64) bool {
	return r.owner.Load() == g
}

// sharedBy reports whether g holds the lock in shared mode.
func (r *registry) sharedBy(g int64) bool {
	_, ok := r.shared.Load(g)
	return ok
}

// enter records a real acquisition by g.
func (r *registry) enter(g int64, mode Mode) {
	if mode == Exclusive {
		r.owner.Store(g)
		r.depth = 0
		return
	}
	r.shared.Store(g, 0)
}

// leave clears the entry of g before the mutex is released. It returns the
// number of reentries of g that were still open (0 if guards were released in order).
func (r *registry) leave(g int64, mode Mode) int {
	if mode == Exclusive {
		open := r.depth
		r.depth = 0
		r.owner.Store(noOwner)
		return open
	}
	open, _ := r.shared.LoadAndDelete(g)
	return open
}

// reenter increments the reentry depth of g in the mode g actually holds.
func (r *registry) reenter(g int64, held Mode) {
	if held == Exclusive {
		r.depth++
		return
	}
	d, _ := r.shared.Load(g)
	r.shared.Store(g, d+1)
}

// unwind undoes one reenter. It reports false if g has no open reentry in
// that mode, i.e. the acquiring guard was already released.
func (r *registry) unwind(g int64, held Mode) bool {
	if held == Exclusive {
		if !r.ownedBy(g) || r.depth == 0 {
			return false
		}
		r.depth--
		return true
	}
	d, ok := r.shared.Load(g)
	if !ok || d == 0 {
		return false
	}
	r.shared.Store(g, d-1)
	return true
}

// depthOf returns the open reentries of g.
func (r *registry) depthOf(g int64) int {
	if r.ownedBy(g) {
		return r.depth
	}
	d, _ := r.shared.Load(g)
	return d
}

// sharedHolders returns the number of goroutines holding a reentrant shared guard.
func (r *registry) sharedHolders() int {
	return r.shared.Size()
}
