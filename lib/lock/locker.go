package lock

import (
	"errors"
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"sync"
	"time"
)

var plog = logger.GetLogger("lock")

// ErrUpgrade is the panic value (wrapped) if a goroutine holding a reentrant
// shared guard requests an exclusive one on the same Locker. Waiting would
// never end because the goroutine itself holds the shared lock.
var ErrUpgrade = errors.New("exclusive acquisition while holding the shared lock")

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options configures a Locker
type Options struct {
	Name      string        // Name used in logs and metric labels
	Metrics   *metrics.Set  // Optional set to register lock statistics in (nil = no statistics)
	WarnAfter time.Duration // Log a warning if a blocking acquisition waits longer (0 = never)
}

// DefaultOptions returns the default Locker options
func DefaultOptions() *Options {
	return &Options{
		Name: "default",
	}
}

// --------------------------------------------------------------------------
// Locker
// --------------------------------------------------------------------------

// Locker is a reader/writer lock with reentrant acquisition.
//
// It offers plain guards (LockShared, LockExclusive, TryLockShared,
// TryLockExclusive) which map directly onto the underlying mutex, and
// reentrant guards (ReentrantShared, ReentrantExclusive, TryReentrantShared,
// TryReentrantExclusive) which first consult the owner registry: if the
// calling goroutine already holds the lock, the guard is a no-op and the
// goroutine does not wait on itself.
//
// Reentry rules for reentrant guards:
//   - exclusive holder requests shared or exclusive: reentry
//   - shared holder requests shared: reentry
//   - shared holder requests exclusive: the try-variant fails, the blocking
//     variant panics with ErrUpgrade
//
// Code ported from recursive locks that grant every nested request of a
// holder as a no-op must not rely on a shared holder silently receiving
// exclusive access: here that request panics instead.
//
// Reentered guards must be released before the guard that acquired the lock
// (defer does this). Releasing them out of order is logged as an error.
//
// Plain guards are not recorded in the registry. A goroutine holding a plain
// guard that requests a reentrant one acquires the mutex a second time.
//
// The zero value is an unlocked Locker without statistics. A Locker must not
// be copied after first use.
//
// Thread-safety: all methods are thread-safe.
type Locker struct {
	mu   rwMutex
	reg  registry
	once sync.Once

	name      string
	warnAfter time.Duration
	stats     *lockStats
}

// New creates a Locker configured with the given options (nil = defaults).
func New(opts *Options) *Locker {
	l := &Locker{}
	l.Configure(opts)
	return l
}

// Configure applies the options. It must be called before the Locker is used.
func (l *Locker) Configure(opts *Options) {
	if opts == nil {
		opts = DefaultOptions()
	}
	l.name = opts.Name
	l.warnAfter = opts.WarnAfter
	l.stats = nil
	if opts.Metrics != nil {
		l.stats = newLockStats(opts.Metrics, l.Name())
	}
}

// Name returns the configured name of the Locker.
func (l *Locker) Name() string {
	if l.name == "" {
		return "unnamed"
	}
	return l.name
}

func (l *Locker) init() {
	l.once.Do(l.reg.init)
}

// --------------------------------------------------------------------------
// Plain Guards
// --------------------------------------------------------------------------

// LockShared blocks until the lock is held in shared mode.
func (l *Locker) LockShared() *Guard {
	return l.plain(Shared, false)
}

// LockExclusive blocks until the lock is held in exclusive mode.
func (l *Locker) LockExclusive() *Guard {
	return l.plain(Exclusive, false)
}

// TryLockShared acquires the lock in shared mode without blocking.
// The returned guard's OwnsLock is false if the lock was not available.
func (l *Locker) TryLockShared() *Guard {
	return l.plain(Shared, true)
}

// TryLockExclusive acquires the lock in exclusive mode without blocking.
// The returned guard's OwnsLock is false if the lock was not available.
func (l *Locker) TryLockExclusive() *Guard {
	return l.plain(Exclusive, true)
}

func (l *Locker) plain(mode Mode, try bool) *Guard {
	g := &Guard{l: l, mode: mode, held: mode, state: statePlain}
	if !l.acquire(mode, try) {
		g.state = stateFailed
	}
	return g
}

// --------------------------------------------------------------------------
// Reentrant Guards
// --------------------------------------------------------------------------

// ReentrantShared blocks until the lock is held in shared mode, unless the
// calling goroutine already holds it (in any mode).
func (l *Locker) ReentrantShared() *Guard {
	return l.reentrant(Shared, false)
}

// ReentrantExclusive blocks until the lock is held in exclusive mode, unless
// the calling goroutine already holds it exclusively.
// It panics with ErrUpgrade if the goroutine holds a reentrant shared guard.
func (l *Locker) ReentrantExclusive() *Guard {
	return l.reentrant(Exclusive, false)
}

// TryReentrantShared is the non-blocking variant of ReentrantShared.
func (l *Locker) TryReentrantShared() *Guard {
	return l.reentrant(Shared, true)
}

// TryReentrantExclusive is the non-blocking variant of ReentrantExclusive.
// It fails (instead of panicking) if the goroutine holds a reentrant shared guard.
func (l *Locker) TryReentrantExclusive() *Guard {
	return l.reentrant(Exclusive, true)
}

func (l *Locker) reentrant(mode Mode, try bool) *Guard {
	l.init()

	gid := currentGoroutine()
	g := &Guard{l: l, mode: mode, held: mode, gid: gid}

	switch {
	case l.reg.ownedBy(gid):
		g.held = Exclusive
		g.state = stateReentered
	case l.reg.sharedBy(gid) && mode == Shared:
		g.state = stateReentered
	case l.reg.sharedBy(gid):
		if try {
			l.stats.tryFailed(mode)
			g.state = stateFailed
			return g
		}
		plog.Errorf("%s: goroutine %d requested an exclusive lock while holding it shared", l.Name(), gid)
		panic(fmt.Errorf("%w (lock %s, goroutine %d)", ErrUpgrade, l.Name(), gid))
	}

	if g.state == stateReentered {
		l.reg.reenter(gid, g.held)
		l.stats.reentered(mode)
		return g
	}

	if !l.acquire(mode, try) {
		g.state = stateFailed
		return g
	}
	l.reg.enter(gid, mode)
	g.state = stateAcquired
	return g
}

// --------------------------------------------------------------------------
// Acquisition and Release
// --------------------------------------------------------------------------

// acquire performs the real acquisition of the underlying mutex.
// The return value is only false for a failed try.
func (l *Locker) acquire(mode Mode, try bool) bool {
	if try {
		var ok bool
		if mode == Exclusive {
			ok = l.mu.TryLock()
		} else {
			ok = l.mu.TryRLock()
		}
		if ok {
			l.stats.acquired(mode, 0)
		} else {
			l.stats.tryFailed(mode)
		}
		return ok
	}

	// fast path: nothing to measure
	if l.stats == nil && l.warnAfter <= 0 {
		l.block(mode)
		return true
	}

	start := time.Now()
	l.block(mode)
	wait := time.Since(start)

	l.stats.acquired(mode, wait)
	if l.warnAfter > 0 && wait > l.warnAfter {
		plog.Warningf("%s: %s lock acquired after %v, exceeding %v (goroutine %d)",
			l.Name(), mode, wait, l.warnAfter, currentGoroutine())
	}
	return true
}

func (l *Locker) block(mode Mode) {
	if mode == Exclusive {
		l.mu.Lock()
	} else {
		l.mu.RLock()
	}
}

// release is called by Guard.Unlock for guards that own the lock.
func (l *Locker) release(g *Guard) {
	switch g.state {
	case stateReentered:
		if !l.reg.unwind(g.gid, g.held) {
			plog.Errorf("%s: goroutine %d released a reentered %s guard after the guard that acquired the lock",
				l.Name(), g.gid, g.mode)
		}
		return
	case stateAcquired:
		if open := l.reg.leave(g.gid, g.mode); open > 0 {
			plog.Errorf("%s: goroutine %d released the lock with %d reentered guards still open",
				l.Name(), g.gid, open)
		}
	}

	if g.mode == Exclusive {
		l.mu.Unlock()
	} else {
		l.mu.RUnlock()
	}
}

// --------------------------------------------------------------------------
// Introspection
// --------------------------------------------------------------------------

// Owner returns the id of the goroutine holding the lock through a reentrant
// exclusive guard, or 0.
func (l *Locker) Owner() int64 {
	return l.reg.owner.Load()
}

// HeldByCurrent reports whether the calling goroutine holds the lock through a
// reentrant guard, and in which mode.
func (l *Locker) HeldByCurrent() (Mode, bool) {
	l.init()
	gid := currentGoroutine()
	if l.reg.ownedBy(gid) {
		return Exclusive, true
	}
	if l.reg.sharedBy(gid) {
		return Shared, true
	}
	return Shared, false
}

// ReentryDepth returns the number of reentered guards the calling goroutine
// currently holds on top of the guard that acquired the lock.
func (l *Locker) ReentryDepth() int {
	l.init()
	return l.reg.depthOf(currentGoroutine())
}

// SharedHolders returns the number of goroutines holding the lock through a
// reentrant shared guard.
func (l *Locker) SharedHolders() int {
	l.init()
	return l.reg.sharedHolders()
}
