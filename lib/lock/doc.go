// Package lock implements a reentrant reader/writer lock.
//
// A Locker bundles a shared/exclusive mutex with an owner registry that
// records which goroutines currently hold it. Acquisitions return a Guard
// that is released with Unlock, usually deferred right after the
// acquisition:
//
//	var l lock.Locker
//
//	func update() {
//	    defer l.ReentrantExclusive().Unlock()
//	    // ... exclusive section ...
//	    read() // does not deadlock, the goroutine already holds the lock
//	}
//
//	func read() {
//	    defer l.ReentrantShared().Unlock()
//	    // ... shared section ...
//	}
//
// Acquisition Operations:
//
//	The eight operations form three axes:
//	  - shared vs. exclusive mode
//	  - blocking vs. non-blocking (Try...)
//	  - plain vs. reentrant guard
//
//	Plain guards map directly onto the mutex. Reentrant guards first look up
//	the calling goroutine in the registry. If it already holds the lock the
//	returned guard is a no-op reentry (Guard.Reentered) and its Unlock does
//	not release anything. Otherwise the mutex is acquired and the goroutine
//	is recorded until the guard is released.
//
// Owner Registry:
//
//	The exclusive holder is stored in a single atomic slot. Shared holders
//	are tracked per goroutine (with their reentry depth) because any number
//	of goroutines may hold the lock in shared mode at the same time, and each
//	of them must be able to re-enter: re-acquiring a sync.RWMutex for reading
//	blocks as soon as a writer is waiting.
//
// Lock Upgrades:
//
//	A goroutine holding only a shared guard can not become the exclusive
//	holder without releasing first. TryReentrantExclusive fails in that
//	situation, ReentrantExclusive panics with ErrUpgrade.
//
// Statistics and Debugging:
//
//	With Options.Metrics set, acquisitions, reentries, failed tries and wait
//	times are exported as VictoriaMetrics counters and histograms labeled
//	with the lock name and mode. Options.WarnAfter logs slow acquisitions.
//	Building with -tags lockdebug replaces the mutex with go-deadlock's
//	RWMutex, which reports lock order violations and long waits.
//
// Thread Safety:
//
//	All Locker methods are thread-safe. A Guard belongs to the goroutine that
//	obtained it and must be released by that goroutine.
package lock
