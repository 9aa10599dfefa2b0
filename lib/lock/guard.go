package lock

// Mode is the mode a lock is held in
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

func (m Mode) String() string {
	switch m {
	case Shared:
		return "shared"
	case Exclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

type guardState int

const (
	stateFailed    guardState = iota // try-variant did not get the lock
	statePlain                       // plain acquisition, invisible to the registry
	stateAcquired                    // reentrant variant that really acquired the mutex
	stateReentered                   // goroutine already held the lock, nothing acquired
)

// Guard is a scoped lock acquisition returned by the acquisition methods of a Locker.
// It must be released with Unlock, typically right after it was obtained:
//
//	g := l.ReentrantExclusive()
//	defer g.Unlock()
//
// A Guard must be released by the goroutine that obtained it, and guards of
// one goroutine must be released in reverse order of acquisition (which defer
// does automatically).
type Guard struct {
	l        *Locker
	mode     Mode  // requested mode
	held     Mode  // mode the goroutine actually holds (differs on shared reentry into an exclusive hold)
	gid      int64 // acquiring goroutine
	state    guardState
	released bool
}

// OwnsLock reports whether the caller operates under the protection of the lock.
// It is true if the guard acquired the lock and also if the calling goroutine
// already held it. It is false if a try-variant failed or after Unlock.
func (g *Guard) OwnsLock() bool {
	return g.state != stateFailed && !g.released
}

// Acquired reports whether the guard really acquired the underlying mutex
// (as opposed to re-entering a lock the goroutine already held).
func (g *Guard) Acquired() bool {
	return g.state == stateAcquired || g.state == statePlain
}

// Reentered reports whether the guard was a no-op reentry.
func (g *Guard) Reentered() bool {
	return g.state == stateReentered
}

// Mode returns the requested lock mode.
func (g *Guard) Mode() Mode {
	return g.mode
}

// Unlock releases the guard. The underlying mutex is only released if this
// guard acquired it. Calling Unlock more than once is a no-op.
func (g *Guard) Unlock() {
	if g.released || g.state == stateFailed {
		g.released = true
		return
	}
	g.released = true
	g.l.release(g)
}
