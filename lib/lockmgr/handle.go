package lockmgr

import (
	"github.com/ValentinKolb/smap/lib/lock"
)

// Handle is a held lock of an ILockManager.
//
// Thread-safety: a Handle belongs to the goroutine that acquired it.
type Handle struct {
	mgr      *lockMgrImpl
	key      string
	id       string
	guard    *lock.Guard
	released bool
}

func (m *lockMgrImpl) newHandle(key string, g *lock.Guard) *Handle {
	h := &Handle{mgr: m, key: key, id: generateHandleID(), guard: g}
	plog.Debugf("handle %s: %s lock on %q (reentered=%v)", h.id, g.Mode(), key, g.Reentered())
	return h
}

// Key returns the key the handle locks.
func (h *Handle) Key() string {
	return h.key
}

// ID returns a random identifier of the handle (used in logs).
func (h *Handle) ID() string {
	return h.id
}

// Mode returns the mode the lock was requested in.
func (h *Handle) Mode() lock.Mode {
	return h.guard.Mode()
}

// Unlock releases the lock and the handle's reference to the key.
// Calling Unlock more than once has no effect.
func (h *Handle) Unlock() {
	if h == nil || h.released {
		return
	}
	h.released = true
	h.guard.Unlock()
	h.mgr.unref(h.key)
	plog.Debugf("handle %s: released %q", h.id, h.key)
}
