package lockmgr

import (
	"github.com/ValentinKolb/smap/lib/lock"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var plog = logger.GetLogger("lockmgr")

// entry is the lock of one key. refs counts the handles that use it and is
// only accessed inside xsync compute callbacks.
type entry struct {
	lk   lock.Locker
	refs int
}

type lockMgrImpl struct {
	locks *xsync.MapOf[string, *entry]
	opts  *Options
}

// NewLockManager creates a new keyed lock manager (nil options = defaults).
func NewLockManager(opts *Options) ILockManager {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Name == "" {
		cp := *opts
		cp.Name = defaultName
		opts = &cp
	}
	return &lockMgrImpl{
		locks: xsync.NewMapOf[string, *entry](),
		opts:  opts,
	}
}

func (m *lockMgrImpl) Lock(key string, mode lock.Mode) *Handle {
	e := m.ref(key)

	var g *lock.Guard
	defer func() {
		// the reentrant acquisition panicked (lock upgrade)
		if g == nil {
			m.unref(key)
		}
	}()

	if mode == lock.Exclusive {
		g = e.lk.ReentrantExclusive()
	} else {
		g = e.lk.ReentrantShared()
	}
	return m.newHandle(key, g)
}

func (m *lockMgrImpl) TryLock(key string, mode lock.Mode) (*Handle, bool) {
	e := m.ref(key)

	var g *lock.Guard
	if mode == lock.Exclusive {
		g = e.lk.TryReentrantExclusive()
	} else {
		g = e.lk.TryReentrantShared()
	}

	if !g.OwnsLock() {
		m.unref(key)
		return nil, false
	}
	return m.newHandle(key, g), true
}

func (m *lockMgrImpl) Len() int {
	return m.locks.Size()
}

// --------------------------------------------------------------------------
// Reference Counting
// --------------------------------------------------------------------------

// ref returns the entry for key, creating it if needed, and takes a reference.
func (m *lockMgrImpl) ref(key string) *entry {
	e, _ := m.locks.Compute(key, func(old *entry, loaded bool) (*entry, bool) {
		if !loaded {
			// one name for all keys, so the statistics do not grow with the key space
			old = &entry{}
			old.lk.Configure(&lock.Options{
				Name:      m.opts.Name,
				Metrics:   m.opts.Metrics,
				WarnAfter: m.opts.WarnAfter,
			})
		}
		old.refs++
		return old, false
	})
	return e
}

// unref drops a reference and removes the entry with the last one.
func (m *lockMgrImpl) unref(key string) {
	m.locks.Compute(key, func(old *entry, loaded bool) (*entry, bool) {
		if !loaded {
			plog.Errorf("release of unknown key %q", key)
			return old, true
		}
		old.refs--
		return old, old.refs <= 0
	})
}
