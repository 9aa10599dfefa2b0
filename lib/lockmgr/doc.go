// Package lockmgr implements named reentrant reader/writer locks.
//
// A lock manager maps string keys to lock.Locker values and creates them on
// demand. Every acquisition returns a *Handle that holds a reference to the
// key; when the last handle of a key is released the lock is removed again,
// so the manager only keeps state for keys that are currently in use.
//
// Core Functionality:
//   - Shared and exclusive locks per key (lock.Shared, lock.Exclusive)
//   - Reentrancy: a goroutine holding a key may lock it again
//   - Non-blocking acquisition through TryLock
//   - Optional lock statistics through a VictoriaMetrics set, aggregated
//     over all keys under one lock name (Options.Name)
//
// Implementation Approach:
//
//	The keys live in an xsync.MapOf. Taking and dropping a reference runs
//	inside the map's Compute callback, so creating an entry, counting its
//	references and removing the last one are atomic per key. Acquiring the
//	lock itself happens outside the callback and may block.
//
// Thread Safety:
//
//	The manager is safe for concurrent use. A Handle belongs to the
//	goroutine that acquired it and must be released by that goroutine.
//
// Usage Example:
//
//	mgr := lockmgr.NewLockManager(nil)
//
//	h := mgr.Lock("resource:123", lock.Exclusive)
//	defer h.Unlock()
//
//	// use the resource safely
//
//	if h, ok := mgr.TryLock("resource:456", lock.Shared); ok {
//		defer h.Unlock()
//	}
package lockmgr
