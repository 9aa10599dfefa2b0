package sharedmap

import (
	"github.com/ValentinKolb/smap/lib/lock"
	"iter"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// Kind identifies the storage behind a SharedMap
type Kind string

const (
	KindOrdered Kind = "ordered" // B-tree, iteration in key order
	KindHashed  Kind = "hashed"  // Go map, iteration in unspecified order
)

// --------------------------------------------------------------------------
// SharedMap Interface
// --------------------------------------------------------------------------

// SharedMap is a key-value map that is safe for concurrent use.
// Every method acquires the map's reentrant lock in the mode it needs, so
// methods may be called from inside other methods (e.g. from an Update
// callback) or while the caller holds the map's Locker.
type SharedMap[K any, V any] interface {

	// --------------------------------------------------------------------------
	// Write Operations (exclusive lock)
	// --------------------------------------------------------------------------

	// Set inserts or overwrites the value for key.
	Set(key K, value V)

	// Update replaces the value for key with the result of fn, which receives
	// the current value and whether it existed. fn runs under the exclusive lock
	// and may call other methods of the same map.
	Update(key K, fn func(value V, loaded bool) V) (updated V)

	// Erase removes key and returns the number of removed entries (0 or 1).
	Erase(key K) (removed int)

	// EraseFunc removes every entry for which fn returns true and returns how many were removed.
	EraseFunc(fn func(key K, value V) bool) (removed int)

	// Clear removes all entries.
	Clear()

	// --------------------------------------------------------------------------
	// Read Operations (shared lock)
	// --------------------------------------------------------------------------

	// Get returns the value for key. If the key is absent, the zero value is
	// inserted and returned, so Get may grow the map. Inserting needs the
	// exclusive lock: calling Get for an absent key while holding only the
	// shared lock of the same map (e.g. inside All) panics with lock.ErrUpgrade.
	// Use Lookup for a pure read.
	Get(key K) (value V)

	// Lookup returns the value for key and whether it was found. It never inserts.
	Lookup(key K) (value V, found bool)

	// Empty reports whether the map has no entries.
	Empty() bool

	// Size returns the number of entries.
	Size() int

	// Count returns the number of entries for key (0 or 1).
	Count(key K) int

	// Keys returns a snapshot of all keys.
	Keys() []K

	// All returns an iterator over all entries. The shared lock is held until the
	// loop ends, so the entries can not change during iteration. Modifying the
	// same map from the loop body panics with lock.ErrUpgrade; use EraseFunc.
	All() iter.Seq2[K, V]

	// --------------------------------------------------------------------------
	// Locking and Metadata
	// --------------------------------------------------------------------------

	// Locker returns the lock guarding the map. Hold a reentrant guard of it
	// to make a sequence of calls atomic:
	//
	//	defer m.Locker().ReentrantExclusive().Unlock()
	Locker() *lock.Locker

	// Kind returns the storage kind of the map.
	Kind() Kind
}
