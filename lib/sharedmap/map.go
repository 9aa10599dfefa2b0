package sharedmap

import (
	"github.com/ValentinKolb/smap/lib/lock"
	"iter"
)

// base implements the locking discipline shared by all map kinds.
// Write operations take a reentrant exclusive guard, read operations a
// reentrant shared guard. The container is never reachable without one.
type base[K any, V any] struct {
	lk   lock.Locker
	c    container[K, V]
	kind Kind
}

func (m *base[K, V]) init(c container[K, V], kind Kind, opts *Options) {
	m.c = c
	m.kind = kind
	m.lk.Configure(opts.lockOptions())
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Set inserts or overwrites the value for key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *base[K, V]) Set(key K, value V) {
	defer m.lk.ReentrantExclusive().Unlock()
	m.c.store(key, value)
}

// Update replaces the value for key with the result of fn.
// fn runs while the exclusive lock is held and may call other methods of the map.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *base[K, V]) Update(key K, fn func(value V, loaded bool) V) V {
	defer m.lk.ReentrantExclusive().Unlock()
	old, loaded := m.c.load(key)
	value := fn(old, loaded)
	m.c.store(key, value)
	return value
}

// Erase removes key and returns the number of removed entries.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *base[K, V]) Erase(key K) int {
	defer m.lk.ReentrantExclusive().Unlock()
	if m.c.remove(key) {
		return 1
	}
	return 0
}

// EraseFunc removes all entries matching fn.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *base[K, V]) EraseFunc(fn func(key K, value V) bool) int {
	defer m.lk.ReentrantExclusive().Unlock()

	// collect first, the containers must not be modified while iterating
	var matches []K
	m.c.ascend(func(k K, v V) bool {
		if fn(k, v) {
			matches = append(matches, k)
		}
		return true
	})
	for _, k := range matches {
		m.c.remove(k)
	}
	return len(matches)
}

// Clear removes all entries.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *base[K, V]) Clear() {
	defer m.lk.ReentrantExclusive().Unlock()
	plog.Debugf("%s: clearing %d entries", m.lk.Name(), m.c.size())
	m.c.reset()
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Get returns the value for key and inserts the zero value if key is absent.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *base[K, V]) Get(key K) V {
	g := m.lk.ReentrantShared()
	value, ok := m.c.load(key)
	g.Unlock()
	if ok {
		return value
	}

	defer m.lk.ReentrantExclusive().Unlock()

	// someone else may have inserted the key in between
	if value, ok := m.c.load(key); ok {
		return value
	}
	var zero V
	m.c.store(key, zero)
	return zero
}

// Lookup returns the value for key and whether it exists.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *base[K, V]) Lookup(key K) (V, bool) {
	defer m.lk.ReentrantShared().Unlock()
	return m.c.load(key)
}

// Empty reports whether the map has no entries.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *base[K, V]) Empty() bool {
	defer m.lk.ReentrantShared().Unlock()
	return m.c.size() == 0
}

// Size returns the number of entries.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *base[K, V]) Size() int {
	defer m.lk.ReentrantShared().Unlock()
	return m.c.size()
}

// Count returns 1 if key exists, else 0.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *base[K, V]) Count(key K) int {
	defer m.lk.ReentrantShared().Unlock()
	if _, ok := m.c.load(key); ok {
		return 1
	}
	return 0
}

// Keys returns a snapshot of all keys (in iteration order of the map kind).
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *base[K, V]) Keys() []K {
	defer m.lk.ReentrantShared().Unlock()
	keys := make([]K, 0, m.c.size())
	m.c.ascend(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// All returns an iterator over all entries that holds the shared lock until the loop ends.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *base[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		defer m.lk.ReentrantShared().Unlock()
		m.c.ascend(yield)
	}
}

// --------------------------------------------------------------------------
// Locking and Metadata
// --------------------------------------------------------------------------

// Locker returns the map's lock.
func (m *base[K, V]) Locker() *lock.Locker {
	return &m.lk
}

// Kind returns the storage kind.
func (m *base[K, V]) Kind() Kind {
	return m.kind
}
