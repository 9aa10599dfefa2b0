package sharedmap

import (
	"cmp"
	"github.com/google/btree"
	"iter"
)

// --------------------------------------------------------------------------
// B-Tree Container
// --------------------------------------------------------------------------

type entry[K any, V any] struct {
	key   K
	value V
}

type treeContainer[K any, V any] struct {
	tree *btree.BTreeG[entry[K, V]]
}

func newTreeContainer[K any, V any](degree int, less func(a, b K) bool) *treeContainer[K, V] {
	if degree < 2 {
		degree = defaultDegree
	}
	return &treeContainer[K, V]{
		tree: btree.NewG(degree, func(a, b entry[K, V]) bool {
			return less(a.key, b.key)
		}),
	}
}

func (t *treeContainer[K, V]) load(key K) (V, bool) {
	e, ok := t.tree.Get(entry[K, V]{key: key})
	return e.value, ok
}

func (t *treeContainer[K, V]) store(key K, value V) {
	t.tree.ReplaceOrInsert(entry[K, V]{key: key, value: value})
}

func (t *treeContainer[K, V]) remove(key K) bool {
	_, ok := t.tree.Delete(entry[K, V]{key: key})
	return ok
}

func (t *treeContainer[K, V]) size() int {
	return t.tree.Len()
}

func (t *treeContainer[K, V]) reset() {
	t.tree.Clear(false)
}

func (t *treeContainer[K, V]) ascend(yield func(K, V) bool) {
	t.tree.Ascend(func(e entry[K, V]) bool {
		return yield(e.key, e.value)
	})
}

func (t *treeContainer[K, V]) descend(yield func(K, V) bool) {
	t.tree.Descend(func(e entry[K, V]) bool {
		return yield(e.key, e.value)
	})
}

// ascendRange visits [from, to)
func (t *treeContainer[K, V]) ascendRange(from, to K, yield func(K, V) bool) {
	t.tree.AscendRange(entry[K, V]{key: from}, entry[K, V]{key: to}, func(e entry[K, V]) bool {
		return yield(e.key, e.value)
	})
}

// ascendFrom visits all keys >= from
func (t *treeContainer[K, V]) ascendFrom(from K, yield func(K, V) bool) {
	t.tree.AscendGreaterOrEqual(entry[K, V]{key: from}, func(e entry[K, V]) bool {
		return yield(e.key, e.value)
	})
}

// --------------------------------------------------------------------------
// Ordered Map
// --------------------------------------------------------------------------

// OrderedMap is a SharedMap that keeps its keys sorted.
// All iterators visit the entries in key order.
//
// Thread-safety: all methods are thread-safe.
type OrderedMap[K any, V any] struct {
	base[K, V]
	tree *treeContainer[K, V]
}

// NewOrdered creates an ordered map for keys with a natural order.
func NewOrdered[K cmp.Ordered, V any](opts *Options) *OrderedMap[K, V] {
	return NewOrderedFunc[K, V](cmp.Less[K], opts)
}

// NewOrderedFunc creates an ordered map using less to order the keys.
// Two keys a and b are considered equal if neither less(a, b) nor less(b, a).
func NewOrderedFunc[K any, V any](less func(a, b K) bool, opts *Options) *OrderedMap[K, V] {
	if opts == nil {
		opts = DefaultOptions()
	}
	m := &OrderedMap[K, V]{tree: newTreeContainer[K, V](opts.Degree, less)}
	m.init(m.tree, KindOrdered, opts)
	plog.Debugf("created ordered map %s (degree %d)", m.lk.Name(), opts.Degree)
	return m
}

// Backward returns an iterator over all entries in descending key order.
// The shared lock is held until the loop ends.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *OrderedMap[K, V]) Backward() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		defer m.lk.ReentrantShared().Unlock()
		m.tree.descend(yield)
	}
}

// Range returns an iterator over all entries with from <= key < to.
// The shared lock is held until the loop ends.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *OrderedMap[K, V]) Range(from, to K) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		defer m.lk.ReentrantShared().Unlock()
		m.tree.ascendRange(from, to, yield)
	}
}

// From returns an iterator over all entries with key >= from.
// The shared lock is held until the loop ends.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *OrderedMap[K, V]) From(from K) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		defer m.lk.ReentrantShared().Unlock()
		m.tree.ascendFrom(from, yield)
	}
}

// Min returns the entry with the smallest key. ok is false if the map is empty.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *OrderedMap[K, V]) Min() (key K, value V, ok bool) {
	defer m.lk.ReentrantShared().Unlock()
	e, ok := m.tree.tree.Min()
	return e.key, e.value, ok
}

// Max returns the entry with the largest key. ok is false if the map is empty.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *OrderedMap[K, V]) Max() (key K, value V, ok bool) {
	defer m.lk.ReentrantShared().Unlock()
	e, ok := m.tree.tree.Max()
	return e.key, e.value, ok
}

// EraseRange removes all entries with from <= key < to and returns how many were removed.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (m *OrderedMap[K, V]) EraseRange(from, to K) int {
	defer m.lk.ReentrantExclusive().Unlock()

	var keys []K
	m.tree.ascendRange(from, to, func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	for _, k := range keys {
		m.tree.remove(k)
	}
	return len(keys)
}
