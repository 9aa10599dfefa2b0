package sharedmap

// --------------------------------------------------------------------------
// Hash Container
// --------------------------------------------------------------------------

type hashContainer[K comparable, V any] struct {
	data map[K]V
}

func (h *hashContainer[K, V]) load(key K) (V, bool) {
	v, ok := h.data[key]
	return v, ok
}

func (h *hashContainer[K, V]) store(key K, value V) {
	h.data[key] = value
}

func (h *hashContainer[K, V]) remove(key K) bool {
	if _, ok := h.data[key]; !ok {
		return false
	}
	delete(h.data, key)
	return true
}

func (h *hashContainer[K, V]) size() int {
	return len(h.data)
}

func (h *hashContainer[K, V]) reset() {
	clear(h.data)
}

func (h *hashContainer[K, V]) ascend(yield func(K, V) bool) {
	for k, v := range h.data {
		if !yield(k, v) {
			return
		}
	}
}

// --------------------------------------------------------------------------
// Hashed Map
// --------------------------------------------------------------------------

// HashedMap is a SharedMap backed by a Go map.
// Iteration order is unspecified.
//
// Thread-safety: all methods are thread-safe.
type HashedMap[K comparable, V any] struct {
	base[K, V]
}

// NewHashed creates a hashed map.
func NewHashed[K comparable, V any](opts *Options) *HashedMap[K, V] {
	if opts == nil {
		opts = DefaultOptions()
	}
	m := &HashedMap[K, V]{}
	m.init(&hashContainer[K, V]{data: make(map[K]V, opts.Capacity)}, KindHashed, opts)
	plog.Debugf("created hashed map %s", m.lk.Name())
	return m
}
