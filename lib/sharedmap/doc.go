/*
Package sharedmap provides key-value maps that are safe for concurrent use
and may be re-entered by a goroutine that already holds their lock.

# Map Kinds

Two implementations of the SharedMap interface are available:

  - OrderedMap: backed by a B-tree (github.com/google/btree), keys are kept
    sorted. It adds Backward, Range, From, Min, Max and EraseRange.
  - HashedMap: backed by a Go map, iteration order is unspecified.

Both are created with an *Options value (nil = DefaultOptions()):

	m := sharedmap.NewOrdered[string, int](nil)
	h := sharedmap.NewHashed[string, int](&sharedmap.Options{Name: "sessions"})

# Locking

Every map owns a lock.Locker. Write operations (Set, Update, Erase,
EraseFunc, EraseRange, Clear) take its reentrant exclusive guard, read
operations (Lookup, Empty, Size, Count, Keys, Min, Max, iteration) take its
reentrant shared guard. A goroutine already holding the lock therefore never
waits on itself:

	m.Update("a", func(v int, _ bool) int {
		return v + m.Get("b") // nested call, no deadlock
	})

To make a sequence of calls atomic, hold the map's lock yourself:

	g := m.Locker().ReentrantExclusive()
	defer g.Unlock()
	if m.Count("a") == 0 {
		m.Set("a", 1)
	}

# Get Inserts

Get(key) returns the zero value for absent keys and inserts it. The insert
needs the exclusive lock, so calling Get for an absent key while only the
shared lock is held (for example from inside an All loop) is a lock upgrade
and panics with lock.ErrUpgrade. Lookup never inserts.

# Iteration

All, Backward, Range and From return iter.Seq2 iterators holding the
shared lock until the loop ends, including on break and panic:

	for k, v := range m.All() {
		fmt.Println(k, v)
	}

The loop body must not modify the same map. Use EraseFunc to remove entries
selected by a predicate.

# Conformance

The package sharedmap/testing contains a test suite every SharedMap
implementation must pass (RunSharedMapTests) and a set of benchmarks
(RunSharedMapBenchmarks).
*/
package sharedmap
