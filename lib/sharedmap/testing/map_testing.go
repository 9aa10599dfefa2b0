package testing

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/smap/lib/lock"
	"github.com/ValentinKolb/smap/lib/sharedmap"
	"github.com/google/go-cmp/cmp"
	"slices"
	"sync"
	"testing"
	"time"
)

// MapFactory is a function that creates a new, empty SharedMap
type MapFactory func() sharedmap.SharedMap[string, int]

// RunSharedMapTests runs a comprehensive test suite for a SharedMap implementation.
func RunSharedMapTests(t *testing.T, name string, factory MapFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory())
		})

		t.Run("GetInsertsDefault", func(t *testing.T) {
			testGetInsertsDefault(t, factory())
		})

		t.Run("Lookup", func(t *testing.T) {
			testLookup(t, factory())
		})

		t.Run("Erase", func(t *testing.T) {
			testErase(t, factory())
		})

		t.Run("EraseFunc", func(t *testing.T) {
			testEraseFunc(t, factory())
		})

		t.Run("Clear", func(t *testing.T) {
			testClear(t, factory())
		})

		t.Run("Keys", func(t *testing.T) {
			testKeys(t, factory())
		})

		t.Run("Update", func(t *testing.T) {
			testUpdate(t, factory())
		})

		t.Run("NestedCalls", func(t *testing.T) {
			testNestedCalls(t, factory())
		})

		t.Run("NestedInSharedGuard", func(t *testing.T) {
			testNestedInSharedGuard(t, factory())
		})

		t.Run("Iteration", func(t *testing.T) {
			testIteration(t, factory())
		})

		t.Run("IterationHoldsLock", func(t *testing.T) {
			testIterationHoldsLock(t, factory())
		})

		t.Run("MutateDuringIteration", func(t *testing.T) {
			testMutateDuringIteration(t, factory())
		})

		t.Run("TryLockUnderContention", func(t *testing.T) {
			testTryLockUnderContention(t, factory())
		})

		t.Run("Visibility", func(t *testing.T) {
			testVisibility(t, factory())
		})

		t.Run("ConcurrentWriters", func(t *testing.T) {
			testConcurrentWriters(t, factory())
		})

		t.Run("ConcurrentUpdate", func(t *testing.T) {
			testConcurrentUpdate(t, factory())
		})

		t.Run("RealisticUsage", func(t *testing.T) {
			testRealisticUsage(t, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// withTimeout runs fn on a new goroutine and fails the test if it does not return in time
func withTimeout(t testing.TB, d time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("operation did not finish within %v (deadlock?)", d)
	}
}

// onOtherGoroutine runs fn on a new goroutine and waits for it
func onOtherGoroutine(fn func()) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
	wg.Wait()
}

// expectUpgradePanic fails the test unless fn panics with lock.ErrUpgrade
func expectUpgradePanic(t testing.TB, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Errorf("Expected a panic wrapping lock.ErrUpgrade, got none")
			return
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, lock.ErrUpgrade) {
			t.Errorf("Expected a panic wrapping lock.ErrUpgrade, got %v", r)
		}
	}()
	fn()
}

// sortedKeys returns the keys of the map in ascending order
func sortedKeys(m sharedmap.SharedMap[string, int]) []string {
	keys := m.Keys()
	slices.Sort(keys)
	return keys
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, m sharedmap.SharedMap[string, int]) {
	m.Set("test-key", 1)
	if v := m.Get("test-key"); v != 1 {
		t.Errorf("Expected value 1, got %d", v)
	}

	m.Set("test-key", 2)
	if v := m.Get("test-key"); v != 2 {
		t.Errorf("Expected value 2 after overwrite, got %d", v)
	}

	if m.Size() != 1 {
		t.Errorf("Expected size 1, got %d", m.Size())
	}
	if m.Empty() {
		t.Errorf("Expected map not to be empty")
	}
}

func testGetInsertsDefault(t *testing.T, m sharedmap.SharedMap[string, int]) {
	if !m.Empty() {
		t.Fatalf("Expected new map to be empty")
	}

	if v := m.Get("absent"); v != 0 {
		t.Errorf("Expected zero value for absent key, got %d", v)
	}
	if m.Count("absent") != 1 {
		t.Errorf("Expected Get to insert the absent key")
	}
	if m.Size() != 1 {
		t.Errorf("Expected size 1 after Get of absent key, got %d", m.Size())
	}

	// a second Get must not insert again
	m.Get("absent")
	if m.Size() != 1 {
		t.Errorf("Expected size 1 after repeated Get, got %d", m.Size())
	}
}

func testLookup(t *testing.T, m sharedmap.SharedMap[string, int]) {
	if _, found := m.Lookup("missing"); found {
		t.Errorf("Expected missing key not to be found")
	}
	if !m.Empty() {
		t.Errorf("Expected Lookup not to insert")
	}

	m.Set("key", 7)
	v, found := m.Lookup("key")
	if !found || v != 7 {
		t.Errorf("Expected (7, true), got (%d, %v)", v, found)
	}
}

func testErase(t *testing.T, m sharedmap.SharedMap[string, int]) {
	m.Set("a", 1)
	m.Set("b", 2)

	if n := m.Erase("a"); n != 1 {
		t.Errorf("Expected Erase of present key to return 1, got %d", n)
	}
	if m.Count("a") != 0 {
		t.Errorf("Expected erased key to be gone")
	}
	if n := m.Erase("a"); n != 0 {
		t.Errorf("Expected second Erase to return 0, got %d", n)
	}
	if n := m.Erase("never-set"); n != 0 {
		t.Errorf("Expected Erase of missing key to return 0, got %d", n)
	}
	if m.Size() != 1 || m.Count("b") != 1 {
		t.Errorf("Expected only key b to remain, got %v", m.Keys())
	}
}

func testEraseFunc(t *testing.T, m sharedmap.SharedMap[string, int]) {
	for i := 0; i < 100; i++ {
		m.Set(fmt.Sprintf("key-%03d", i), i)
	}

	removed := m.EraseFunc(func(_ string, v int) bool {
		return v%2 == 0
	})
	if removed != 50 {
		t.Errorf("Expected 50 removed entries, got %d", removed)
	}
	if m.Size() != 50 {
		t.Errorf("Expected 50 remaining entries, got %d", m.Size())
	}
	for k, v := range m.All() {
		if v%2 == 0 {
			t.Errorf("Expected even values to be erased, found %s=%d", k, v)
		}
	}

	if n := m.EraseFunc(func(string, int) bool { return false }); n != 0 {
		t.Errorf("Expected no entries removed, got %d", n)
	}
}

func testClear(t *testing.T, m sharedmap.SharedMap[string, int]) {
	// clearing an empty map is a no-op
	m.Clear()
	if !m.Empty() {
		t.Errorf("Expected empty map after Clear")
	}

	for i := 0; i < 10; i++ {
		m.Set(fmt.Sprintf("key-%d", i), i)
	}
	m.Clear()
	if !m.Empty() || m.Size() != 0 {
		t.Errorf("Expected empty map after Clear, got size %d", m.Size())
	}

	m.Clear()
	if !m.Empty() {
		t.Errorf("Expected second Clear to keep the map empty")
	}

	// the map stays usable
	m.Set("after", 1)
	if m.Size() != 1 {
		t.Errorf("Expected size 1 after Set following Clear, got %d", m.Size())
	}
}

func testKeys(t *testing.T, m sharedmap.SharedMap[string, int]) {
	var want []string
	for i := 0; i < 20; i++ {
		k := fmt.Sprintf("key-%02d", i)
		want = append(want, k)
		m.Set(k, i)
	}

	if diff := cmp.Diff(want, sortedKeys(m)); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}

	// Keys is a snapshot
	keys := m.Keys()
	m.Set("late", 0)
	if len(keys) != 20 {
		t.Errorf("Expected snapshot of 20 keys, got %d", len(keys))
	}
}

func testUpdate(t *testing.T, m sharedmap.SharedMap[string, int]) {
	v := m.Update("counter", func(v int, loaded bool) int {
		if loaded {
			t.Errorf("Expected counter not to exist yet")
		}
		return v + 1
	})
	if v != 1 {
		t.Errorf("Expected 1, got %d", v)
	}

	v = m.Update("counter", func(v int, loaded bool) int {
		if !loaded {
			t.Errorf("Expected counter to exist")
		}
		return v * 10
	})
	if v != 10 || m.Get("counter") != 10 {
		t.Errorf("Expected 10, got %d", v)
	}
}

func testNestedCalls(t *testing.T, m sharedmap.SharedMap[string, int]) {
	m.Set("b", 5)

	withTimeout(t, 2*time.Second, func() {
		// nested reads and writes inside an exclusive section
		m.Update("a", func(v int, _ bool) int {
			m.Set("c", m.Get("b")+1)
			m.Get("d") // absent, inserted while already holding the lock
			_ = m.Size()
			for range m.All() {
			}
			return v + m.Get("b")
		})
	})

	want := map[string]int{"a": 5, "b": 5, "c": 6, "d": 0}
	for k, v := range want {
		if got, found := m.Lookup(k); !found || got != v {
			t.Errorf("Expected %s=%d, got (%d, %v)", k, v, got, found)
		}
	}

	// the caller may compose several operations under the map's own lock
	withTimeout(t, 2*time.Second, func() {
		g := m.Locker().ReentrantExclusive()
		defer g.Unlock()
		if !g.Acquired() {
			t.Errorf("Expected outer guard to be a real acquisition")
		}
		if m.Count("e") == 0 {
			m.Set("e", 1)
		}
		m.Erase("a")
		m.Clear()
	})
	if !m.Empty() {
		t.Errorf("Expected empty map after composed Clear")
	}

	if holder := m.Locker().Owner(); holder != 0 {
		t.Errorf("Expected lock to be free after nested calls, owner is %d", holder)
	}
}

func testNestedInSharedGuard(t *testing.T, m sharedmap.SharedMap[string, int]) {
	m.Set("present", 1)

	withTimeout(t, 2*time.Second, func() {
		g := m.Locker().ReentrantShared()
		defer g.Unlock()

		if v, _ := m.Lookup("present"); v != 1 {
			t.Errorf("Expected nested Lookup to see 1, got %d", v)
		}
		if m.Get("present") != 1 || m.Size() != 1 {
			t.Errorf("Expected nested reads to succeed")
		}

		// an insert or write needs the exclusive lock
		expectUpgradePanic(t, func() { m.Get("absent") })
		expectUpgradePanic(t, func() { m.Set("present", 2) })

		if g2 := m.Locker().TryReentrantExclusive(); g2.OwnsLock() {
			t.Errorf("Expected try-upgrade to fail")
			g2.Unlock()
		}
	})

	if m.Count("absent") != 0 || m.Get("present") != 1 {
		t.Errorf("Expected failed upgrades to leave the map unchanged")
	}

	// the lock must be fully released again
	onOtherGoroutine(func() {
		g := m.Locker().TryLockExclusive()
		defer g.Unlock()
		if !g.OwnsLock() {
			t.Errorf("Expected lock to be free after the shared section")
		}
	})
}

func testIteration(t *testing.T, m sharedmap.SharedMap[string, int]) {
	want := map[string]int{}
	for i := 0; i < 50; i++ {
		k := fmt.Sprintf("key-%d", i)
		want[k] = i
		m.Set(k, i)
	}

	got := map[string]int{}
	for k, v := range m.All() {
		got[k] = v
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("All mismatch (-want +got):\n%s", diff)
	}

	// early break releases the lock
	n := 0
	for range m.All() {
		n++
		if n == 3 {
			break
		}
	}
	if n != 3 {
		t.Errorf("Expected 3 iterations before break, got %d", n)
	}
	withTimeout(t, 2*time.Second, func() {
		m.Set("after-break", 1)
	})
}

func testIterationHoldsLock(t *testing.T, m sharedmap.SharedMap[string, int]) {
	m.Set("a", 1)
	m.Set("b", 2)

	for range m.All() {
		onOtherGoroutine(func() {
			g := m.Locker().TryLockExclusive()
			defer g.Unlock()
			if g.OwnsLock() {
				t.Errorf("Expected writer to be excluded during iteration")
			}
		})
		onOtherGoroutine(func() {
			if _, found := m.Lookup("a"); !found {
				t.Errorf("Expected concurrent reader to see key a")
			}
		})
		break
	}

	onOtherGoroutine(func() {
		g := m.Locker().TryLockExclusive()
		defer g.Unlock()
		if !g.OwnsLock() {
			t.Errorf("Expected writer to succeed after iteration")
		}
	})
}

func testMutateDuringIteration(t *testing.T, m sharedmap.SharedMap[string, int]) {
	m.Set("a", 1)

	withTimeout(t, 2*time.Second, func() {
		expectUpgradePanic(t, func() {
			for k := range m.All() {
				m.Set(k, 2)
			}
		})
	})

	if v, _ := m.Lookup("a"); v != 1 {
		t.Errorf("Expected value to be unchanged, got %d", v)
	}

	// the iterator released its guard while panicking
	withTimeout(t, 2*time.Second, func() {
		m.Set("a", 3)
	})
}

func testTryLockUnderContention(t *testing.T, m sharedmap.SharedMap[string, int]) {
	holding := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		g := m.Locker().ReentrantExclusive()
		defer g.Unlock()
		m.Set("held", 1)
		close(holding)
		<-release
	}()
	<-holding

	if g := m.Locker().TryReentrantShared(); g.OwnsLock() {
		t.Errorf("Expected TryReentrantShared to fail while another goroutine writes")
		g.Unlock()
	}
	if g := m.Locker().TryReentrantExclusive(); g.OwnsLock() {
		t.Errorf("Expected TryReentrantExclusive to fail while another goroutine writes")
		g.Unlock()
	}

	close(release)
	<-done

	g := m.Locker().TryReentrantExclusive()
	if !g.OwnsLock() {
		t.Errorf("Expected TryReentrantExclusive to succeed after release")
	}
	g.Unlock()
}

func testVisibility(t *testing.T, m sharedmap.SharedMap[string, int]) {
	written := make(chan struct{})
	go func() {
		m.Set("shared", 42)
		close(written)
	}()
	<-written

	if v, found := m.Lookup("shared"); !found || v != 42 {
		t.Errorf("Expected (42, true) after concurrent Set, got (%d, %v)", v, found)
	}
}

func testConcurrentWriters(t *testing.T, m sharedmap.SharedMap[string, int]) {
	numWorkers := 8
	perWorker := 500

	var wg sync.WaitGroup
	wg.Add(numWorkers * 2)
	for w := 0; w < numWorkers; w++ {
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				m.Set(fmt.Sprintf("w%d-%d", worker, i), i)
			}
		}(w)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_ = m.Size()
				m.Lookup("w0-0")
			}
		}()
	}
	wg.Wait()

	if m.Size() != numWorkers*perWorker {
		t.Errorf("Expected %d entries, got %d", numWorkers*perWorker, m.Size())
	}
}

func testConcurrentUpdate(t *testing.T, m sharedmap.SharedMap[string, int]) {
	numWorkers := 8
	perWorker := 1000

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				m.Update("counter", func(v int, _ bool) int { return v + 1 })
			}
		}()
	}
	wg.Wait()

	if v := m.Get("counter"); v != numWorkers*perWorker {
		t.Errorf("Expected counter %d, got %d (lost updates)", numWorkers*perWorker, v)
	}
}

func testRealisticUsage(t *testing.T, m sharedmap.SharedMap[string, int]) {
	numWorkers := 8
	numOperations := 8_000
	opsPerWorker := numOperations / numWorkers

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func(workerId int) {
			defer wg.Done()
			start := workerId * opsPerWorker
			for i := start; i < start+opsPerWorker; i++ {
				key := fmt.Sprintf("key-%d", i%100)
				switch i % 10 {
				case 0, 1, 2:
					m.Set(key, i)
				case 3, 4:
					m.Update(key, func(v int, _ bool) int { return v + 1 })
				case 5, 6, 7:
					m.Lookup(key)
				case 8:
					m.Erase(key)
				case 9:
					for range m.All() {
					}
				}
			}
		}(w)
	}

	withTimeout(t, 30*time.Second, wg.Wait)

	if m.Size() > 100 {
		t.Errorf("Expected at most 100 keys, got %d", m.Size())
	}
}
