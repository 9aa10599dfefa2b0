package lockmgr

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/smap/lib/lock"
	"github.com/VictoriaMetrics/metrics"
	"strings"
	"sync"
	"testing"
	"time"
)

func onOtherGoroutine(fn func()) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
	wg.Wait()
}

func TestLockExcludesSameKey(t *testing.T) {
	mgr := NewLockManager(nil)

	h := mgr.Lock("a", lock.Exclusive)

	onOtherGoroutine(func() {
		if _, ok := mgr.TryLock("a", lock.Shared); ok {
			t.Errorf("Expected key a to be locked")
		}
		other, ok := mgr.TryLock("b", lock.Exclusive)
		if !ok {
			t.Errorf("Expected key b to be independent of key a")
		}
		other.Unlock()
	})

	h.Unlock()

	onOtherGoroutine(func() {
		h, ok := mgr.TryLock("a", lock.Exclusive)
		if !ok {
			t.Errorf("Expected key a to be free after Unlock")
		}
		h.Unlock()
	})

	if mgr.Len() != 0 {
		t.Errorf("Expected no keys left, got %d", mgr.Len())
	}
}

func TestSharedHolders(t *testing.T) {
	mgr := NewLockManager(nil)

	h := mgr.Lock("a", lock.Shared)
	defer h.Unlock()

	onOtherGoroutine(func() {
		other, ok := mgr.TryLock("a", lock.Shared)
		if !ok {
			t.Errorf("Expected a second shared holder to be admitted")
			return
		}
		defer other.Unlock()
		if _, ok := mgr.TryLock("a", lock.Exclusive); ok {
			t.Errorf("Expected exclusive lock to fail while shared holders exist")
		}
	})
}

func TestReentrantHandles(t *testing.T) {
	mgr := NewLockManager(nil)

	outer := mgr.Lock("a", lock.Exclusive)
	inner := mgr.Lock("a", lock.Exclusive)
	shared, ok := mgr.TryLock("a", lock.Shared)
	if !ok {
		t.Fatalf("Expected shared reentry into an exclusive lock to succeed")
	}

	if !inner.guard.Reentered() || !shared.guard.Reentered() {
		t.Errorf("Expected nested handles to be reentries")
	}
	if outer.ID() == inner.ID() {
		t.Errorf("Expected distinct handle ids")
	}

	shared.Unlock()
	inner.Unlock()
	if mgr.Len() != 1 {
		t.Errorf("Expected key to be kept while the outer handle exists")
	}

	onOtherGoroutine(func() {
		if _, ok := mgr.TryLock("a", lock.Shared); ok {
			t.Errorf("Expected key a to stay locked by the outer handle")
		}
	})

	outer.Unlock()
	if mgr.Len() != 0 {
		t.Errorf("Expected key to be removed after the last handle, got %d keys", mgr.Len())
	}
}

func TestUnlockIdempotent(t *testing.T) {
	mgr := NewLockManager(nil)

	h1 := mgr.Lock("a", lock.Shared)
	onOtherGoroutine(func() {
		h2 := mgr.Lock("a", lock.Shared)
		h2.Unlock()
		h2.Unlock()
	})

	if mgr.Len() != 1 {
		t.Errorf("Expected double Unlock not to drop the other reference")
	}
	h1.Unlock()
	h1.Unlock()
	if mgr.Len() != 0 {
		t.Errorf("Expected no keys left, got %d", mgr.Len())
	}

	var nilHandle *Handle
	nilHandle.Unlock()
}

func TestUpgradeDoesNotLeak(t *testing.T) {
	mgr := NewLockManager(nil)

	h := mgr.Lock("a", lock.Shared)

	if _, ok := mgr.TryLock("a", lock.Exclusive); ok {
		t.Errorf("Expected try-upgrade to fail")
	}

	func() {
		defer func() {
			r := recover()
			err, ok := r.(error)
			if !ok || !errors.Is(err, lock.ErrUpgrade) {
				t.Errorf("Expected panic with lock.ErrUpgrade, got %v", r)
			}
		}()
		mgr.Lock("a", lock.Exclusive)
	}()

	h.Unlock()
	if mgr.Len() != 0 {
		t.Errorf("Expected failed upgrades to release their references, got %d keys", mgr.Len())
	}
}

func TestConcurrentKeys(t *testing.T) {
	mgr := NewLockManager(nil)

	numWorkers := 16
	perWorker := 500
	counters := make([]int, 4)

	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				idx := (worker + i) % len(counters)
				h := mgr.Lock(fmt.Sprintf("counter-%d", idx), lock.Exclusive)
				counters[idx]++
				h.Unlock()
			}
		}(w)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatalf("workers did not finish (deadlock?)")
	}

	total := 0
	for _, c := range counters {
		total += c
	}
	if total != numWorkers*perWorker {
		t.Errorf("Expected %d increments, got %d", numWorkers*perWorker, total)
	}
	if mgr.Len() != 0 {
		t.Errorf("Expected all keys to be released, got %d", mgr.Len())
	}
}

func TestMetricsDoNotGrowWithKeys(t *testing.T) {
	exported := func(set *metrics.Set) string {
		var sb strings.Builder
		set.WritePrometheus(&sb)
		return sb.String()
	}
	// histogram buckets depend on the observed waits, count the series without them
	series := func(out string) int {
		n := 0
		for _, line := range strings.Split(out, "\n") {
			if line != "" && !strings.Contains(line, "_bucket{") {
				n++
			}
		}
		return n
	}

	single := metrics.NewSet()
	one := NewLockManager(&Options{Metrics: single})
	one.Lock("key-0", lock.Exclusive).Unlock()

	set := metrics.NewSet()
	mgr := NewLockManager(&Options{Metrics: set})
	numKeys := 1000
	for i := 0; i < numKeys; i++ {
		mgr.Lock(fmt.Sprintf("key-%d", i), lock.Exclusive).Unlock()
	}

	if mgr.Len() != 0 {
		t.Errorf("Expected no keys left, got %d", mgr.Len())
	}

	out := exported(set)
	if got, want := series(out), series(exported(single)); got != want {
		t.Errorf("Expected %d exported series (same as for a single key), got %d", want, got)
	}
	if strings.Contains(out, `lock="key-`) {
		t.Errorf("Expected no per-key series, got:\n%s", out)
	}
	want := fmt.Sprintf(`smap_lock_acquired_total{lock="lockmgr",mode="exclusive"} %d`, numKeys)
	if !strings.Contains(out, want) {
		t.Errorf("Expected aggregated counter %q, got:\n%s", want, out)
	}
}

func TestCustomName(t *testing.T) {
	set := metrics.NewSet()
	mgr := NewLockManager(&Options{Name: "sessions", Metrics: set})
	h, ok := mgr.TryLock("a", lock.Shared)
	if !ok {
		t.Fatalf("Expected TryLock on a free key to succeed")
	}
	h.Unlock()

	var sb strings.Builder
	set.WritePrometheus(&sb)
	if !strings.Contains(sb.String(), `smap_lock_acquired_total{lock="sessions",mode="shared"} 1`) {
		t.Errorf("Expected statistics under the configured name, got:\n%s", sb.String())
	}
}
