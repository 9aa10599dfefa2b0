package lock

import (
	"errors"
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// runWithTimeout runs fn in a new goroutine and fails the test if it does not return in time.
// Used to turn a deadlock into a test failure.
func runWithTimeout(t *testing.T, d time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("did not return within %v (deadlock?)", d)
	}
}

// onOtherGoroutine runs fn on a different goroutine and waits for it.
func onOtherGoroutine(fn func()) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		fn()
	}()
	wg.Wait()
}

// tryFromOther reports whether another goroutine could acquire the lock in the given mode right now.
func tryFromOther(l *Locker, mode Mode) (ok bool) {
	onOtherGoroutine(func() {
		var g *Guard
		if mode == Exclusive {
			g = l.TryLockExclusive()
		} else {
			g = l.TryLockShared()
		}
		ok = g.OwnsLock()
		g.Unlock()
	})
	return ok
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func TestZeroValueLocker(t *testing.T) {
	var l Locker

	g := l.ReentrantExclusive()
	if !g.OwnsLock() || !g.Acquired() || g.Reentered() {
		t.Fatalf("expected a really acquired guard, got owns=%v acquired=%v reentered=%v", g.OwnsLock(), g.Acquired(), g.Reentered())
	}
	if g.Mode() != Exclusive {
		t.Errorf("expected mode exclusive, got %s", g.Mode())
	}
	if l.Name() != "unnamed" {
		t.Errorf("expected default name 'unnamed', got %s", l.Name())
	}
	g.Unlock()

	if l.Owner() != 0 {
		t.Errorf("expected no owner after unlock, got goroutine %d", l.Owner())
	}
}

func TestMutualExclusion(t *testing.T) {
	var (
		l          Locker
		wg         sync.WaitGroup
		active     atomic.Int32
		violations atomic.Int32
		counter    int
	)

	const (
		numGoroutines = 16
		numIterations = 500
	)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < numIterations; j++ {
				g := l.ReentrantExclusive()
				if active.Add(1) != 1 {
					violations.Add(1)
				}
				counter++
				runtime.Gosched()
				active.Add(-1)
				g.Unlock()
			}
		}()
	}
	wg.Wait()

	if v := violations.Load(); v > 0 {
		t.Errorf("detected %d overlapping exclusive sections", v)
	}
	if counter != numGoroutines*numIterations {
		t.Errorf("expected counter %d, got %d", numGoroutines*numIterations, counter)
	}
}

func TestSharedExcludesExclusive(t *testing.T) {
	var (
		l          Locker
		wg         sync.WaitGroup
		readers    atomic.Int32
		writers    atomic.Int32
		violations atomic.Int32
	)

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 300; j++ {
				g := l.ReentrantShared()
				readers.Add(1)
				if writers.Load() != 0 {
					violations.Add(1)
				}
				runtime.Gosched()
				readers.Add(-1)
				g.Unlock()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				g := l.ReentrantExclusive()
				writers.Add(1)
				if readers.Load() != 0 || writers.Load() != 1 {
					violations.Add(1)
				}
				runtime.Gosched()
				writers.Add(-1)
				g.Unlock()
			}
		}()
	}
	wg.Wait()

	if v := violations.Load(); v > 0 {
		t.Errorf("detected %d overlaps between shared and exclusive sections", v)
	}
}

func TestSharedConcurrency(t *testing.T) {
	var l Locker

	holding := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		g := l.ReentrantShared()
		defer g.Unlock()
		close(holding)
		<-release
	}()
	<-holding

	// a second reader on another goroutine is admitted at the same time
	g := l.ReentrantShared()
	if !g.Acquired() {
		t.Fatalf("expected the second reader to acquire the lock itself")
	}
	if n := l.SharedHolders(); n != 2 {
		t.Errorf("expected 2 shared holders, got %d", n)
	}
	if tryFromOther(&l, Exclusive) {
		t.Errorf("exclusive try should fail while readers hold the lock")
	}
	g.Unlock()

	close(release)
	<-done

	if n := l.SharedHolders(); n != 0 {
		t.Errorf("expected 0 shared holders after release, got %d", n)
	}
	if !tryFromOther(&l, Exclusive) {
		t.Errorf("exclusive try should succeed after all readers released")
	}
}

func TestReentrancy(t *testing.T) {
	var l Locker

	runWithTimeout(t, 2*time.Second, func() {
		outer := l.ReentrantExclusive()
		if !outer.Acquired() {
			t.Errorf("outer guard should acquire the lock")
		}

		shared := l.ReentrantShared()
		if !shared.Reentered() || !shared.OwnsLock() {
			t.Errorf("shared guard inside exclusive should be a reentry")
		}

		inner := l.ReentrantExclusive()
		if !inner.Reentered() {
			t.Errorf("nested exclusive guard should be a reentry")
		}

		if mode, ok := l.HeldByCurrent(); !ok || mode != Exclusive {
			t.Errorf("expected current goroutine to hold the lock exclusively, got %s %v", mode, ok)
		}

		inner.Unlock()
		shared.Unlock()

		// still held after releasing the reentries
		if tryFromOther(&l, Shared) {
			t.Errorf("lock must still be held by the outer guard")
		}

		outer.Unlock()
		if _, ok := l.HeldByCurrent(); ok {
			t.Errorf("lock should not be held after releasing the outer guard")
		}
	})

	if !tryFromOther(&l, Exclusive) {
		t.Errorf("lock should be free after the outer guard was released")
	}
}

func TestNestedSharedWithWaitingWriter(t *testing.T) {
	var l Locker

	writerDone := make(chan struct{})

	// a second plain RLock would block here because a writer is waiting
	runWithTimeout(t, 2*time.Second, func() {
		outer := l.ReentrantShared()

		// queue a writer behind the reader
		go func() {
			defer close(writerDone)
			l.LockExclusive().Unlock()
		}()
		time.Sleep(50 * time.Millisecond)

		inner := l.TryReentrantShared()
		if !inner.Reentered() {
			t.Errorf("nested try shared acquisition should be a reentry")
		}
		inner2 := l.ReentrantShared()
		if !inner2.Reentered() {
			t.Errorf("nested blocking shared acquisition should be a reentry")
		}
		inner2.Unlock()
		inner.Unlock()

		select {
		case <-writerDone:
			t.Errorf("writer must wait until the outer reader is released")
		default:
		}

		outer.Unlock()
	})

	select {
	case <-writerDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("writer did not get the lock after the reader released it")
	}
}

func TestTryLockUnderContention(t *testing.T) {
	var l Locker

	g := l.ReentrantExclusive()

	if tryFromOther(&l, Shared) {
		t.Errorf("try shared should fail while another goroutine holds the lock exclusively")
	}
	if tryFromOther(&l, Exclusive) {
		t.Errorf("try exclusive should fail while another goroutine holds the lock exclusively")
	}
	onOtherGoroutine(func() {
		if tg := l.TryReentrantShared(); tg.OwnsLock() {
			t.Errorf("try reentrant shared should fail on another goroutine")
		}
		if tg := l.TryReentrantExclusive(); tg.OwnsLock() {
			t.Errorf("try reentrant exclusive should fail on another goroutine")
		}
	})

	g.Unlock()

	if !tryFromOther(&l, Shared) {
		t.Errorf("try shared should succeed after release")
	}
	if !tryFromOther(&l, Exclusive) {
		t.Errorf("try exclusive should succeed after release")
	}
}

func TestUpgrade(t *testing.T) {
	var l Locker

	g := l.ReentrantShared()
	defer g.Unlock()

	if tg := l.TryReentrantExclusive(); tg.OwnsLock() {
		t.Fatalf("try upgrade must fail")
	}

	func() {
		defer func() {
			r := recover()
			err, ok := r.(error)
			if !ok || !errors.Is(err, ErrUpgrade) {
				t.Errorf("expected panic with ErrUpgrade, got %v", r)
			}
		}()
		l.ReentrantExclusive()
	}()

	// the shared hold is untouched by the failed upgrade
	if mode, ok := l.HeldByCurrent(); !ok || mode != Shared {
		t.Errorf("expected shared hold to survive the upgrade attempt")
	}
}

func TestGuardUnlock(t *testing.T) {
	var l Locker

	g := l.ReentrantExclusive()
	g.Unlock()
	g.Unlock() // second unlock is a no-op

	if g.OwnsLock() {
		t.Errorf("released guard must not report ownership")
	}

	// a failed guard can be unlocked safely
	holder := l.LockExclusive()
	onOtherGoroutine(func() {
		failed := l.TryReentrantExclusive()
		failed.Unlock()
	})
	holder.Unlock()

	if !tryFromOther(&l, Exclusive) {
		t.Errorf("lock should be free")
	}
}

func TestPlainGuards(t *testing.T) {
	var l Locker

	g := l.LockShared()
	if !g.OwnsLock() || !g.Acquired() {
		t.Fatalf("plain shared guard should own the lock")
	}
	if !tryFromOther(&l, Shared) {
		t.Errorf("second reader should be admitted")
	}
	if _, ok := l.HeldByCurrent(); ok {
		t.Errorf("plain guards must not be recorded in the registry")
	}
	g.Unlock()

	g = l.TryLockExclusive()
	if !g.OwnsLock() {
		t.Fatalf("try exclusive on a free lock should succeed")
	}
	if tryFromOther(&l, Shared) {
		t.Errorf("reader must be excluded by the plain exclusive guard")
	}
	g.Unlock()
}

func TestStats(t *testing.T) {
	set := metrics.NewSet()
	l := New(&Options{Name: "stats-test", Metrics: set})

	counter := func(name string, mode Mode) uint64 {
		return set.GetOrCreateCounter(fmt.Sprintf(`%s{lock="stats-test",mode=%q}`, name, mode.String())).Get()
	}

	g := l.ReentrantExclusive()
	l.ReentrantShared().Unlock()
	onOtherGoroutine(func() {
		l.TryLockShared().Unlock()
	})
	g.Unlock()

	if n := counter("smap_lock_acquired_total", Exclusive); n != 1 {
		t.Errorf("expected 1 exclusive acquisition, got %d", n)
	}
	if n := counter("smap_lock_reentered_total", Shared); n != 1 {
		t.Errorf("expected 1 shared reentry, got %d", n)
	}
	if n := counter("smap_lock_try_failed_total", Shared); n != 1 {
		t.Errorf("expected 1 failed shared try, got %d", n)
	}
}

func TestReentryDepth(t *testing.T) {
	var l Locker

	if d := l.ReentryDepth(); d != 0 {
		t.Fatalf("expected depth 0 without holding the lock, got %d", d)
	}

	outer := l.ReentrantExclusive()
	inner := l.ReentrantExclusive()
	shared := l.ReentrantShared()
	if d := l.ReentryDepth(); d != 2 {
		t.Errorf("expected depth 2 with two reentered guards, got %d", d)
	}
	shared.Unlock()
	inner.Unlock()
	if d := l.ReentryDepth(); d != 0 {
		t.Errorf("expected depth 0 after releasing the reentries, got %d", d)
	}
	outer.Unlock()

	reader := l.ReentrantShared()
	nested := l.TryReentrantShared()
	if d := l.ReentryDepth(); d != 1 {
		t.Errorf("expected shared depth 1, got %d", d)
	}
	onOtherGoroutine(func() {
		if d := l.ReentryDepth(); d != 0 {
			t.Errorf("expected depth 0 on a goroutine not holding the lock, got %d", d)
		}
	})
	nested.Unlock()
	reader.Unlock()
	if l.SharedHolders() != 0 {
		t.Errorf("expected no shared holders, got %d", l.SharedHolders())
	}
}

func TestOutOfOrderRelease(t *testing.T) {
	var l Locker

	runWithTimeout(t, 2*time.Second, func() {
		outer := l.ReentrantExclusive()
		inner := l.ReentrantExclusive()

		// releasing the acquiring guard first frees the lock despite the open reentry
		outer.Unlock()
		if l.Owner() != 0 || l.ReentryDepth() != 0 {
			t.Errorf("expected registry to be cleared, owner %d depth %d", l.Owner(), l.ReentryDepth())
		}

		// another goroutine takes over
		taken := make(chan struct{})
		release := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			g := l.ReentrantExclusive()
			defer g.Unlock()
			l.ReentrantExclusive().Unlock()
			close(taken)
			<-release
		}()
		<-taken

		// the stale reentered guard must not touch the new owner's state
		owner := l.Owner()
		inner.Unlock()
		if l.Owner() != owner {
			t.Errorf("expected owner %d to be unaffected, got %d", owner, l.Owner())
		}
		if tryFromOther(&l, Shared) {
			t.Errorf("expected the new owner to still hold the lock")
		}

		close(release)
		<-done
	})

	if !tryFromOther(&l, Exclusive) {
		t.Errorf("expected lock to be free at the end")
	}
}
