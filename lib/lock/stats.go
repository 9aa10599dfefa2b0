package lock

import (
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	"time"
)

// lockStats exports acquisition statistics of one Locker, indexed by Mode.
// A nil *lockStats records nothing.
type lockStats struct {
	acquiredTotal  [2]*metrics.Counter
	reenteredTotal [2]*metrics.Counter
	tryFailedTotal [2]*metrics.Counter
	waitSeconds    [2]*metrics.Histogram
}

func newLockStats(set *metrics.Set, name string) *lockStats {
	s := &lockStats{}
	for _, mode := range []Mode{Shared, Exclusive} {
		labels := fmt.Sprintf(`{lock=%q,mode=%q}`, name, mode.String())
		s.acquiredTotal[mode] = set.GetOrCreateCounter("smap_lock_acquired_total" + labels)
		s.reenteredTotal[mode] = set.GetOrCreateCounter("smap_lock_reentered_total" + labels)
		s.tryFailedTotal[mode] = set.GetOrCreateCounter("smap_lock_try_failed_total" + labels)
		s.waitSeconds[mode] = set.GetOrCreateHistogram("smap_lock_wait_seconds" + labels)
	}
	return s
}

func (s *lockStats) acquired(mode Mode, wait time.Duration) {
	if s == nil {
		return
	}
	s.acquiredTotal[mode].Inc()
	s.waitSeconds[mode].Update(wait.Seconds())
}

func (s *lockStats) reentered(mode Mode) {
	if s == nil {
		return
	}
	s.reenteredTotal[mode].Inc()
}

func (s *lockStats) tryFailed(mode Mode) {
	if s == nil {
		return
	}
	s.tryFailedTotal[mode].Inc()
}
