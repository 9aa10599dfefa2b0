package lockmgr

import (
	"github.com/ValentinKolb/smap/lib/lock"
	"github.com/VictoriaMetrics/metrics"
	"time"
)

// ILockManager hands out reentrant reader/writer locks identified by a key.
type ILockManager interface {
	// Lock blocks until the lock for key is held in the given mode and returns
	// a handle that must be released with Unlock. The lock is reentrant: a
	// goroutine already holding it is not blocked. Requesting lock.Exclusive
	// while holding the key shared panics with lock.ErrUpgrade.
	Lock(key string, mode lock.Mode) *Handle

	// TryLock is the non-blocking variant of Lock. The boolean reports whether
	// the lock was acquired; on false the handle is nil.
	TryLock(key string, mode lock.Mode) (*Handle, bool)

	// Len returns the number of keys that currently have at least one handle.
	Len() int
}

const (
	defaultName = "lockmgr"
)

// Options configures the lock manager
type Options struct {
	Name      string        // Lock name shared by all keys in logs and metrics (empty = "lockmgr")
	Metrics   *metrics.Set  // Optional set for lock statistics, aggregated over all keys (nil = none)
	WarnAfter time.Duration // Warn about lock waits longer than this (0 = never)
}

// DefaultOptions returns the default lock manager options
func DefaultOptions() *Options {
	return &Options{
		Name: defaultName,
	}
}
