package sharedmap

import (
	"github.com/ValentinKolb/smap/lib/lock"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"time"
)

var plog = logger.GetLogger("sharedmap")

const (
	defaultDegree = 32 // B-tree degree of ordered maps
)

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options configures a map during initialization
type Options struct {
	Name      string        // Name of the map (used for the lock name in logs and metrics)
	Metrics   *metrics.Set  // Optional set for lock statistics (nil = none)
	WarnAfter time.Duration // Warn about lock waits longer than this (0 = never)
	Degree    int           // B-tree degree (ordered maps only, 0 = default)
	Capacity  int           // Initial capacity (hashed maps only)
}

// DefaultOptions returns the default map options
func DefaultOptions() *Options {
	return &Options{
		Name:   "sharedmap",
		Degree: defaultDegree,
	}
}

func (o *Options) lockOptions() *lock.Options {
	return &lock.Options{
		Name:      o.Name,
		Metrics:   o.Metrics,
		WarnAfter: o.WarnAfter,
	}
}

// --------------------------------------------------------------------------
// Container
// --------------------------------------------------------------------------

// container is the unsynchronized storage behind a map.
// All methods are called with the map's lock held in the appropriate mode.
type container[K any, V any] interface {
	load(key K) (V, bool)
	store(key K, value V)
	remove(key K) bool
	size() int
	reset()
	// ascend calls yield for every entry until it returns false
	ascend(yield func(K, V) bool)
}
