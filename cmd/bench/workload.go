package bench

import (
	"fmt"
	"github.com/ValentinKolb/smap/lib/lock"
	"github.com/ValentinKolb/smap/lib/lockmgr"
	"github.com/ValentinKolb/smap/lib/sharedmap"
	"github.com/ValentinKolb/smap/lib/util"
	vmetrics "github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
	"math/rand/v2"
	"sync"
	"time"
)

// operation names, also used as timer names
const (
	opLookup = "lookup"
	opSet    = "set"
	opUpdate = "update"
	opErase  = "erase"
	opKeyed  = "keyed-rmw"
)

var operations = []string{opLookup, opSet, opUpdate, opErase, opKeyed}

// Result holds the measurements of one workload run
type Result struct {
	Config   *Config
	Duration time.Duration
	PerOp    map[string]gometrics.Timer
	Fairness util.DistributionStats

	data     sharedmap.SharedMap[string, int]
	timers   gometrics.Registry
	lockInfo *vmetrics.Set
}

// Throughput returns the completed operations per second.
func (r *Result) Throughput() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Config.Workers*r.Config.Ops) / r.Duration.Seconds()
}

// Map returns the map the workload ran against, in its final state.
func (r *Result) Map() sharedmap.SharedMap[string, int] {
	return r.data
}

// newMap creates the map selected by the configuration
func newMap(c *Config, set *vmetrics.Set) sharedmap.SharedMap[string, int] {
	opts := sharedmap.DefaultOptions()
	opts.Name = "bench"
	opts.Metrics = set
	opts.WarnAfter = c.WarnAfter

	if c.MapKind == sharedmap.KindHashed {
		opts.Capacity = c.Keys
		return sharedmap.NewHashed[string, int](opts)
	}
	return sharedmap.NewOrdered[string, int](opts)
}

// Run executes the workload and blocks until all workers are done.
func Run(c *Config) *Result {
	set := vmetrics.NewSet()
	registry := gometrics.NewRegistry()

	timers := make(map[string]gometrics.Timer, len(operations))
	for _, op := range operations {
		timers[op] = gometrics.GetOrRegisterTimer(op, registry)
	}

	m := newMap(c, set)
	var mgr lockmgr.ILockManager
	if c.Keyed {
		mgr = lockmgr.NewLockManager(&lockmgr.Options{Metrics: set, WarnAfter: c.WarnAfter})
	}

	keys := make([]string, c.Keys)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%06d", i)
		m.Set(keys[i], 0)
	}

	completed := make([]float64, c.Workers)
	var wg sync.WaitGroup
	wg.Add(c.Workers)

	start := time.Now()
	for w := 0; w < c.Workers; w++ {
		go func(worker int) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(util.GenerateSeed(), uint64(worker)))
			for i := 0; i < c.Ops; i++ {
				runOp(c, m, mgr, keys, rng, timers)
				completed[worker]++
			}
			plog.Debugf("worker %d finished %d ops", worker, c.Ops)
		}(w)
	}
	wg.Wait()

	return &Result{
		Config:   c,
		Duration: time.Since(start),
		PerOp:    timers,
		Fairness: util.NewDistributionStats(completed),
		data:     m,
		timers:   registry,
		lockInfo: set,
	}
}

// runOp performs one random operation and records its latency.
func runOp(c *Config, m sharedmap.SharedMap[string, int], mgr lockmgr.ILockManager, keys []string, rng *rand.Rand, timers map[string]gometrics.Timer) {
	key := keys[rng.IntN(len(keys))]
	start := time.Now()

	if rng.Float64() < c.ReadRatio {
		m.Lookup(key)
		timers[opLookup].UpdateSince(start)
		return
	}

	if mgr != nil {
		// read-modify-write made atomic by the key's lock, not by the map
		h := mgr.Lock(key, lock.Exclusive)
		v, _ := m.Lookup(key)
		m.Set(key, v+1)
		h.Unlock()
		timers[opKeyed].UpdateSince(start)
		return
	}

	switch n := rng.IntN(10); {
	case n < 5:
		m.Set(key, rng.Int())
		timers[opSet].UpdateSince(start)
	case n < 9:
		other := keys[rng.IntN(len(keys))]
		m.Update(key, func(v int, _ bool) int {
			return v + m.Get(other)%3 + 1
		})
		timers[opUpdate].UpdateSince(start)
	default:
		m.Erase(key)
		timers[opErase].UpdateSince(start)
	}
}
