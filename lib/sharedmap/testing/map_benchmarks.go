package testing

import (
	"fmt"
	"github.com/ValentinKolb/smap/lib/sharedmap"
	"sync/atomic"
	"testing"
)

// RunSharedMapBenchmarks runs all benchmarks for a SharedMap implementation
func RunSharedMapBenchmarks(b *testing.B, name string, factory MapFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, factory())
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory())
		})

		b.Run("Update", func(b *testing.B) {
			benchmarkUpdate(b, factory())
		})

		b.Run("NestedUpdate", func(b *testing.B) {
			benchmarkNestedUpdate(b, factory())
		})

		b.Run("MixedUsage", func(b *testing.B) {
			benchmarkMixedUsage(b, factory())
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func prefill(m sharedmap.SharedMap[string, int], n int) []string {
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		keys[i] = fmt.Sprintf("test-key-%d", i)
		m.Set(keys[i], i)
	}
	return keys
}

// Benchmark for Set operation
func benchmarkSet(b *testing.B, m sharedmap.SharedMap[string, int]) {
	var counter int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := atomic.AddInt64(&counter, 1)
			m.Set(fmt.Sprintf("test-key-%d", i), int(i))
		}
	})
}

// Benchmark for Get operation on existing keys
func benchmarkGet(b *testing.B, m sharedmap.SharedMap[string, int]) {
	keys := prefill(m, 10_000)
	var counter int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			idx := int(atomic.AddInt64(&counter, 1)) % len(keys)
			m.Get(keys[idx])
		}
	})
}

// Benchmark for read-modify-write on a small set of hot keys
func benchmarkUpdate(b *testing.B, m sharedmap.SharedMap[string, int]) {
	keys := prefill(m, 16)
	var counter int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			idx := int(atomic.AddInt64(&counter, 1)) % len(keys)
			m.Update(keys[idx], func(v int, _ bool) int { return v + 1 })
		}
	})
}

// Benchmark for the reentrant path (nested calls inside an exclusive section)
func benchmarkNestedUpdate(b *testing.B, m sharedmap.SharedMap[string, int]) {
	keys := prefill(m, 1_000)
	var counter int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			idx := int(atomic.AddInt64(&counter, 1)) % len(keys)
			m.Update(keys[idx], func(v int, _ bool) int {
				return v + m.Get(keys[(idx+1)%len(keys)])%7
			})
		}
	})
}

// Benchmark for mixed usage patterns
func benchmarkMixedUsage(b *testing.B, m sharedmap.SharedMap[string, int]) {
	keys := prefill(m, 10_000)
	var counter int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		localCounter := 0
		for pb.Next() {
			idx := int(atomic.AddInt64(&counter, 1)-1) % len(keys)
			key := keys[idx]

			// 0-5: lookup, 6-7: set, 8: update, 9: erase
			switch localCounter % 10 {
			case 0, 1, 2, 3, 4, 5:
				m.Lookup(key)
			case 6, 7:
				m.Set(key, localCounter)
			case 8:
				m.Update(key, func(v int, _ bool) int { return v + 1 })
			case 9:
				m.Erase(key)
			}
			localCounter++
		}
	})
}
