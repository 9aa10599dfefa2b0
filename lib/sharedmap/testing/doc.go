// Package testing provides standardised tests and benchmarks for
// map implementations that satisfy the sharedmap.SharedMap interface.
//
// The package contains:
//   - testing: a conformance suite covering the map operations, reentrant
//     nesting, lock upgrades, lock-holding iteration and concurrent use
//   - benchmark: throughput of common map operations under parallel load
//
// Example usage:
//
//	factory := func() sharedmap.SharedMap[string, int] {
//		return sharedmap.NewHashed[string, int](nil)
//	}
//
//	// Running the standard test suite
//	testing.RunSharedMapTests(t, "Hashed", factory)
//
//	// Running performance benchmarks
//	testing.RunSharedMapBenchmarks(b, "Hashed", factory)
package testing
