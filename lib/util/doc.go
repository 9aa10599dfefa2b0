// Package util provides helpers for workload tools built on the shared maps.
//
// The package contains:
//   - statistics: summary statistics and a fairness rating for per-worker
//     operation counts (NewStats, NewDistributionStats)
//   - functions: seeding of pseudo random generators (GenerateSeed)
package util
