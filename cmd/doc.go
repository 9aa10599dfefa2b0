// Package cmd implements the command-line interface of smap.
//
// The package is organized into several subpackages:
//
//   - bench: Concurrent workloads against the shared maps (latency, lock
//     statistics and worker fairness)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set through the environment (SMAP_<FLAG>, dashes
// replaced by underscores) or a .env / .env.local file.
//
// See smap -help for a list of all commands.
package cmd
