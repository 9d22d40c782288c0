// SPDX-License-Identifier: MPL-2.0

// Package benchmark holds benchmarks over the hot paths of fnlbuild, used
// to produce PGO profiles:
//   - source collection and include following
//   - handle resolution with both search backends
//   - configuration loading and environment preparation
//   - build output scanning
//
// To generate a profile, run:
//
//	go test -run=^$ -bench=. -cpuprofile=default.pgo ./internal/benchmark
package benchmark
