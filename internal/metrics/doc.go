// Package metrics serves the watcher's HTTP status surface.
//
// Routes:
//   - GET /healthz: liveness
//   - GET /tournaments: connectivity of every watched tournament
//   - GET /tournaments/{id}: one tournament, with event counters
//   - GET /stats: router and journal counters
//   - GET /version: build information
package metrics
