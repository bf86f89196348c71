// Package metrics provides the Prometheus collectors shared by the API server
// and the reaper worker.
//
// It covers:
//   - HTTP request metrics (count, duration, size, in-flight)
//   - Anonymous session metrics (creation, resolution outcome, active gauge)
//   - Usage metrics (increments and denials per feature)
//   - Migration and reaper metrics
//
// All collectors register with the default Prometheus registry and are
// exposed on /metrics.
//
// Example usage:
//
//	metrics.RecordSessionResolution(metrics.ResolutionAdopted)
//	metrics.RecordMigration("success", fitChecksMoved, conversationsMoved)
package metrics
