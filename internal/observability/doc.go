// Package observability groups the logging, metrics and tracing
// infrastructure shared by the API server and the worker.
//
// Subpackages:
//   - logging: slog JSON logger with request id propagation
//   - metrics: Prometheus collectors and recorders
//   - tracing: OpenTelemetry tracer setup and HTTP middleware
package observability
