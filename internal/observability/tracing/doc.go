// Package tracing wires OpenTelemetry into the service.
//
// InitTracerProvider installs an SDK tracer provider as the global provider.
// Middleware starts a server span per HTTP request and StartSpan opens child
// spans around migration, rollback and cleanup work.
//
//	shutdown := tracing.InitTracerProvider("jules-backend", 1.0)
//	defer shutdown(context.Background())
//
//	ctx, span := tracing.StartSpan(ctx, "migration.migrate")
//	defer span.End()
package tracing
