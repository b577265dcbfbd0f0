// Package tracing provides OpenTelemetry tracing integration.
//
// Spans are created through the global tracer provider. Without an
// installed SDK provider they are no-ops, so instrumented code pays almost
// nothing when tracing is not configured.
//
//   - StartSpan: internal spans (one per sampling cycle)
//   - Middleware: server spans for HTTP handlers
//
// Example usage:
//
//	func cycle(ctx context.Context) {
//	    ctx, span := tracing.StartSpan(ctx, "sampler.cycle")
//	    defer span.End()
//	    // ... draw and publish ...
//	}
package tracing
