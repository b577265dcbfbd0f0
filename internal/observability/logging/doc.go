// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the application.
//
// Key features:
//   - JSON, text and console output formats
//   - Request ID propagation
//   - Configurable log levels
//
// The console format prints "[LEVEL] message" lines. Info and debug lines
// drop attributes, so the sampler's per-cycle line reads the same as a
// plain log line; warnings and errors keep them as key=value pairs:
//
//	[INFO] Pending:14 On-the-way:9 AvgTime:27.31s Total:71
//	[WARNING] Configuration fallback applied field=MetricsPort warning="Invalid METRICS_PORT='x'"
//
// Example usage:
//
//	import "delivery-metrics/internal/observability/logging"
//
//	func main() {
//	    logger := logging.New(logging.FormatJSON, os.Stdout)
//	    logger.Info("sampler started", slog.Duration("interval", time.Second))
//	}
package logging
