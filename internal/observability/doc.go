// Package observability groups the logging, metrics and tracing support of
// the sampler.
//
// Subpackages:
//   - logging: slog loggers, including the "[LEVEL] message" console format
//   - metrics: the Prometheus registry, the delivery metrics and the exposition handler
//   - tracing: OpenTelemetry spans for sampling cycles and HTTP requests
//
// Example usage:
//
//	import (
//	    "delivery-metrics/internal/domain/entity"
//	    "delivery-metrics/internal/observability/logging"
//	    "delivery-metrics/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.New(logging.FormatConsole, os.Stdout)
//	    reg := metrics.NewRegistry()
//	    delivery := metrics.NewDeliveryMetrics(reg)
//	    delivery.Publish(entity.Sample{Pending: 12, OnTheWay: 8, Delivered: 40, AvgTime: 21.5})
//	    http.Handle("/", metrics.Handler(reg, logger))
//	}
package observability
