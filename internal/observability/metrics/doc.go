// Package metrics provides the Prometheus registry and the delivery metrics
// published by the sampler.
//
// Metrics are registered on an explicitly constructed registry instead of
// the client library's default one, so the sampler and the exposition
// endpoint share exactly the object they are handed:
//
//	reg := metrics.NewRegistry()
//	deliveries := metrics.NewDeliveryMetrics(reg)
//	deliveries.Publish(sample)
//
//	http.Handle("/", metrics.Handler(reg, logger))
//
// The registry also carries the Go runtime and process collectors, which
// expose the standard go_* and process_* series.
package metrics
