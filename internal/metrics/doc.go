// Package metrics provides the observability hooks for event handling and
// build lookups.
//
// The package implements the Null Object pattern: components receive a
// Recorder through dependency injection and default to NoopRecorder, so
// metrics collection never requires nil checks at call sites. The driver
// activates PrometheusRecorder and exposes the registry on the admin
// server's /metrics endpoint.
package metrics
