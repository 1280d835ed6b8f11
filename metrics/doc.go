// Package metrics exposes Prometheus instruments for the HTTP API and the
// session telemetry stream.
package metrics
