// Package metrics holds the Prometheus collectors of the lifecycle
// controller. A nil *Metrics is valid and records nothing, so callers never
// need to check whether metrics are enabled.
package metrics
