package embeddb

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/giantswarm/embeddb/internal/metrics"
)

// Metrics holds the Prometheus collectors of a Controller.
type Metrics = metrics.Metrics

// NewMetrics registers the embeddb collectors with r. Collectors that are
// already registered are reused, so two controllers may share a registry.
func NewMetrics(r prometheus.Registerer) (*Metrics, error) {
	return metrics.New(r)
}
