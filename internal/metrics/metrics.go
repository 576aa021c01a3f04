package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "embeddb"

// Start attempt results.
const (
	ResultSuccess       = "success"
	ResultBindCollision = "bind_collision"
	ResultFailure       = "failure"
)

// Metrics records server lifecycle and provisioning events.
type Metrics struct {
	startAttempts *prometheus.CounterVec
	bindRetries   prometheus.Counter
	startDuration prometheus.Histogram
	running       prometheus.Gauge
	provisioned   *prometheus.CounterVec
}

// New creates the collectors and registers them with r. Collectors that are
// already registered with r are reused.
func New(r prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		startAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "start_attempts_total",
				Help:      "Number of server creation attempts by result.",
			}, []string{"result"},
		),
		bindRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "bind_retries_total",
				Help:      "Number of retries on the next port after a bind collision.",
			},
		),
		startDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "start_duration_seconds",
				Help:      "Duration of successful starts including provisioning.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		running: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "running",
				Help:      "1 while the controller owns a running server.",
			},
		),
		provisioned: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "provision",
				Name:      "databases_total",
				Help:      "Number of provisioning outcomes per database.",
			}, []string{"database", "outcome"},
		),
	}

	var err error
	if m.startAttempts, err = registerOrReuse(r, m.startAttempts); err != nil {
		return nil, err
	}
	if m.bindRetries, err = registerOrReuse(r, m.bindRetries); err != nil {
		return nil, err
	}
	if m.startDuration, err = registerOrReuse(r, m.startDuration); err != nil {
		return nil, err
	}
	if m.running, err = registerOrReuse(r, m.running); err != nil {
		return nil, err
	}
	if m.provisioned, err = registerOrReuse(r, m.provisioned); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers c, or returns the collector already registered
// under the same descriptor.
func registerOrReuse[C prometheus.Collector](r prometheus.Registerer, c C) (C, error) {
	if err := r.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// StartAttempt counts one CreateServer call with result.
func (m *Metrics) StartAttempt(result string) {
	if m == nil {
		return
	}
	m.startAttempts.WithLabelValues(result).Inc()
}

// BindRetry counts one retry on an incremented port.
func (m *Metrics) BindRetry() {
	if m == nil {
		return
	}
	m.bindRetries.Inc()
}

// Started records a successful start that took d.
func (m *Metrics) Started(d time.Duration) {
	if m == nil {
		return
	}
	m.startDuration.Observe(d.Seconds())
	m.running.Set(1)
}

// Stopped records that the controller no longer owns a running server.
func (m *Metrics) Stopped() {
	if m == nil {
		return
	}
	m.running.Set(0)
}

// Provisioned counts one provisioning outcome for database.
func (m *Metrics) Provisioned(database, outcome string) {
	if m == nil {
		return
	}
	m.provisioned.WithLabelValues(database, outcome).Inc()
}
