package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/giantswarm/embeddb/internal/engine"
	"github.com/giantswarm/embeddb/internal/metrics"
	"github.com/giantswarm/embeddb/internal/netutil"
)

// ControllerConfig holds the configuration of a Controller. It is immutable
// after construction.
type ControllerConfig struct {
	// Port is the port the server should bind. An out-of-range value is
	// accepted here and handled by the failover policy at Start.
	Port int
	// FailoverPort is used when Port is invalid or taken and
	// AllowPortFailover is set.
	FailoverPort      int
	AllowPortFailover bool

	// Databases are provisioned in order after the server starts.
	Databases []Entry

	// DataDir holds the database files and the provisioning lock.
	DataDir string
	// ServerBinary is the dolt executable. Only used when Engine is nil.
	ServerBinary string

	// Credentials are used for every provisioning connection. The embedded
	// server accepts a password-less superuser.
	Credentials engine.Credentials

	// MaxBindAttempts bounds the number of CreateServer calls per Start.
	// Each bind collision moves to the next port.
	MaxBindAttempts int

	// StartTimeout bounds how long the dolt engine waits for the server to
	// accept connections. Only used when Engine is nil.
	StartTimeout time.Duration
	// StopTimeout bounds the SIGTERM to SIGKILL sequence of the dolt
	// engine. Only used when Engine is nil.
	StopTimeout time.Duration

	// Engine creates servers. nil selects the dolt engine.
	Engine engine.Engine

	// Metrics is optional.
	Metrics *metrics.Metrics

	// Probe overrides the port availability probe. nil uses
	// netutil.ProbeTCP.
	Probe netutil.Prober
}

// Validate checks all ControllerConfig invariants and reports every
// violation at once.
func (c ControllerConfig) Validate() error {
	var errs []error

	if !netutil.ValidPort(c.FailoverPort) {
		errs = append(errs, fmt.Errorf("failover port must be in [%d, %d], got %d",
			netutil.MinPort, netutil.MaxPort, c.FailoverPort))
	}
	if c.MaxBindAttempts <= 0 {
		errs = append(errs, fmt.Errorf("max bind attempts must be greater than 0, got %d", c.MaxBindAttempts))
	}
	if c.DataDir == "" {
		errs = append(errs, errors.New("data directory must not be empty"))
	}
	if c.Engine == nil {
		if c.ServerBinary == "" {
			errs = append(errs, errors.New("server binary must not be empty"))
		}
		if c.StartTimeout <= 0 {
			errs = append(errs, fmt.Errorf("start timeout must be greater than 0, got %s", c.StartTimeout))
		}
		if c.StopTimeout <= 0 {
			errs = append(errs, fmt.Errorf("stop timeout must be greater than 0, got %s", c.StopTimeout))
		}
	}
	if _, err := NewRegistry(c.Databases...); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
