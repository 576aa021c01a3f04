package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/giantswarm/embeddb/internal/engine"
	"github.com/giantswarm/embeddb/internal/engine/dolt"
	"github.com/giantswarm/embeddb/internal/metrics"
	"github.com/giantswarm/embeddb/internal/netutil"
)

// provisionLockName is the lock file inside the data directory.
const provisionLockName = ".provision.lock"

// Controller owns one embedded database server: it negotiates the port,
// starts the server, provisions the configured databases and stops it again.
//
// Controller is not safe for concurrent use. Start and Stop are meant to be
// called once each from the host's startup and shutdown paths.
type Controller struct {
	cfg      ControllerConfig
	engine   engine.Engine
	registry Registry
	ports    netutil.PortConfig

	state   State
	server  engine.Server
	results []Result
}

// NewController creates a Controller. It performs no I/O.
//
// Panics if cfg.Validate() reports any errors; invalid configuration is a
// programmer error.
func NewController(cfg ControllerConfig) *Controller {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("embeddb: invalid controller config: %v", err))
	}
	registry, _ := NewRegistry(cfg.Databases...) // validated above

	eng := cfg.Engine
	if eng == nil {
		d, err := dolt.New(dolt.Config{
			Binary:       cfg.ServerBinary,
			DataDir:      cfg.DataDir,
			StartTimeout: cfg.StartTimeout,
			StopTimeout:  cfg.StopTimeout,
			Logger:       Logger(),
		})
		if err != nil {
			panic(fmt.Sprintf("embeddb: %v", err))
		}
		eng = d
	}

	return &Controller{
		cfg:      cfg,
		engine:   eng,
		registry: registry,
		ports: netutil.PortConfig{
			RequestedPort: cfg.Port,
			FailoverPort:  cfg.FailoverPort,
			AllowFailover: cfg.AllowPortFailover,
		},
	}
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// Port returns the port the controller will request next; after a
// successful Start it is the port the server is bound to.
func (c *Controller) Port() int {
	return c.ports.RequestedPort
}

// Server returns the owned server, or nil.
func (c *Controller) Server() engine.Server {
	return c.server
}

// Registry returns the configured databases.
func (c *Controller) Registry() Registry {
	return c.registry
}

// Results returns the provisioning results of the last successful Start.
func (c *Controller) Results() []Result {
	return append([]Result(nil), c.results...)
}

// Start negotiates a port, starts the server and provisions the configured
// databases. running is the server's own liveness report and is false
// whenever err is non-nil.
//
// A bind collision moves to the next port, up to MaxBindAttempts calls,
// after which Start fails with ErrRetryExhausted. Any other server creation
// failure ends in ErrEngineFailure without retry. Provisioning failures are
// logged per database and never fail Start.
func (c *Controller) Start(ctx context.Context) (running bool, err error) {
	log := Logger().With("run_id", uuid.NewString())

	if c.state != StateStopped {
		err := fmt.Errorf("start in state %s: %w", c.state, ErrAlreadyRunning)
		logFailure(log, "start rejected", err)
		return false, err
	}

	c.state = StateStarting
	started := time.Now()

	for _, e := range c.registry.Entries() {
		log.Debug("database configured", "database", e.Name, "script", e.ScriptPath)
	}

	ports, err := netutil.CheckPort(c.ports, c.cfg.Probe, log)
	if err != nil {
		return c.failStart(log, "port check failed", err)
	}
	c.ports = ports

	srv, err := c.createServer(ctx, log)
	if err != nil {
		return c.failStart(log, "server start failed", err)
	}
	c.server = srv

	p := &Provisioner{
		Server:      srv,
		Credentials: c.cfg.Credentials,
		LockPath:    filepath.Join(c.cfg.DataDir, provisionLockName),
		Logger:      log,
		Metrics:     c.cfg.Metrics,
	}
	c.results = p.StartDatabases(ctx, c.registry)

	c.state = StateRunning
	c.cfg.Metrics.Started(time.Since(started))
	log.Info("started server", "service", srv.Service(), "status", srv.Status(), "port", srv.Port())
	return srv.IsRunning(), nil
}

// createServer calls the engine until it binds, moving to the next port on
// every bind collision. A server returned together with an error is stopped
// before the next attempt.
func (c *Controller) createServer(ctx context.Context, log *slog.Logger) (engine.Server, error) {
	maxAttempts := c.cfg.MaxBindAttempts
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return nil, errors.Join(
					fmt.Errorf("context canceled after %d attempts: %w", attempt-1, err),
					fmt.Errorf("last attempt error: %w", lastErr),
				)
			}
			return nil, err
		}

		port := c.ports.RequestedPort
		srv, err := c.engine.CreateServer(ctx, port)
		if err == nil {
			c.cfg.Metrics.StartAttempt(metrics.ResultSuccess)
			if attempt > 1 {
				log.Info("server started after bind retry", "attempt", attempt, "port", port)
			}
			return srv, nil
		}

		if srv != nil {
			if stopErr := srv.Stop(); stopErr != nil {
				log.Warn("stop partially started server", "port", port, "error", stopErr)
			}
		}

		if !errors.Is(err, engine.ErrBindCollision) {
			c.cfg.Metrics.StartAttempt(metrics.ResultFailure)
			return nil, fmt.Errorf("create server on port %d: %w: %w", port, ErrEngineFailure, err)
		}
		c.cfg.Metrics.StartAttempt(metrics.ResultBindCollision)
		lastErr = err

		if attempt == maxAttempts {
			break
		}
		if port >= netutil.MaxPort {
			return nil, fmt.Errorf("no port above %d: %w: %w", port, ErrRetryExhausted, err)
		}
		log.Warn("port already bound, retrying on next port",
			"port", port, "next_port", port+1, "attempt", attempt, "max_attempts", maxAttempts)
		c.cfg.Metrics.BindRetry()
		c.ports.RequestedPort = port + 1
	}
	return nil, fmt.Errorf("create server after %d attempts: %w: %w", maxAttempts, ErrRetryExhausted, lastErr)
}

func (c *Controller) failStart(log *slog.Logger, msg string, err error) (bool, error) {
	c.state = StateStopped
	logFailure(log, msg, err, "port", c.ports.RequestedPort)
	return false, err
}

// StartWith adopts srv, a server owned by the host, without negotiating a
// port or provisioning. A nil srv creates a server on the configured port
// with a single attempt.
func (c *Controller) StartWith(ctx context.Context, srv engine.Server) (running bool, err error) {
	log := Logger()

	if c.state != StateStopped {
		err := fmt.Errorf("start in state %s: %w", c.state, ErrAlreadyRunning)
		logFailure(log, "start rejected", err)
		return false, err
	}
	c.state = StateStarting
	started := time.Now()

	if srv == nil {
		port := c.ports.RequestedPort
		created, err := c.engine.CreateServer(ctx, port)
		if err != nil {
			if created != nil {
				_ = created.Stop()
			}
			c.cfg.Metrics.StartAttempt(metrics.ResultFailure)
			return c.failStart(log, "server start failed",
				fmt.Errorf("create server on port %d: %w: %w", port, ErrEngineFailure, err))
		}
		c.cfg.Metrics.StartAttempt(metrics.ResultSuccess)
		srv = created
	}

	c.server = srv
	c.state = StateRunning
	c.cfg.Metrics.Started(time.Since(started))
	log.Info("started server", "service", srv.Service(), "status", srv.Status(), "port", srv.Port())
	return srv.IsRunning(), nil
}

// Stop shuts down the owned server. It always returns true: stop errors are
// logged, not reported.
func (c *Controller) Stop() bool {
	if c.server == nil {
		c.state = StateStopped
		return true
	}

	log := Logger()
	srv := c.server
	if srv.IsRunning() {
		c.state = StateStopping
		log.Info("stopping server", "service", srv.Service(), "status", srv.Status())
	}
	// Stop also releases resources of a server that already died.
	if err := srv.Stop(); err != nil {
		log.Warn("server stop failed", "service", srv.Service(), "error", err)
	}

	c.server = nil
	c.state = StateStopped
	c.cfg.Metrics.Stopped()
	return true
}

// StopWith makes srv the owned server and stops it. A different server
// owned before is stopped first so it is not orphaned.
func (c *Controller) StopWith(srv engine.Server) bool {
	if c.server != nil && c.server != srv {
		c.Stop()
	}
	c.server = srv
	return c.Stop()
}
