package dolt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/giantswarm/embeddb/internal/engine"
	"github.com/giantswarm/embeddb/internal/fileutil"
	"github.com/giantswarm/embeddb/internal/netutil"
	"github.com/giantswarm/embeddb/internal/process"
)

const (
	// DefaultBinary is the dolt executable looked up in PATH.
	DefaultBinary = "dolt"

	// DefaultHost is the listen address passed to dolt sql-server.
	DefaultHost = "0.0.0.0"

	// DefaultStartTimeout bounds how long CreateServer waits for the server
	// to accept connections.
	DefaultStartTimeout = 30 * time.Second
)

// readinessPollInterval is the interval between handshake attempts while
// waiting for dolt to listen.
const readinessPollInterval = 50 * time.Millisecond

// readinessAttemptTimeout bounds one readiness handshake, dial included.
const readinessAttemptTimeout = time.Second

// readinessUser is the account named in the readiness handshake. Any reply
// from the server counts, including a rejected login.
const readinessUser = "root"

// bindSettleDelay is how long a server that answered its first handshake
// must stay alive before it counts as started.
const bindSettleDelay = 250 * time.Millisecond

// logTailBytes is how much of the server logs is inspected to classify an
// early exit.
const logTailBytes = 4096

// Config holds the configuration of the dolt engine.
type Config struct {
	Binary       string        // dolt executable (default: "dolt")
	DataDir      string        // --data-dir; one subdirectory per database
	Host         string        // listen address (default: "0.0.0.0")
	StartTimeout time.Duration // readiness timeout (default: DefaultStartTimeout)
	StopTimeout  time.Duration // SIGTERM to SIGKILL budget (default: process.DefaultStopTimeout)

	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger
}

func (c Config) validate() error {
	if c.Binary == "" {
		return errors.New("binary path must not be empty")
	}
	if c.DataDir == "" {
		return errors.New("data dir must not be empty")
	}
	if c.StartTimeout < 0 {
		return errors.New("start timeout must not be negative")
	}
	if c.StopTimeout < 0 {
		return errors.New("stop timeout must not be negative")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.StartTimeout == 0 {
		c.StartTimeout = DefaultStartTimeout
	}
	if c.StopTimeout == 0 {
		c.StopTimeout = process.DefaultStopTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Engine starts dolt sql-server processes.
type Engine struct {
	config Config
}

var _ engine.Engine = (*Engine)(nil)

// New creates a dolt Engine. It performs no I/O.
func New(cfg Config) (*Engine, error) {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid dolt config: %w", err)
	}
	return &Engine{config: cfg.withDefaults()}, nil
}

// CreateServer launches dolt sql-server on port and waits until it answers
// a MySQL handshake while still alive. When the port is already held, or
// dolt exits because it is, the error wraps engine.ErrBindCollision.
//
// On failure the returned Server, if any, has been started and must be
// stopped by the caller.
func (e *Engine) CreateServer(ctx context.Context, port int) (engine.Server, error) {
	if err := fileutil.EnsureDir(e.config.DataDir); err != nil {
		return nil, fmt.Errorf("create dolt data dir: %w", err)
	}
	// A listener that is already there would answer the readiness check in
	// dolt's place.
	if err := netutil.ProbeTCP(port); errors.Is(err, syscall.EADDRINUSE) {
		return nil, fmt.Errorf("dolt on port %d: %w: %w", port, engine.ErrBindCollision, err)
	}

	s := newServer(e.config, port)
	if err := s.start(ctx); err != nil {
		return nil, err
	}
	if err := s.waitReady(ctx); err != nil {
		return s, s.classify(err)
	}
	return s, nil
}

// args builds the sql-server command line.
func args(cfg Config, port int) []string {
	return []string{
		"sql-server",
		"--host", cfg.Host,
		"--port", strconv.Itoa(port),
		"--data-dir", cfg.DataDir,
	}
}

func (s *Server) start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc == nil || s.proc.IsStarted() {
		return process.ErrAlreadyStarted
	}
	// The server outlives the Start call, so it must not be tied to ctx.
	cmd := exec.CommandContext(context.WithoutCancel(ctx), s.config.Binary, args(s.config, s.port)...)
	if err := s.proc.SetupAndStart(cmd, s.config.DataDir); err != nil {
		return fmt.Errorf("setup and start dolt process: %w", err)
	}
	s.proc.Logger().Debug("dolt sql-server started", "port", s.port, "pid", s.proc.PID())
	return nil
}

// waitReady polls the server port until it answers a MySQL handshake and
// then checks that dolt itself is still alive.
func (s *Server) waitReady(ctx context.Context) error {
	s.mu.Lock()
	exited := s.proc.Exited()
	log := s.proc.Logger()
	s.mu.Unlock()

	if err := process.WaitReady(ctx, process.WaitReadyConfig{
		Interval:      readinessPollInterval,
		Timeout:       s.config.StartTimeout,
		Name:          "dolt",
		Port:          s.port,
		Logger:        log,
		ProcessExited: exited,
	}, func(checkCtx context.Context, attempt int) (bool, error) {
		if err := s.handshake(checkCtx); err != nil {
			log.Debug("dolt readiness attempt", "port", s.port, "attempt", attempt, "error", err)
			return false, nil
		}
		return true, nil
	}); err != nil {
		return fmt.Errorf("dolt not ready: %w", err)
	}

	t := time.NewTimer(bindSettleDelay)
	defer t.Stop()
	select {
	case <-exited:
		return fmt.Errorf("dolt on port %d: %w", s.port, process.ErrProcessExited)
	case <-t.C:
		return nil
	}
}

// handshake opens one MySQL session on the loopback interface. A server
// error reply, such as a rejected login, still proves a MySQL server is
// serving; a silent or non-MySQL listener does not.
func (s *Server) handshake(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, readinessAttemptTimeout)
	defer cancel()

	cfg := mysql.NewConfig()
	cfg.User = readinessUser
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort("127.0.0.1", strconv.Itoa(s.port))
	cfg.Timeout = readinessAttemptTimeout
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return fmt.Errorf("readiness connector: %w", err)
	}
	db := sql.OpenDB(connector)
	defer db.Close() //nolint:errcheck // short-lived readiness handle

	err = db.PingContext(ctx)
	var serverErr *mysql.MySQLError
	if err == nil || errors.As(err, &serverErr) {
		return nil
	}
	return err
}

// classify turns a readiness failure caused by a lost bind race into
// engine.ErrBindCollision.
func (s *Server) classify(err error) error {
	if !errors.Is(err, process.ErrProcessExited) {
		return err
	}
	s.mu.Lock()
	var tail string
	if s.proc != nil {
		tail = s.proc.LogFiles().Tail(logTailBytes)
	}
	s.mu.Unlock()

	if isBindCollision(tail) {
		return fmt.Errorf("dolt on port %d: %w", s.port, engine.ErrBindCollision)
	}
	if tail = strings.TrimSpace(tail); tail != "" {
		return fmt.Errorf("%w: %s", err, lastLine(tail))
	}
	return err
}

// isBindCollision reports whether server output describes a port that is
// already taken. It matches the kernel's "address already in use" as well as
// dolt's own "port ... already in use".
func isBindCollision(output string) bool {
	return strings.Contains(strings.ToLower(output), "already in use")
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
