package dolt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/giantswarm/embeddb/internal/engine"
	"github.com/giantswarm/embeddb/internal/process"
)

// driverName is the database/sql driver registered by go-sql-driver/mysql.
const driverName = "mysql"

// listTablesQuery lists the base tables of the connection's current database.
const listTablesQuery = `SELECT table_schema, table_name
FROM information_schema.tables
WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
ORDER BY table_name`

// Server is a dolt sql-server child process.
type Server struct {
	mu     sync.Mutex
	config Config
	port   int
	// proc is nil once the server has been stopped.
	proc *process.BaseProcess
}

var _ engine.Server = (*Server)(nil)

func newServer(cfg Config, port int) *Server {
	proc := process.NewBaseProcess("dolt", cfg.Logger.With("port", port), cfg.StopTimeout)
	return &Server{
		config: cfg,
		port:   port,
		proc:   &proc,
	}
}

// IsRunning reports whether the dolt process is alive.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc != nil && s.proc.IsAlive()
}

// Stop terminates dolt and releases its log files. It is safe to call on a
// server that already stopped.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The exit status of a process that died on its own was already
	// observed by the caller; only a failed shutdown is an error here.
	alive := s.proc != nil && s.proc.IsAlive()
	err := process.StopCloseAndNil(&s.proc, s.config.StopTimeout)
	if err != nil && alive {
		return fmt.Errorf("stop dolt on port %d: %w", s.port, err)
	}
	return nil
}

// Port returns the port dolt was started on.
func (s *Server) Port() int {
	return s.port
}

// Service returns the protocol and listen address.
func (s *Server) Service() string {
	return fmt.Sprintf("dolt sql-server (mysql://%s)", net.JoinHostPort(s.config.Host, strconv.Itoa(s.port)))
}

// Status describes the process state, e.g. "running, pid 4242, up 3s".
func (s *Server) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.proc == nil || !s.proc.IsAlive() {
		return "not running"
	}
	return fmt.Sprintf("running, pid %d, up %s",
		s.proc.PID(), time.Since(s.proc.StartedAt()).Round(time.Second))
}

// Connect creates database if needed and opens a connection to it on the
// loopback interface.
func (s *Server) Connect(ctx context.Context, database string, creds engine.Credentials) (engine.Conn, error) {
	if err := engine.RequireDriver(driverName); err != nil {
		return nil, err
	}
	if database == "" {
		return nil, errors.New("connect: database name must not be empty")
	}

	if err := s.createDatabase(ctx, database, creds); err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, s.dsn(database, creds))
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", database, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database %s: %w", database, err)
	}
	return engine.NewSQLConn(db, listTablesQuery), nil
}

// createDatabase runs CREATE DATABASE IF NOT EXISTS over a connection
// without a default database. dolt, unlike an embedded file engine, does not
// create databases on first connect.
func (s *Server) createDatabase(ctx context.Context, database string, creds engine.Credentials) error {
	db, err := sql.Open(driverName, s.dsn("", creds))
	if err != nil {
		return fmt.Errorf("open server connection: %w", err)
	}
	defer db.Close() //nolint:errcheck // short-lived admin handle

	if _, err := db.ExecContext(ctx, "CREATE DATABASE IF NOT EXISTS "+quoteIdent(database)); err != nil {
		return fmt.Errorf("create database %s: %w", database, err)
	}
	return nil
}

func (s *Server) dsn(database string, creds engine.Credentials) string {
	cfg := mysql.NewConfig()
	cfg.User = creds.User
	cfg.Passwd = creds.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort("127.0.0.1", strconv.Itoa(s.port))
	cfg.DBName = database
	// Startup scripts hold many statements and are sent in one Exec.
	cfg.MultiStatements = true
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// quoteIdent quotes a MySQL identifier with backticks.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
