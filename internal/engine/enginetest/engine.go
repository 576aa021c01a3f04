package enginetest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/giantswarm/embeddb/internal/engine"
)

// DefaultDriver is the database/sql driver used for database files.
const DefaultDriver = "sqlite"

const listTablesQuery = `SELECT 'main', name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
ORDER BY name`

// Engine is a fake engine.Engine. The zero value is not usable; use New.
type Engine struct {
	dir string

	mu         sync.Mutex
	driver     string
	collisions int
	createErr  error
	connectErr error
	ports      []int
	servers    []*Server
	connects   map[string]int
	scriptRuns map[string]int
}

var _ engine.Engine = (*Engine)(nil)

// New returns an Engine that keeps its database files in dir.
func New(dir string) *Engine {
	return &Engine{
		dir:        dir,
		driver:     DefaultDriver,
		connects:   make(map[string]int),
		scriptRuns: make(map[string]int),
	}
}

// SetDriver changes the driver name Connect requires. An unregistered name
// makes Connect fail with engine.ErrDriverNotFound.
func (e *Engine) SetDriver(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.driver = name
}

// InjectBindCollisions makes the next n CreateServer calls start a server
// and then report engine.ErrBindCollision together with it, the way a real
// engine that lost the bind race after launching does.
func (e *Engine) InjectBindCollisions(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.collisions = n
}

// FailCreate makes every CreateServer call fail with err. nil clears it.
func (e *Engine) FailCreate(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.createErr = err
}

// FailConnect makes every Connect call fail with err. nil clears it.
func (e *Engine) FailConnect(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connectErr = err
}

// CreatePorts returns the port of every CreateServer call in order.
func (e *Engine) CreatePorts() []int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]int(nil), e.ports...)
}

// Servers returns every server handed out, including partial ones.
func (e *Engine) Servers() []*Server {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Server(nil), e.servers...)
}

// Connects returns how often Connect was called for database.
func (e *Engine) Connects(database string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connects[database]
}

// ScriptRuns returns how often a script was executed against database.
func (e *Engine) ScriptRuns(database string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scriptRuns[database]
}

// DatabasePath returns the SQLite file backing database.
func (e *Engine) DatabasePath(database string) string {
	return filepath.Join(e.dir, database+".db")
}

// CreateServer binds port on all interfaces. A port held by another
// listener yields engine.ErrBindCollision.
func (e *Engine) CreateServer(_ context.Context, port int) (engine.Server, error) {
	e.mu.Lock()
	e.ports = append(e.ports, port)
	createErr := e.createErr
	collide := e.collisions > 0
	if collide {
		e.collisions--
	}
	e.mu.Unlock()

	if createErr != nil {
		return nil, createErr
	}

	l, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return nil, fmt.Errorf("listen on port %d: %w: %w", port, engine.ErrBindCollision, err)
		}
		return nil, fmt.Errorf("listen on port %d: %w", port, err)
	}

	s := &Server{engine: e, port: port, listener: l, done: make(chan struct{})}
	go s.serve()

	e.mu.Lock()
	e.servers = append(e.servers, s)
	e.mu.Unlock()

	if collide {
		return s, fmt.Errorf("server on port %d: %w", port, engine.ErrBindCollision)
	}
	return s, nil
}

// Server is a fake engine.Server holding a real TCP listener.
type Server struct {
	engine   *Engine
	port     int
	listener net.Listener
	done     chan struct{}

	mu      sync.Mutex
	stopped bool
	stops   int
}

var _ engine.Server = (*Server)(nil)

// serve accepts and immediately closes connections until the listener is
// closed.
func (s *Server) serve() {
	defer close(s.done)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		_ = conn.Close()
	}
}

// IsRunning reports whether Stop has not been called yet.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped
}

// Stop closes the listener and waits for the accept loop to end.
func (s *Server) Stop() error {
	s.mu.Lock()
	s.stops++
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	err := s.listener.Close()
	<-s.done
	return err
}

// Stops returns how often Stop was called.
func (s *Server) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

// Port returns the bound port.
func (s *Server) Port() int {
	return s.port
}

// Service describes the fake server.
func (s *Server) Service() string {
	return "enginetest server (tcp://" + s.listener.Addr().String() + ")"
}

// Status returns "running" or "stopped".
func (s *Server) Status() string {
	if s.IsRunning() {
		return "running"
	}
	return "stopped"
}

// Connect opens the SQLite file of database, creating it if needed.
func (s *Server) Connect(ctx context.Context, database string, _ engine.Credentials) (engine.Conn, error) {
	e := s.engine
	e.mu.Lock()
	e.connects[database]++
	driver := e.driver
	connectErr := e.connectErr
	e.mu.Unlock()

	if err := engine.RequireDriver(driver); err != nil {
		return nil, err
	}
	if connectErr != nil {
		return nil, connectErr
	}
	if !s.IsRunning() {
		return nil, fmt.Errorf("connect %s: server on port %d is stopped", database, s.port)
	}

	db, err := sql.Open(driver, e.DatabasePath(database))
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", database, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database %s: %w", database, err)
	}
	return &conn{SQLConn: engine.NewSQLConn(db, listTablesQuery), engine: e, database: database}, nil
}

// conn counts script executions per database.
type conn struct {
	*engine.SQLConn
	engine   *Engine
	database string
}

func (c *conn) RunScript(ctx context.Context, r io.Reader) error {
	c.engine.mu.Lock()
	c.engine.scriptRuns[c.database]++
	c.engine.mu.Unlock()
	return c.SQLConn.RunScript(ctx, r)
}
