package engine

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"slices"

	"github.com/giantswarm/embeddb/internal/sentinel"
)

const (
	// ErrBindCollision indicates that the server could not take exclusive
	// use of its port because another process holds it. It is the only
	// CreateServer failure the controller retries.
	ErrBindCollision = sentinel.Error("port already bound by another process")

	// ErrDriverNotFound indicates that the SQL driver the engine needs is not
	// registered with database/sql.
	ErrDriverNotFound = sentinel.Error("sql driver not found")
)

// Credentials authenticate a connection to the embedded server.
type Credentials struct {
	User     string
	Password string
}

// TableRef names one table in a database.
type TableRef struct {
	Schema string
	Name   string
}

// String returns "schema.name", or just the name when the schema is empty.
func (t TableRef) String() string {
	if t.Schema == "" {
		return t.Name
	}
	return t.Schema + "." + t.Name
}

// Engine creates database servers.
type Engine interface {
	// CreateServer starts a server listening on port and returns once it
	// accepts connections. A port held by another process yields an error
	// wrapping ErrBindCollision.
	//
	// On failure CreateServer may also return a partially started Server.
	// The caller must Stop it before trying again.
	CreateServer(ctx context.Context, port int) (Server, error)
}

// Server is a running database server.
type Server interface {
	// IsRunning queries the server's liveness.
	IsRunning() bool
	// Stop shuts the server down. Stopping a stopped server is a no-op.
	Stop() error
	// Port returns the TCP port the server was started on.
	Port() int
	// Service describes the server, e.g. its protocol and address.
	Service() string
	// Status is a human readable state line for logs.
	Status() string
	// Connect opens a connection to the named database, creating the
	// database if the engine requires it to exist first.
	Connect(ctx context.Context, database string, creds Credentials) (Conn, error)
}

// Conn is a connection to one database.
type Conn interface {
	// ListTables returns the user tables of the connected database.
	ListTables(ctx context.Context) ([]TableRef, error)
	// RunScript executes the SQL script read from r verbatim.
	RunScript(ctx context.Context, r io.Reader) error
	// Close releases the connection.
	Close() error
}

// RequireDriver returns ErrDriverNotFound unless a database/sql driver named
// name is registered.
func RequireDriver(name string) error {
	if !slices.Contains(sql.Drivers(), name) {
		return fmt.Errorf("driver %q: %w", name, ErrDriverNotFound)
	}
	return nil
}
