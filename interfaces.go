package embeddb

import (
	"context"

	"github.com/giantswarm/embeddb/internal/core"
	"github.com/giantswarm/embeddb/internal/engine"
)

// Controller owns one embedded database server.
//
// Callers must follow this lifecycle ordering:
//
//	NewController → Start → Stop (repeatable)
//
// Start and Stop must not be called concurrently.
type Controller interface {
	// Start negotiates a port, starts the server and provisions the
	// configured databases. It reports whether the server is running.
	//
	// Port and server failures fail Start and are logged with a stable
	// code. Per-database provisioning failures are logged and recorded in
	// Results but never fail Start.
	//
	// Returns ErrAlreadyRunning unless the controller is stopped.
	Start(ctx context.Context) (bool, error)

	// StartWith adopts srv, a server owned by the host, without port
	// negotiation or provisioning. A nil srv creates a server on the
	// configured port with a single attempt.
	StartWith(ctx context.Context, srv Server) (bool, error)

	// Stop shuts down the owned server, if any. It always returns true;
	// stop errors are logged.
	Stop() bool

	// StopWith makes srv the owned server and stops it.
	StopWith(srv Server) bool

	// State returns the lifecycle state.
	State() State

	// Port returns the port requested next, or after a successful Start the
	// port the server is bound to.
	Port() int

	// Server returns the owned server, or nil.
	Server() Server

	// Results returns the provisioning results of the last successful
	// Start, in registry order.
	Results() []Result
}

// Engine creates database servers. The default engine runs dolt sql-server.
type Engine = engine.Engine

// Server is a running database server.
type Server = engine.Server

// Conn is a connection to one database of a Server.
type Conn = engine.Conn

// Credentials authenticate provisioning connections.
type Credentials = engine.Credentials

// TableRef names a table.
type TableRef = engine.TableRef

// Entry is a database name and the path of its startup script.
type Entry = core.Entry

// Result is the provisioning outcome of one database.
type Result = core.Result

// Outcome classifies a Result.
type Outcome = core.Outcome

// Provisioning outcomes.
const (
	OutcomeProvisioned        = core.OutcomeProvisioned
	OutcomeAlreadyProvisioned = core.OutcomeAlreadyProvisioned
	OutcomeSkippedNoScript    = core.OutcomeSkippedNoScript
	OutcomeFailed             = core.OutcomeFailed
)

// State is the lifecycle state of a Controller.
type State = core.State

// Lifecycle states.
const (
	StateStopped  = core.StateStopped
	StateStarting = core.StateStarting
	StateRunning  = core.StateRunning
	StateStopping = core.StateStopping
)
