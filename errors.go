package embeddb

import "github.com/giantswarm/embeddb/internal/core"

// Sentinel errors for error inspection with errors.Is.
// These are immutable constants safe for use in wrapped error chain comparison.
const (
	// ErrInvalidPort is returned by Start when the requested port is outside
	// [0, 65535] and failover is not allowed.
	ErrInvalidPort = core.ErrInvalidPort

	// ErrDefaultPortInUse is returned by Start when the requested port is
	// taken and equals the failover port.
	ErrDefaultPortInUse = core.ErrDefaultPortInUse

	// ErrPortInUseNoFailover is returned by Start when a non-default
	// requested port is taken and failover is not allowed.
	ErrPortInUseNoFailover = core.ErrPortInUseNoFailover

	// ErrBindCollision is returned by an Engine whose server lost the race
	// for its port. The controller retries on the next port.
	ErrBindCollision = core.ErrBindCollision

	// ErrRetryExhausted is returned by Start when every bind attempt
	// collided.
	ErrRetryExhausted = core.ErrRetryExhausted

	// ErrEngineFailure is returned by Start when the server could not be
	// created for a reason other than a bind collision.
	ErrEngineFailure = core.ErrEngineFailure

	// ErrAlreadyRunning is returned by Start while the controller owns a
	// server.
	ErrAlreadyRunning = core.ErrAlreadyRunning

	// ErrDatabaseCreationFailed is recorded in a Result when a database could
	// not be opened or its script failed.
	ErrDatabaseCreationFailed = core.ErrDatabaseCreationFailed

	// ErrScriptNotFound is recorded in a Result when the startup script does
	// not exist.
	ErrScriptNotFound = core.ErrScriptNotFound

	// ErrDriverNotFound is recorded in a Result when the engine's SQL driver
	// is not registered.
	ErrDriverNotFound = core.ErrDriverNotFound

	// ErrMalformedEntry is logged for a database entry that is not of the
	// form name@scriptPath.
	ErrMalformedEntry = core.ErrMalformedEntry
)
