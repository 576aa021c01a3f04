package core

import (
	"github.com/giantswarm/embeddb/internal/engine"
	"github.com/giantswarm/embeddb/internal/netutil"
	"github.com/giantswarm/embeddb/internal/sentinel"
)

// Port errors are defined by netutil and engine errors by engine; they are
// re-exported here so the public API imports only from core.
const (
	ErrInvalidPort         = netutil.ErrInvalidPort
	ErrDefaultPortInUse    = netutil.ErrDefaultPortInUse
	ErrPortInUseNoFailover = netutil.ErrPortInUseNoFailover
	ErrBindCollision       = engine.ErrBindCollision
	ErrDriverNotFound      = engine.ErrDriverNotFound
)

const (
	// ErrDatabaseCreationFailed indicates that a database could not be
	// opened, inspected or populated.
	ErrDatabaseCreationFailed = sentinel.Error("database creation failed")

	// ErrScriptNotFound indicates a startup script that does not exist or
	// cannot be opened.
	ErrScriptNotFound = sentinel.Error("startup script not found")

	// ErrEngineFailure indicates a server creation failure other than a bind
	// collision. It is not retried.
	ErrEngineFailure = sentinel.Error("engine failure")

	// ErrRetryExhausted indicates that every bind attempt collided.
	ErrRetryExhausted = sentinel.Error("bind retries exhausted")

	// ErrAlreadyRunning is returned by Start while the controller owns a
	// server or a transition is in progress.
	ErrAlreadyRunning = sentinel.Error("server already running")

	// ErrMalformedEntry indicates a database entry that is not of the form
	// name@scriptPath.
	ErrMalformedEntry = sentinel.Error("malformed database entry")
)
