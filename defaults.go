package embeddb

import (
	"path/filepath"
	"time"
)

// Default configuration values for NewController.
// These constants are exported so callers can reference the defaults
// when building custom configurations relative to them.
const (
	// DefaultPort is the port the server binds when no port is configured.
	DefaultPort = 9001

	// DefaultFailoverPort is used when the requested port is invalid or
	// taken and failover is allowed. It equals DefaultPort, so a taken
	// default port is reported as ErrDefaultPortInUse.
	DefaultFailoverPort = DefaultPort

	// DefaultMaxBindAttempts bounds the number of server creation attempts
	// per Start. Each bind collision moves to the next port.
	DefaultMaxBindAttempts = 3

	// DefaultServerBinary is the binary name used to locate dolt in PATH.
	DefaultServerBinary = "dolt"

	// DefaultStartTimeout is the maximum time allowed for the server to
	// accept connections.
	DefaultStartTimeout = 30 * time.Second

	// DefaultStopTimeout is the maximum time allowed for the server to stop
	// gracefully before it is killed.
	DefaultStopTimeout = 10 * time.Second

	// DefaultUser is the superuser of the embedded server. It has an empty
	// password.
	DefaultUser = "root"
)

// DefaultDataDir is the directory, relative to the working directory, that
// holds the database files.
var DefaultDataDir = filepath.Join("data", "embeddb")
