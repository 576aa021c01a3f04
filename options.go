package embeddb

import (
	"fmt"
	"time"

	"github.com/giantswarm/embeddb/internal/core"
	"github.com/giantswarm/embeddb/internal/netutil"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive[T int | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("embeddb: %s must be greater than 0, got %v", name, v))
	}
}

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("embeddb: %s must not be empty", name))
	}
}

// Option configures a Controller during construction via NewController.
//
// Several With* functions panic on invalid input (empty paths, non-positive
// counts and durations). Option values are typically constants, so an
// invalid value is a programmer error, in the manner of regexp.MustCompile.
type Option func(*controllerConfig)

// WithPort sets the port the server should bind. Any value is accepted: an
// out-of-range port fails Start with ErrInvalidPort, or is replaced by the
// failover port when failover is allowed.
//
// Default: 9001.
func WithPort(port int) Option {
	return func(c *controllerConfig) {
		c.Port = port
	}
}

// WithFailoverPort sets the port used when the requested port is invalid or
// taken and failover is allowed.
//
// Default: 9001.
//
// Panics if port is outside [0, 65535].
func WithFailoverPort(port int) Option {
	if !netutil.ValidPort(port) {
		panic(fmt.Sprintf("embeddb: failover port must be in [%d, %d], got %d",
			netutil.MinPort, netutil.MaxPort, port))
	}
	return func(c *controllerConfig) {
		c.FailoverPort = port
	}
}

// WithAllowPortFailover enables or disables the failover port.
//
// Default: false.
func WithAllowPortFailover(allow bool) Option {
	return func(c *controllerConfig) {
		c.AllowPortFailover = allow
	}
}

// WithDatabase adds a database provisioned from the SQL script at
// scriptPath. Adding a name twice keeps its first position and uses the last
// script path.
//
// Panics if name or scriptPath is empty.
func WithDatabase(name, scriptPath string) Option {
	requireNonEmpty("database name", name)
	requireNonEmpty("script path", scriptPath)
	return func(c *controllerConfig) {
		c.Databases = append(c.Databases, core.Entry{Name: name, ScriptPath: scriptPath})
	}
}

// WithDatabases adds every entry, in order, as WithDatabase does.
//
// Panics if any entry has an empty name or script path.
func WithDatabases(entries ...Entry) Option {
	for _, e := range entries {
		requireNonEmpty("database name", e.Name)
		requireNonEmpty("script path", e.ScriptPath)
	}
	entries = append([]Entry(nil), entries...)
	return func(c *controllerConfig) {
		c.Databases = append(c.Databases, entries...)
	}
}

// WithDataDir sets the directory holding the database files and the
// provisioning lock.
//
// Default: data/embeddb.
//
// Panics if dir is empty.
func WithDataDir(dir string) Option {
	requireNonEmpty("data directory", dir)
	return func(c *controllerConfig) {
		c.DataDir = dir
	}
}

// WithServerBinary sets the path to the dolt binary.
// Panics if binPath is empty.
func WithServerBinary(binPath string) Option {
	requireNonEmpty("server binary path", binPath)
	return func(c *controllerConfig) {
		c.ServerBinary = binPath
	}
}

// WithCredentials sets the user and password used to connect to every
// database. The password may be empty.
//
// Default: root with an empty password.
//
// Panics if user is empty.
func WithCredentials(user, password string) Option {
	requireNonEmpty("user", user)
	return func(c *controllerConfig) {
		c.Credentials = Credentials{User: user, Password: password}
	}
}

// WithMaxBindAttempts bounds the number of server creation attempts per
// Start. After that many bind collisions Start fails with ErrRetryExhausted.
//
// Default: 3.
//
// Panics if n <= 0.
func WithMaxBindAttempts(n int) Option {
	requirePositive("max bind attempts", n)
	return func(c *controllerConfig) {
		c.MaxBindAttempts = n
	}
}

// WithStartTimeout sets the maximum time allowed for the server to accept
// connections.
//
// Default: 30 seconds.
//
// Panics if d <= 0.
func WithStartTimeout(d time.Duration) Option {
	requirePositive("start timeout", d)
	return func(c *controllerConfig) {
		c.StartTimeout = d
	}
}

// WithStopTimeout sets the maximum time allowed for the server to stop
// gracefully before it is killed.
//
// Default: 10 seconds.
//
// Panics if d <= 0.
func WithStopTimeout(d time.Duration) Option {
	requirePositive("stop timeout", d)
	return func(c *controllerConfig) {
		c.StopTimeout = d
	}
}

// WithEngine replaces the dolt engine. The server binary and timeouts are
// ignored when an engine is set.
//
// Panics if e is nil.
func WithEngine(e Engine) Option {
	if e == nil {
		panic("embeddb: engine must not be nil")
	}
	return func(c *controllerConfig) {
		c.Engine = e
	}
}

// WithMetrics records server and provisioning metrics in m. A nil m
// disables metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *controllerConfig) {
		c.Metrics = m
	}
}
