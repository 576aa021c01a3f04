package netutil

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/giantswarm/embeddb/internal/sentinel"
)

const (
	// ErrInvalidPort indicates a port outside [0, 65535] with failover
	// disabled.
	ErrInvalidPort = sentinel.Error("invalid port")

	// ErrDefaultPortInUse indicates that the failover port, the last port
	// available under the policy, is taken.
	ErrDefaultPortInUse = sentinel.Error("default port in use")

	// ErrPortInUseNoFailover indicates that the requested port is taken and
	// failover is disabled.
	ErrPortInUseNoFailover = sentinel.Error("specified port in use and failover disabled")
)

// MinPort and MaxPort bound the valid TCP port range.
const (
	MinPort = 0
	MaxPort = 65535
)

// PortConfig is the port policy of one controller.
type PortConfig struct {
	// RequestedPort is the port the server should bind. CheckPort may
	// replace it with FailoverPort.
	RequestedPort int
	// FailoverPort is the fallback when RequestedPort is invalid or taken.
	FailoverPort int
	// AllowFailover enables the fallback to FailoverPort.
	AllowFailover bool
}

// Prober reports whether port can be bound right now. A non-nil error means
// the port is unavailable.
type Prober func(port int) error

// ValidPort reports whether port lies in [MinPort, MaxPort].
func ValidPort(port int) bool {
	return port >= MinPort && port <= MaxPort
}

// ProbeTCP binds a listener on all interfaces at port and closes it again.
func ProbeTCP(port int) error {
	l, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("probe port %d: %w", port, err)
	}
	return l.Close()
}

// CheckPort applies the failover policy to cfg and returns the config the
// server should use. A nil probe uses ProbeTCP, a nil logger slog.Default().
//
// An invalid port without failover fails before anything is probed.
func CheckPort(cfg PortConfig, probe Prober, log *slog.Logger) (PortConfig, error) {
	if probe == nil {
		probe = ProbeTCP
	}
	if log == nil {
		log = slog.Default()
	}

	if !ValidPort(cfg.RequestedPort) {
		if !cfg.AllowFailover {
			return cfg, fmt.Errorf("port %d: %w", cfg.RequestedPort, ErrInvalidPort)
		}
		log.Error("invalid port, using failover port",
			"code", "invalid_port", "port", cfg.RequestedPort, "failover_port", cfg.FailoverPort)
		cfg.RequestedPort = cfg.FailoverPort
	}

	err := probe(cfg.RequestedPort)
	if err == nil {
		return cfg, nil
	}

	if cfg.RequestedPort == cfg.FailoverPort {
		return cfg, fmt.Errorf("port %d: %w: %w", cfg.RequestedPort, ErrDefaultPortInUse, err)
	}
	if !cfg.AllowFailover {
		return cfg, fmt.Errorf("port %d: %w: %w", cfg.RequestedPort, ErrPortInUseNoFailover, err)
	}

	log.Error("specified port in use, using failover port",
		"code", "specified_port_in_use", "port", cfg.RequestedPort,
		"failover_port", cfg.FailoverPort, "error", err)
	cfg.RequestedPort = cfg.FailoverPort
	if err := probe(cfg.RequestedPort); err != nil {
		return cfg, fmt.Errorf("port %d: %w: %w", cfg.RequestedPort, ErrDefaultPortInUse, err)
	}
	return cfg, nil
}

// FreePort asks the kernel for a currently unused loopback port. The port is
// not held; callers race other processes for it.
func FreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("resolve tcp address: %w", err)
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("listen on tcp address: %w", err)
	}
	defer l.Close() //nolint:errcheck // port only needed for its number

	tcpAddr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected address type: %T", l.Addr())
	}
	return tcpAddr.Port, nil
}
