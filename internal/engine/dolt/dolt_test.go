package dolt

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/giantswarm/embeddb/internal/engine"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg     Config
		wantErr bool
	}{
		"minimal config": {
			cfg: Config{DataDir: "/tmp/embeddb"},
		},
		"missing data dir": {
			cfg:     Config{Binary: "dolt"},
			wantErr: true,
		},
		"negative start timeout": {
			cfg:     Config{DataDir: "/tmp/embeddb", StartTimeout: -time.Second},
			wantErr: true,
		},
		"negative stop timeout": {
			cfg:     Config{DataDir: "/tmp/embeddb", StopTimeout: -time.Second},
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			e, err := New(tc.cfg)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			if e.config.Binary != DefaultBinary {
				t.Errorf("Binary = %q, want %q", e.config.Binary, DefaultBinary)
			}
			if e.config.Host != DefaultHost {
				t.Errorf("Host = %q, want %q", e.config.Host, DefaultHost)
			}
			if e.config.StartTimeout != DefaultStartTimeout {
				t.Errorf("StartTimeout = %v, want %v", e.config.StartTimeout, DefaultStartTimeout)
			}
			if e.config.Logger == nil {
				t.Error("Logger should default to slog.Default()")
			}
		})
	}
}

func TestArgs(t *testing.T) {
	t.Parallel()

	got := args(Config{Host: "0.0.0.0", DataDir: "/var/lib/embeddb"}, 9001)
	want := []string{"sql-server", "--host", "0.0.0.0", "--port", "9001", "--data-dir", "/var/lib/embeddb"}
	if !slices.Equal(got, want) {
		t.Errorf("args() = %v, want %v", got, want)
	}
}

func TestIsBindCollision(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		output string
		want   bool
	}{
		"kernel message": {
			output: "listen tcp 0.0.0.0:9001: bind: address already in use",
			want:   true,
		},
		"dolt message": {
			output: "Port 9001 already in use.",
			want:   true,
		},
		"mixed case": {
			output: "ERROR: Address Already In Use",
			want:   true,
		},
		"unrelated failure": {
			output: "error: no such file or directory",
			want:   false,
		},
		"empty output": {
			output: "",
			want:   false,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := isBindCollision(tc.output); got != tc.want {
				t.Errorf("isBindCollision(%q) = %v, want %v", tc.output, got, tc.want)
			}
		})
	}
}

func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in   string
		want string
	}{
		"plain":    {in: "sampledata", want: "`sampledata`"},
		"backtick": {in: "a`b", want: "`a``b`"},
		"hyphen":   {in: "hibernate-db", want: "`hibernate-db`"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := quoteIdent(tc.in); got != tc.want {
				t.Errorf("quoteIdent(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestServer_DSN(t *testing.T) {
	t.Parallel()

	s := newServer(mustEngine(t).config, 9001)
	dsn := s.dsn("sampledata", engine.Credentials{User: "root"})

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN(%q) error: %v", dsn, err)
	}
	if cfg.Addr != "127.0.0.1:9001" {
		t.Errorf("Addr = %q, want 127.0.0.1:9001", cfg.Addr)
	}
	if cfg.DBName != "sampledata" {
		t.Errorf("DBName = %q, want sampledata", cfg.DBName)
	}
	if cfg.User != "root" || cfg.Passwd != "" {
		t.Errorf("credentials = %q/%q, want root with empty password", cfg.User, cfg.Passwd)
	}
	if !cfg.MultiStatements {
		t.Error("MultiStatements must be enabled for startup scripts")
	}
}

func TestServer_Unstarted(t *testing.T) {
	t.Parallel()

	s := newServer(mustEngine(t).config, 9001)
	if s.IsRunning() {
		t.Error("unstarted server reports running")
	}
	if got := s.Status(); got != "not running" {
		t.Errorf("Status() = %q, want %q", got, "not running")
	}
	if got := s.Service(); !strings.Contains(got, "0.0.0.0:9001") {
		t.Errorf("Service() = %q, want it to contain the listen address", got)
	}
	if s.Port() != 9001 {
		t.Errorf("Port() = %d, want 9001", s.Port())
	}
	if err := s.Stop(); err != nil {
		t.Errorf("Stop() on unstarted server: %v", err)
	}
}

func TestServer_ConnectEmptyName(t *testing.T) {
	t.Parallel()

	s := newServer(mustEngine(t).config, 9001)
	if _, err := s.Connect(context.Background(), "", engine.Credentials{User: "root"}); err == nil {
		t.Fatal("expected error for empty database name")
	}
}

func TestCreateServer_MissingBinary(t *testing.T) {
	t.Parallel()

	e, err := New(Config{
		Binary:  filepath.Join(t.TempDir(), "no-such-dolt"),
		DataDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	srv, err := e.CreateServer(context.Background(), 9001)
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if srv != nil {
		t.Error("no server should be returned when the process never started")
	}
	if errors.Is(err, engine.ErrBindCollision) {
		t.Errorf("missing binary must not be reported as bind collision: %v", err)
	}
}

func TestCreateServer_EarlyExitWithBindError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// A stand-in for dolt that fails its bind the way dolt does.
	script := writeFakeDolt(t, dir, "#!/bin/sh\necho 'listen tcp 0.0.0.0:9001: bind: address already in use' >&2\nexit 1\n")

	e, err := New(Config{Binary: script, DataDir: filepath.Join(dir, "data"), StartTimeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Pick a port nothing listens on so readiness can only end by exit.
	srv, err := e.CreateServer(context.Background(), 1)
	if !errors.Is(err, engine.ErrBindCollision) {
		t.Fatalf("CreateServer() error = %v, want %v", err, engine.ErrBindCollision)
	}
	if srv == nil {
		t.Fatal("expected the partial server to be returned")
	}
	if err := srv.Stop(); err != nil {
		t.Errorf("Stop() on exited server: %v", err)
	}
}

// slowBindFailure is a stand-in for dolt that only reports its lost bind
// after the first readiness attempts have been made.
const slowBindFailure = "#!/bin/sh\nsleep 1\necho 'listen tcp 0.0.0.0:9001: bind: address already in use' >&2\nexit 1\n"

func TestCreateServer_PortHeldByOtherListener(t *testing.T) {
	t.Parallel()

	l := holdPort(t, nil)
	dir := t.TempDir()
	e, err := New(Config{Binary: writeFakeDolt(t, dir, slowBindFailure), DataDir: filepath.Join(dir, "data"), StartTimeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	srv, err := e.CreateServer(context.Background(), l.Addr().(*net.TCPAddr).Port)
	if srv != nil {
		defer srv.Stop() //nolint:errcheck // test cleanup
	}
	if !errors.Is(err, engine.ErrBindCollision) {
		t.Fatalf("CreateServer() error = %v, want %v", err, engine.ErrBindCollision)
	}
}

func TestServer_WaitReadyIgnoresSilentListener(t *testing.T) {
	t.Parallel()

	l := holdPort(t, nil)
	dir := t.TempDir()
	e, err := New(Config{Binary: writeFakeDolt(t, dir, slowBindFailure), DataDir: filepath.Join(dir, "data"), StartTimeout: 10 * time.Second})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	// Bypass CreateServer so the listener is in place while dolt runs.
	s := newServer(e.config, l.Addr().(*net.TCPAddr).Port)
	if err := s.start(context.Background()); err != nil {
		t.Fatalf("start() error: %v", err)
	}
	defer s.Stop() //nolint:errcheck // test cleanup

	err = s.waitReady(context.Background())
	if err == nil {
		t.Fatal("waitReady() succeeded against a listener that never answered")
	}
	if got := s.classify(err); !errors.Is(got, engine.ErrBindCollision) {
		t.Errorf("classify() = %v, want %v", got, engine.ErrBindCollision)
	}
	if s.IsRunning() {
		t.Error("fake dolt should have exited")
	}
}

func TestServer_Handshake(t *testing.T) {
	t.Parallel()

	// Error packet for 1040 Too many connections, sequence 0.
	tooMany := append([]byte{0xff, 0x10, 0x04, '#'}, "08004Too many connections"...)
	errPacket := append([]byte{byte(len(tooMany)), 0, 0, 0}, tooMany...)

	tests := map[string]struct {
		reply   []byte
		wantErr bool
	}{
		"silent listener": {
			wantErr: true,
		},
		"server error reply": {
			reply: errPacket,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			l := holdPort(t, tc.reply)
			s := newServer(mustEngine(t).config, l.Addr().(*net.TCPAddr).Port)

			err := s.handshake(context.Background())
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("handshake() error: %v", err)
			}
		})
	}
}

// holdPort listens on all interfaces and writes reply, if any, to every
// accepted connection. Connections stay open until the test ends.
func holdPort(t *testing.T, reply []byte) net.Listener {
	t.Helper()

	l, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	t.Cleanup(func() {
		_ = l.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
			if len(reply) > 0 {
				_, _ = conn.Write(reply)
			}
		}
	}()
	return l
}

func writeFakeDolt(t *testing.T, dir, body string) string {
	t.Helper()

	script := filepath.Join(dir, "fake-dolt")
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write fake dolt: %v", err)
	}
	return script
}

func mustEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return e
}
