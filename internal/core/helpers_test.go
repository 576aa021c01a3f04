package core

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/giantswarm/embeddb/internal/engine"
	"github.com/giantswarm/embeddb/internal/engine/enginetest"
	"github.com/giantswarm/embeddb/internal/netutil"
)

const sampleDataScript = `
CREATE TABLE customers (customernumber INTEGER PRIMARY KEY, customername TEXT NOT NULL);
CREATE TABLE orders (ordernumber INTEGER PRIMARY KEY, customernumber INTEGER REFERENCES customers(customernumber));
INSERT INTO customers VALUES (103, 'Atelier graphique');
`

// logBuffer collects JSON log lines from concurrent writers.
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// count returns the number of log lines containing every fragment.
func (b *logBuffer) count(fragments ...string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for line := range strings.SplitSeq(b.buf.String(), "\n") {
		matched := line != ""
		for _, f := range fragments {
			if !strings.Contains(line, f) {
				matched = false
				break
			}
		}
		if matched {
			n++
		}
	}
	return n
}

func newTestLogger() (*slog.Logger, *logBuffer) {
	buf := &logBuffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// newTestServer starts an enginetest server on an ephemeral port.
func newTestServer(t *testing.T) (*enginetest.Engine, engine.Server) {
	t.Helper()

	eng := enginetest.New(t.TempDir())
	srv, err := eng.CreateServer(context.Background(), 0)
	if err != nil {
		t.Fatalf("CreateServer() error: %v", err)
	}
	t.Cleanup(func() { _ = srv.Stop() })
	return eng, srv
}

func writeScript(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func freePort(t *testing.T) int {
	t.Helper()

	port, err := netutil.FreePort()
	if err != nil {
		t.Fatalf("FreePort() error: %v", err)
	}
	return port
}

func mustRegistry(t *testing.T, entries ...Entry) Registry {
	t.Helper()

	r, err := NewRegistry(entries...)
	if err != nil {
		t.Fatalf("NewRegistry() error: %v", err)
	}
	return r
}

// testConfig returns a valid config using eng and a free port.
func testConfig(t *testing.T, eng engine.Engine) ControllerConfig {
	t.Helper()

	port := freePort(t)
	return ControllerConfig{
		Port:            port,
		FailoverPort:    port,
		DataDir:         t.TempDir(),
		Credentials:     engine.Credentials{User: "root"},
		MaxBindAttempts: 3,
		Engine:          eng,
	}
}
