package core

import (
	"strings"
	"testing"
	"time"

	"github.com/giantswarm/embeddb/internal/engine/enginetest"
)

func TestControllerConfig_Validate(t *testing.T) {
	t.Parallel()
	validConfig := func() ControllerConfig {
		return ControllerConfig{
			Port:            9001,
			FailoverPort:    9001,
			DataDir:         "/tmp/embeddb",
			ServerBinary:    "dolt",
			MaxBindAttempts: 3,
			StartTimeout:    30 * time.Second,
			StopTimeout:     10 * time.Second,
		}
	}

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		if err := cfg.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("out of range port is accepted", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Port = 70000
		if err := cfg.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("engine makes binary and timeouts optional", func(t *testing.T) {
		t.Parallel()
		cfg := validConfig()
		cfg.Engine = enginetest.New(t.TempDir())
		cfg.ServerBinary = ""
		cfg.StartTimeout = 0
		cfg.StopTimeout = 0
		if err := cfg.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	tests := map[string]struct {
		modify       func(c *ControllerConfig)
		wantContains string
	}{
		"negative failover port": {
			modify:       func(c *ControllerConfig) { c.FailoverPort = -1 },
			wantContains: "failover port",
		},
		"failover port above range": {
			modify:       func(c *ControllerConfig) { c.FailoverPort = 65536 },
			wantContains: "failover port",
		},
		"zero max bind attempts": {
			modify:       func(c *ControllerConfig) { c.MaxBindAttempts = 0 },
			wantContains: "max bind attempts",
		},
		"empty data dir": {
			modify:       func(c *ControllerConfig) { c.DataDir = "" },
			wantContains: "data directory",
		},
		"empty server binary": {
			modify:       func(c *ControllerConfig) { c.ServerBinary = "" },
			wantContains: "server binary",
		},
		"zero start timeout": {
			modify:       func(c *ControllerConfig) { c.StartTimeout = 0 },
			wantContains: "start timeout",
		},
		"negative stop timeout": {
			modify:       func(c *ControllerConfig) { c.StopTimeout = -1 },
			wantContains: "stop timeout",
		},
		"malformed database": {
			modify:       func(c *ControllerConfig) { c.Databases = []Entry{{Name: "sampledata"}} },
			wantContains: "malformed database entry",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tc.modify(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.wantContains) {
				t.Errorf("error %q should contain %q", err.Error(), tc.wantContains)
			}
		})
	}

	t.Run("multiple errors joined", func(t *testing.T) {
		t.Parallel()
		err := ControllerConfig{FailoverPort: -1}.Validate()
		if err == nil {
			t.Fatal("expected error for zero-value config")
		}
		for _, part := range []string{
			"failover port",
			"max bind attempts",
			"data directory",
			"server binary",
			"start timeout",
			"stop timeout",
		} {
			if !strings.Contains(err.Error(), part) {
				t.Errorf("error %q should contain %q", err.Error(), part)
			}
		}
	})
}
