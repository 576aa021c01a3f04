package embeddb

import "time"

// ConfigSnapshot holds a copy of controllerConfig fields for test assertions.
// Exported only via export_test.go so that the _test package can verify
// option closures actually mutate the config without accessing internals.
type ConfigSnapshot struct {
	Port              int
	FailoverPort      int
	AllowPortFailover bool
	Databases         []Entry
	DataDir           string
	ServerBinary      string
	Credentials       Credentials
	MaxBindAttempts   int
	StartTimeout      time.Duration
	StopTimeout       time.Duration
	HasEngine         bool
	HasMetrics        bool
}

// ApplyOptionsForTesting creates a default controllerConfig, applies the
// given options, and returns a ConfigSnapshot of the result.
func ApplyOptionsForTesting(opts ...Option) ConfigSnapshot {
	cfg := defaultControllerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return ConfigSnapshot{
		Port:              cfg.Port,
		FailoverPort:      cfg.FailoverPort,
		AllowPortFailover: cfg.AllowPortFailover,
		Databases:         cfg.Databases,
		DataDir:           cfg.DataDir,
		ServerBinary:      cfg.ServerBinary,
		Credentials:       cfg.Credentials,
		MaxBindAttempts:   cfg.MaxBindAttempts,
		StartTimeout:      cfg.StartTimeout,
		StopTimeout:       cfg.StopTimeout,
		HasEngine:         cfg.Engine != nil,
		HasMetrics:        cfg.Metrics != nil,
	}
}
