package embeddb

import "github.com/giantswarm/embeddb/internal/core"

// controllerConfig holds configuration for a Controller. This unexported type
// wraps core.ControllerConfig via embedding, keeping internal/core types out
// of the public API signature while avoiding field-by-field duplication.
type controllerConfig struct {
	core.ControllerConfig
}

// toCoreConfig returns the embedded core.ControllerConfig.
func (c controllerConfig) toCoreConfig() core.ControllerConfig {
	return c.ControllerConfig
}

// defaultControllerConfig returns a controllerConfig populated with all
// default values.
func defaultControllerConfig() controllerConfig {
	return controllerConfig{core.ControllerConfig{
		Port:            DefaultPort,
		FailoverPort:    DefaultFailoverPort,
		DataDir:         DefaultDataDir,
		ServerBinary:    DefaultServerBinary,
		Credentials:     Credentials{User: DefaultUser},
		MaxBindAttempts: DefaultMaxBindAttempts,
		StartTimeout:    DefaultStartTimeout,
		StopTimeout:     DefaultStopTimeout,
	}}
}
