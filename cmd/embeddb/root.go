package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/giantswarm/embeddb"
)

// Configuration keys. Each is a flag, an EMBEDDB_* environment variable
// (dashes become underscores) and a config file key.
const (
	keyPort              = "port"
	keyFailoverPort      = "failover-port"
	keyAllowPortFailover = "allow-port-failover"
	keyDatabases         = "databases"
	keyDataDir           = "data-dir"
	keyServerBinary      = "server-binary"
	keyMaxBindAttempts   = "max-bind-attempts"
	keyStartTimeout      = "start-timeout"
	keyStopTimeout       = "stop-timeout"
	keyLogFile           = "log-file"
	keyLogFormat         = "log-format"
	keyLogLevel          = "log-level"
	keyMetricsAddr       = "metrics-addr"
)

// cli holds the state shared by all subcommands.
type cli struct {
	v       *viper.Viper
	cfgFile string
	// extra options are appended to the ones built from configuration.
	extra []embeddb.Option
}

// newRootCommand builds the command tree. extra options are passed to every
// controller and take precedence over configuration.
func newRootCommand(extra ...embeddb.Option) *cobra.Command {
	c := &cli{v: viper.New(), extra: extra}

	root := &cobra.Command{
		Use:   "embeddb",
		Short: "Run an embedded SQL database server",
		Long: `embeddb starts a dolt sql-server, negotiates its port and provisions
databases from SQL scripts.

The server listens on all interfaces with a password-less superuser.
Only run it on localhost or a trusted network.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.loadConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.Int(keyPort, embeddb.DefaultPort, "port the server should bind")
	flags.Int(keyFailoverPort, embeddb.DefaultFailoverPort, "port used when the requested port is invalid or taken")
	flags.Bool(keyAllowPortFailover, false, "use the failover port when the requested port is invalid or taken")
	flags.String(keyDatabases, "", "comma-separated name@scriptPath pairs")
	flags.String(keyDataDir, embeddb.DefaultDataDir, "directory holding the database files")
	flags.String(keyServerBinary, embeddb.DefaultServerBinary, "path to the dolt binary")
	flags.Int(keyMaxBindAttempts, embeddb.DefaultMaxBindAttempts, "server creation attempts on consecutive ports")
	flags.Duration(keyStartTimeout, embeddb.DefaultStartTimeout, "time allowed for the server to accept connections")
	flags.Duration(keyStopTimeout, embeddb.DefaultStopTimeout, "time allowed for the server to stop before it is killed")
	flags.String(keyLogFile, "", "write logs to this file, rotated by size")
	flags.String(keyLogFormat, "text", "log format: text or json")
	flags.String(keyLogLevel, "info", "log level: debug, info, warn or error")
	flags.String(keyMetricsAddr, "", "serve Prometheus metrics on this address, e.g. :9464")

	if err := c.v.BindPFlags(flags); err != nil {
		panic(fmt.Sprintf("embeddb: bind flags: %v", err))
	}

	root.AddCommand(
		newServeCommand(c),
		newCheckPortCommand(c),
	)
	return root
}

// loadConfig layers the config file and environment under the flags.
func (c *cli) loadConfig(cmd *cobra.Command) error {
	c.v.SetEnvPrefix("EMBEDDB")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	if c.cfgFile == "" {
		return nil
	}
	c.v.SetConfigFile(c.cfgFile)
	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return fmt.Errorf("config file %s not found", c.cfgFile)
		}
		return fmt.Errorf("read config file %s: %w", c.cfgFile, err)
	}
	return nil
}

// params returns the init parameters read by embeddb.OnInit. Values are
// passed as strings so an unparsable port from the environment is reported
// by OnInit.
func (c *cli) params() map[string]string {
	return map[string]string{
		embeddb.ParamPort:              c.v.GetString(keyPort),
		embeddb.ParamAllowPortFailover: c.v.GetString(keyAllowPortFailover),
		embeddb.ParamDatabases:         c.v.GetString(keyDatabases),
	}
}

// options returns the controller options not covered by params.
func (c *cli) options() []embeddb.Option {
	opts := []embeddb.Option{
		embeddb.WithFailoverPort(c.v.GetInt(keyFailoverPort)),
		embeddb.WithDataDir(c.v.GetString(keyDataDir)),
		embeddb.WithServerBinary(c.v.GetString(keyServerBinary)),
		embeddb.WithMaxBindAttempts(c.v.GetInt(keyMaxBindAttempts)),
		embeddb.WithStartTimeout(c.v.GetDuration(keyStartTimeout)),
		embeddb.WithStopTimeout(c.v.GetDuration(keyStopTimeout)),
	}
	return append(opts, c.extra...)
}

// validate rejects values the With* options would panic on.
func (c *cli) validate() error {
	var errs []error
	if p := c.v.GetInt(keyFailoverPort); p < 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("--%s must be in [0, 65535], got %d", keyFailoverPort, p))
	}
	if c.v.GetInt(keyMaxBindAttempts) <= 0 {
		errs = append(errs, fmt.Errorf("--%s must be greater than 0", keyMaxBindAttempts))
	}
	for _, k := range []string{keyDataDir, keyServerBinary} {
		if c.v.GetString(k) == "" {
			errs = append(errs, fmt.Errorf("--%s must not be empty", k))
		}
	}
	for _, k := range []string{keyStartTimeout, keyStopTimeout} {
		if c.v.GetDuration(k) <= 0 {
			errs = append(errs, fmt.Errorf("--%s must be greater than 0", k))
		}
	}
	return errors.Join(errs...)
}
