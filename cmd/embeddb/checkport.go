package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/giantswarm/embeddb/internal/core"
	"github.com/giantswarm/embeddb/internal/netutil"
)

func newCheckPortCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check-port",
		Short: "Print the port the server would bind, without starting it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := netutil.CheckPort(netutil.PortConfig{
				RequestedPort: c.v.GetInt(keyPort),
				FailoverPort:  c.v.GetInt(keyFailoverPort),
				AllowFailover: c.v.GetBool(keyAllowPortFailover),
			}, netutil.ProbeTCP, core.Logger())
			if err != nil {
				return fmt.Errorf("%s: %w", core.FailureCode(err), err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cfg.RequestedPort)
			return err
		},
	}
}
