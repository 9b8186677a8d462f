package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"fleetsync/internal/devserver"
)

// NewServeCommand creates the serve command, which runs the development
// stand-in for the hosted backend.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the development remote store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(opts.ConfigPath)
			if err != nil {
				return err
			}

			srv := devserver.New(cfg.Remote.AuthToken)
			fmt.Fprintf(cmd.OutOrStdout(), "dev server listening on %s\n", cfg.Server.Addr)
			return srv.Run(cfg.Server.Addr)
		},
	}
}
