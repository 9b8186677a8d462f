package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"fleetsync/internal/fleet"
	"fleetsync/internal/queue"
)

// NewListCommand creates the list command.
func NewListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "list (vehicles|companies)",
		Short:     "Show the local mirror of a collection",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"vehicles", "companies"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			var entities []queue.LocalEntity
			switch args[0] {
			case fleet.EntityTypeVehicles:
				entities = a.service.LocalVehicles(ctx)
			case fleet.EntityTypeCompanies:
				entities = a.service.LocalCompanies(ctx)
			default:
				return fmt.Errorf("unknown collection %q", args[0])
			}

			return renderEntities(cmd.OutOrStdout(), opts.Format, entities)
		},
	}
}
