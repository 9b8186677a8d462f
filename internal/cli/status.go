package cli

import (
	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pending and failed queue counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			st := Status{
				Pending: a.service.PendingSyncCount(ctx),
				Failed:  len(a.service.FailedItems(ctx)),
			}
			return renderStatus(cmd.OutOrStdout(), opts.Format, st)
		},
	}
}
