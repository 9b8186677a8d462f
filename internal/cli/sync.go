package cli

import (
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"fleetsync/internal/queue"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(opts *RootOptions) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Drain the mutation queue against the remote store",
		Long: "Submit all pending queued creations to the remote store. With --watch, " +
			"keep running and drain again whenever connectivity is restored.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if _, err := a.monitor.Refresh(ctx); err != nil {
				slog.Debug("connectivity probe failed", "error", err)
			}

			res, err := a.service.SyncQueue(ctx)
			if err != nil {
				return err
			}
			if err := renderDrain(cmd.OutOrStdout(), opts.Format, res); err != nil {
				return err
			}

			if !watch {
				return nil
			}

			// Drain again on every offline→online edge until interrupted.
			drains := make(chan struct{}, 1)
			unsubscribe := a.monitor.AddListener(func(online bool) {
				if online {
					select {
					case drains <- struct{}{}:
					default:
					}
				}
			})
			defer unsubscribe()

			a.monitor.Start(ctx)

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-drains:
					res, err := a.service.SyncQueue(ctx)
					if err != nil {
						if queue.IsDrainInProgress(err) {
							continue
						}
						return err
					}
					slog.Info("connectivity restored, drained queue",
						"synced", res.Synced,
						"failed", res.Failed,
						"deferred", res.Deferred)
				}
			}
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "keep running and drain when connectivity returns")
	return cmd
}
