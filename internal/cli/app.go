package cli

import (
	"fmt"
	"os"

	"fleetsync/internal/fleet"
	"fleetsync/internal/netwatch"
	"fleetsync/internal/queue"
	"fleetsync/internal/remote"
	"fleetsync/internal/store"
)

// app wires the sync stack for a command invocation: durable store, remote
// client, connectivity monitor, engine, and the fleet service on top.
type app struct {
	cfg     Config
	store   *store.Store
	monitor *netwatch.Monitor
	service *fleet.Service
}

// newApp builds the stack from the config at opts.ConfigPath.
func newApp(opts *RootOptions) (*app, error) {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	var clientOpts []remote.ClientOption
	if cfg.Remote.AuthToken != "" {
		clientOpts = append(clientOpts, remote.WithToken(cfg.Remote.AuthToken))
	}
	client := remote.NewClient(cfg.Remote.BaseURL, clientOpts...)

	monitor := netwatch.New(
		netwatch.NewHTTPProber(cfg.Sync.ProbeURL),
		netwatch.WithInterval(cfg.WatchInterval()),
	)

	engine := queue.New(st, client, monitor,
		queue.WithMaxRetries(cfg.Sync.MaxRetries),
		queue.WithAttemptTimeout(cfg.AttemptTimeout()),
	)

	return &app{
		cfg:     cfg,
		store:   st,
		monitor: monitor,
		service: fleet.NewService(engine),
	}, nil
}

// Close releases the app's resources.
func (a *app) Close() error {
	a.monitor.Stop()
	return a.store.Close()
}
