// ABOUTME: Interactive dashboard command
// ABOUTME: Runs a controller in-process and attaches the TUI status view
package cli

import (
	"flag"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ruteo/fieldsync/config"
	"github.com/ruteo/fieldsync/sync"
	"github.com/ruteo/fieldsync/tui"
)

// DashCommand runs the TUI dashboard over an in-process controller. It owns
// the queue store for its lifetime, so it cannot run alongside the daemon.
func DashCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("dash", flag.ExitOnError)
	_ = fs.Parse(args)

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	client, err := newRemote(cfg)
	if err != nil {
		return err
	}

	// log lines would tear the TUI screen, so the controller runs silent
	logger := newLogger(cfg).Level(zerolog.Disabled)
	ctrl := sync.NewController(sync.Config{
		Store:         st,
		Remote:        client,
		Logger:        logger,
		SyncInterval:  cfg.SyncEvery(),
		ProbeInterval: cfg.ProbeEvery(),
	})

	if err := ctrl.Start(); err != nil {
		return fmt.Errorf("failed to start sync controller: %w", err)
	}
	defer ctrl.Stop()

	return tui.Run(ctrl)
}
