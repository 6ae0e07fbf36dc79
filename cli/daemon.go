// ABOUTME: Daemon command running the sync controller and local HTTP API
// ABOUTME: Wires store, remote client, history log, and web server; exits on SIGINT/SIGTERM
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ruteo/fieldsync/config"
	"github.com/ruteo/fieldsync/db"
	"github.com/ruteo/fieldsync/sync"
	"github.com/ruteo/fieldsync/web"
)

// DaemonCommand runs the sync agent until interrupted.
func DaemonCommand(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("daemon", flag.ExitOnError)
	listen := fs.String("listen", cfg.ListenAddr, "Local API listen address")
	_ = fs.Parse(args)

	logger := newLogger(cfg)

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	history, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = history.Close() }()

	client, err := newRemote(cfg)
	if err != nil {
		return err
	}

	ctrl := sync.NewController(sync.Config{
		Store:         st,
		Remote:        client,
		Logger:        logger,
		SyncInterval:  cfg.SyncEvery(),
		ProbeInterval: cfg.ProbeEvery(),
		OnRun: func(res sync.Result) {
			run := db.SyncRun{
				RunID:         res.RunID,
				Trigger:       res.Trigger,
				StartedAt:     res.Started,
				FinishedAt:    res.Finished,
				SyncedDrafts:  res.SyncedDrafts,
				SyncedReports: res.SyncedReports,
				Purged:        res.Purged,
				Failed:        res.Failed,
			}
			if err := db.RecordSyncRun(history, run); err != nil {
				logger.Error().Err(err).Str("run_id", res.RunID).Msg("failed to record sync run")
			}
		},
	})

	if err := ctrl.Start(); err != nil {
		return fmt.Errorf("failed to start sync controller: %w", err)
	}
	defer ctrl.Stop()

	srv := &http.Server{
		Addr:    *listen,
		Handler: web.NewServer(ctrl, logger).Router(),
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", *listen).Str("device_id", cfg.DeviceID).Msg("fieldsync daemon listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errChan:
		return fmt.Errorf("local API server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down local API server: %w", err)
	}

	return nil
}
