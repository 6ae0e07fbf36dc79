// ABOUTME: Shared wiring helpers for CLI commands
// ABOUTME: Builds the store, remote client, logger, and history database from config
package cli

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/ruteo/fieldsync/config"
	"github.com/ruteo/fieldsync/db"
	"github.com/ruteo/fieldsync/remote"
	"github.com/ruteo/fieldsync/store"
)

const remoteTimeout = 10 * time.Second

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

func openStore() (*store.Store, error) {
	st, err := store.Open(config.QueuePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open queue store: %w", err)
	}
	return st, nil
}

func openHistory() (*sql.DB, error) {
	database, err := db.OpenDatabase(config.HistoryPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return database, nil
}

func newRemote(cfg *config.Config) (*remote.Client, error) {
	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("no server configured. Run 'fieldsync login' first")
	}
	return remote.NewClient(cfg.Server, cfg.Token, cfg.DeviceID, remoteTimeout), nil
}
