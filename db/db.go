// ABOUTME: Database connection management and initialization
// ABOUTME: Handles opening the SQLite sync-history database with WAL mode
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// OpenDatabase opens the sync-history database at path, creating the file
// and its parent directory on first use. WAL keeps the daemon's writer from
// blocking one-shot CLI readers; a single connection avoids sqlite lock
// contention entirely.
func OpenDatabase(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	database, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	database.SetMaxOpenConns(1)

	if err := InitSchema(database); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return database, nil
}
