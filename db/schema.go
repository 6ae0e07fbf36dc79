// ABOUTME: Database schema definitions and migrations
// ABOUTME: Handles SQLite table creation for the sync run history
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS sync_runs (
	run_id TEXT PRIMARY KEY,
	trigger_source TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL,
	synced_drafts INTEGER NOT NULL DEFAULT 0,
	synced_reports INTEGER NOT NULL DEFAULT 0,
	purged INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_started_at ON sync_runs(started_at);
`

// InitSchema creates the sync-history tables if they do not exist.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
