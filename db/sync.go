// ABOUTME: Database operations for the sync_runs table
// ABOUTME: Records reconciliation run summaries and serves the history views
package db

import (
	"database/sql"
	"fmt"
	"time"
)

// SyncRun is one recorded reconciliation pass.
type SyncRun struct {
	RunID         string
	Trigger       string
	StartedAt     time.Time
	FinishedAt    time.Time
	SyncedDrafts  int
	SyncedReports int
	Purged        int
	Failed        int
}

// Synced is the total number of records the remote store confirmed.
func (r SyncRun) Synced() int {
	return r.SyncedDrafts + r.SyncedReports
}

// RecordSyncRun inserts a run summary. Run ids are ULIDs, so replays of the
// same summary are idempotent.
func RecordSyncRun(db *sql.DB, run SyncRun) error {
	_, err := db.Exec(`
		INSERT INTO sync_runs (run_id, trigger_source, started_at, finished_at, synced_drafts, synced_reports, purged, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO NOTHING
	`, run.RunID, run.Trigger, run.StartedAt, run.FinishedAt, run.SyncedDrafts, run.SyncedReports, run.Purged, run.Failed)

	if err != nil {
		return fmt.Errorf("failed to record sync run: %w", err)
	}

	return nil
}

// RecentSyncRuns returns the most recent runs, newest first.
func RecentSyncRuns(db *sql.DB, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(`
		SELECT run_id, trigger_source, started_at, finished_at, synced_drafts, synced_reports, purged, failed
		FROM sync_runs
		ORDER BY started_at DESC, run_id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []SyncRun
	for rows.Next() {
		var run SyncRun
		if err := rows.Scan(
			&run.RunID,
			&run.Trigger,
			&run.StartedAt,
			&run.FinishedAt,
			&run.SyncedDrafts,
			&run.SyncedReports,
			&run.Purged,
			&run.Failed,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// LastSyncRun returns the most recent run, or nil when the history is empty.
func LastSyncRun(db *sql.DB) (*SyncRun, error) {
	runs, err := RecentSyncRuns(db, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}
