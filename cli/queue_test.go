// ABOUTME: Tests for queue and history CLI commands
// ABOUTME: Verifies commands run against real on-disk stores without error
package cli

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/adrg/xdg"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/ruteo/fieldsync/config"
	"github.com/ruteo/fieldsync/db"
	"github.com/ruteo/fieldsync/models"
)

func setupTestHome(t *testing.T) *config.Config {
	origHome := xdg.DataHome
	xdg.DataHome = t.TempDir()
	t.Cleanup(func() { xdg.DataHome = origHome })
	return &config.Config{ListenAddr: config.DefaultListenAddr}
}

func TestQueueListCommandEmpty(t *testing.T) {
	cfg := setupTestHome(t)

	err := QueueListCommand(cfg, []string{})
	require.NoError(t, err, "queue list should succeed on empty queues")
}

func TestQueueRemoveCommand(t *testing.T) {
	cfg := setupTestHome(t)

	st, err := openStore()
	require.NoError(t, err)
	draft := models.NewVisitDraft("Mercado Central", json.RawMessage(`{"note":"x"}`))
	require.NoError(t, st.PutDraft(draft))
	require.NoError(t, st.Close())

	err = QueueRemoveCommand(cfg, []string{"--kind", "draft", draft.ID.String()})
	require.NoError(t, err, "remove should succeed for a queued draft")

	st, err = openStore()
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	drafts, err := st.Drafts()
	require.NoError(t, err)
	require.Empty(t, drafts, "draft should be gone after remove")
}

func TestQueueRemoveCommandRejectsBadInput(t *testing.T) {
	cfg := setupTestHome(t)

	err := QueueRemoveCommand(cfg, []string{"--kind", "draft"})
	require.Error(t, err, "missing id should be rejected")

	err = QueueRemoveCommand(cfg, []string{"--kind", "visit", "2f9f9a1e-0000-0000-0000-000000000000"})
	require.Error(t, err, "unknown kind should be rejected")
}

func TestHistoryCommand(t *testing.T) {
	cfg := setupTestHome(t)

	history, err := openHistory()
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, db.RecordSyncRun(history, db.SyncRun{
		RunID:        ulid.Make().String(),
		Trigger:      "manual",
		StartedAt:    now.Add(-time.Second),
		FinishedAt:   now,
		SyncedDrafts: 2,
	}))
	require.NoError(t, history.Close())

	err = HistoryCommand(cfg, []string{"--limit", "5"})
	require.NoError(t, err, "history should list recorded runs")
}

func TestPlannedListCommandEmpty(t *testing.T) {
	cfg := setupTestHome(t)

	err := PlannedListCommand(cfg, []string{})
	require.NoError(t, err, "planned list should succeed on empty cache")
}
