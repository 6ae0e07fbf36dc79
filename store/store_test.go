// ABOUTME: Tests for the durable queue store
// ABOUTME: Covers upsert-by-id, removal, wholesale planned replacement, and change notifications
package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteo/fieldsync/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err, "in-memory store should open")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutReportUpsertsByID(t *testing.T) {
	s := openTestStore(t)
	id := uuid.New()

	first := models.NewVisitReport(id, "Acme", json.RawMessage(`{"outcome":"pending"}`), nil)
	require.NoError(t, s.PutReport(first))

	second := models.NewVisitReport(id, "Acme", json.RawMessage(`{"outcome":"sold"}`), &models.Coords{Lat: 1, Lng: 2})
	require.NoError(t, s.PutReport(second))

	reports, err := s.Reports()
	require.NoError(t, err)
	require.Len(t, reports, 1, "re-submission must replace the prior entry, never duplicate")
	assert.JSONEq(t, `{"outcome":"sold"}`, string(reports[0].Data))
	require.NotNil(t, reports[0].Coords)
}

func TestPutDraftUpsertsByID(t *testing.T) {
	s := openTestStore(t)

	d := models.NewVisitDraft("Bodega Norte", json.RawMessage(`{"activity_type":"sale"}`))
	require.NoError(t, s.PutDraft(d))
	require.NoError(t, s.PutDraft(d))

	drafts, err := s.Drafts()
	require.NoError(t, err)
	assert.Len(t, drafts, 1)
	assert.Equal(t, d.ID, drafts[0].ID)
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	d := models.NewVisitDraft("Acme", json.RawMessage(`{}`))
	require.NoError(t, s.PutDraft(d))
	require.NoError(t, s.RemoveDraft(d.ID))
	require.NoError(t, s.RemoveDraft(d.ID), "removing an absent id is not an error")

	got, err := s.GetDraft(d.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestReplacePlannedIsWholesale(t *testing.T) {
	s := openTestStore(t)

	old := []models.PlannedVisit{
		{ID: uuid.New(), BuyerName: "Stale A", Status: models.StatusPlanned},
		{ID: uuid.New(), BuyerName: "Stale B", Status: models.StatusPlanned},
	}
	require.NoError(t, s.ReplacePlanned(old))

	fresh := []models.PlannedVisit{{ID: uuid.New(), BuyerName: "Fresh", Status: models.StatusPlanned}}
	require.NoError(t, s.ReplacePlanned(fresh))

	cached, err := s.PlannedVisits()
	require.NoError(t, err)
	require.Len(t, cached, 1, "refresh replaces the snapshot, no incremental merge")
	assert.Equal(t, "Fresh", cached[0].BuyerName)

	gone, err := s.GetPlanned(old[0].ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestCountsSumPendingQueues(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.PutDraft(models.NewVisitDraft("A", json.RawMessage(`{}`))))
	require.NoError(t, s.PutDraft(models.NewVisitDraft("B", json.RawMessage(`{}`))))
	require.NoError(t, s.PutReport(models.NewVisitReport(uuid.New(), "C", json.RawMessage(`{}`), nil)))

	// Planned cache entries must not count as pending work.
	require.NoError(t, s.ReplacePlanned([]models.PlannedVisit{{ID: uuid.New(), BuyerName: "D"}}))

	reports, drafts, err := s.Counts()
	require.NoError(t, err)
	assert.Equal(t, 1, reports)
	assert.Equal(t, 2, drafts)
}

func TestClearQueuesKeepsPlannedCache(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.PutDraft(models.NewVisitDraft("A", json.RawMessage(`{}`))))
	require.NoError(t, s.PutReport(models.NewVisitReport(uuid.New(), "B", json.RawMessage(`{}`), nil)))
	require.NoError(t, s.ReplacePlanned([]models.PlannedVisit{{ID: uuid.New(), BuyerName: "C"}}))

	require.NoError(t, s.ClearQueues())

	reports, drafts, err := s.Counts()
	require.NoError(t, err)
	assert.Zero(t, reports)
	assert.Zero(t, drafts)

	cached, err := s.PlannedVisits()
	require.NoError(t, err)
	assert.Len(t, cached, 1, "administrative purge must not touch the planned cache")
}

func TestWatchEmitsOnMutation(t *testing.T) {
	s := openTestStore(t)
	ch := s.Watch()

	require.NoError(t, s.PutDraft(models.NewVisitDraft("A", json.RawMessage(`{}`))))

	select {
	case col := <-ch:
		assert.Equal(t, Drafts, col)
	case <-time.After(time.Second):
		t.Fatal("expected a queue-changed notification after a write")
	}
}
