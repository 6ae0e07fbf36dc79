// ABOUTME: Tests for the local PWA-facing HTTP API
// ABOUTME: Covers enqueue validation, status payloads, manual trigger, and the read fallback
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteo/fieldsync/models"
	"github.com/ruteo/fieldsync/store"
	"github.com/ruteo/fieldsync/sync"
)

var errNoRoute = errors.New("no route to host")

// unreachableRemote answers every call with a network error, so the
// controller under test stays offline and all writes remain queued.
type unreachableRemote struct{}

func (unreachableRemote) CreateVisit(ctx context.Context, id uuid.UUID, payload json.RawMessage) error {
	return errNoRoute
}

func (unreachableRemote) CompleteVisit(ctx context.Context, id uuid.UUID, data json.RawMessage, coords *models.Coords) error {
	return errNoRoute
}

func (unreachableRemote) FetchPlannedVisits(ctx context.Context) ([]models.PlannedVisit, error) {
	return nil, errNoRoute
}

func (unreachableRemote) Ping(ctx context.Context) error {
	return errNoRoute
}

func setupServer(t *testing.T) (*Server, *sync.Controller) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctrl := sync.NewController(sync.Config{Store: s, Remote: unreachableRemote{}, Logger: zerolog.Nop()})
	return NewServer(ctrl, zerolog.Nop()), ctrl
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestEnqueueReportAndStatus(t *testing.T) {
	srv, _ := setupServer(t)
	router := srv.Router()

	id := uuid.New()
	w := doJSON(t, router, http.MethodPost, "/api/reports", map[string]interface{}{
		"id":         id,
		"buyer_name": "Acme",
		"data":       map[string]string{"outcome": "sold"},
		"coords":     map[string]float64{"lat": -12.05, "lng": -77.03},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var status sync.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, 1, status.Pending)
	assert.Equal(t, 1, status.PendingReports)
	assert.False(t, status.Online)
	assert.False(t, status.Syncing)
}

func TestEnqueueReportValidation(t *testing.T) {
	srv, _ := setupServer(t)
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/api/reports", map[string]interface{}{
		"buyer_name": "Acme",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "a report without id and data is rejected")
}

func TestEnqueueDraftMintsIDWhenAbsent(t *testing.T) {
	srv, ctrl := setupServer(t)
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/api/drafts", map[string]interface{}{
		"buyer_name": "Bodega Norte",
		"payload":    map[string]string{"activity_type": "sale"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		ID      uuid.UUID `json:"id"`
		Pending int       `json:"pending"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEqual(t, uuid.Nil, resp.ID, "the agent mints an id when the client did not")
	assert.Equal(t, 1, resp.Pending)

	// The same id resubmitted replaces, never duplicates.
	w = doJSON(t, router, http.MethodPost, "/api/drafts", map[string]interface{}{
		"id":         resp.ID,
		"buyer_name": "Bodega Norte",
		"payload":    map[string]string{"activity_type": "collection"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, ctrl.PendingCount())
}

func TestRemoveDraft(t *testing.T) {
	srv, ctrl := setupServer(t)
	router := srv.Router()

	d := models.NewVisitDraft("Acme", json.RawMessage(`{}`))
	require.NoError(t, ctrl.EnqueueDraft(d))

	w := doJSON(t, router, http.MethodDelete, "/api/drafts/"+d.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, ctrl.PendingCount())

	w = doJSON(t, router, http.MethodDelete, "/api/drafts/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTriggerSyncWhileOffline(t *testing.T) {
	srv, _ := setupServer(t)
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/api/sync", nil)
	require.Equal(t, http.StatusOK, w.Code, "an offline trigger is a safe no-op, not an error")

	var resp struct {
		Started bool `json:"started"`
		Online  bool `json:"online"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Started)
	assert.False(t, resp.Online)
}

func TestLookupVisitFallback(t *testing.T) {
	srv, ctrl := setupServer(t)
	router := srv.Router()

	d := models.NewVisitDraft("Acme", json.RawMessage(`{"activity_type":"sale"}`))
	require.NoError(t, ctrl.EnqueueDraft(d))

	w := doJSON(t, router, http.MethodGet, "/api/visits/"+d.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resolved sync.ResolvedVisit
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resolved))
	assert.Equal(t, "draft", resolved.Source)

	w = doJSON(t, router, http.MethodGet, "/api/visits/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "unknown ids are not resolvable offline")
}

func TestClearAll(t *testing.T) {
	srv, ctrl := setupServer(t)
	router := srv.Router()

	require.NoError(t, ctrl.EnqueueDraft(models.NewVisitDraft("A", json.RawMessage(`{}`))))
	require.NoError(t, ctrl.EnqueueReport(models.NewVisitReport(uuid.New(), "B", json.RawMessage(`{}`), nil)))

	w := doJSON(t, router, http.MethodPost, "/api/clear", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, ctrl.PendingCount())
}
