// ABOUTME: Tests for the field-ops API client
// ABOUTME: Verifies request shape, auth headers, and NOT_FOUND classification
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteo/fieldsync/models"
)

func TestCreateVisitUsesExplicitID(t *testing.T) {
	id := uuid.New()
	var gotMethod, gotPath, gotAuth, gotDevice string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotDevice = r.Header.Get("X-Device-Id")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret-token", "device-1", time.Second)
	err := c.CreateVisit(context.Background(), id, json.RawMessage(`{"buyer":"Acme"}`))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod, "create must be an idempotent upsert by id")
	assert.Equal(t, "/api/v1/visits/"+id.String(), gotPath, "the locally-minted id is the primary key on create")
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "device-1", gotDevice)
	assert.JSONEq(t, `{"buyer":"Acme"}`, string(gotBody))
}

func TestCompleteVisitClassifiesNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", time.Second)
	err := c.CompleteVisit(context.Background(), uuid.New(), json.RawMessage(`{}`), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVisitNotFound), "404 must surface as ErrVisitNotFound")
}

func TestCompleteVisitOtherErrorsAreNotTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", time.Second)
	err := c.CompleteVisit(context.Background(), uuid.New(), json.RawMessage(`{}`), &models.Coords{Lat: 1, Lng: 2})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrVisitNotFound), "a server error is transient, not a purge signal")
}

func TestCompleteVisitSendsCoords(t *testing.T) {
	var got completionBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", time.Second)
	err := c.CompleteVisit(context.Background(), uuid.New(), json.RawMessage(`{"outcome":"sold"}`), &models.Coords{Lat: -12.05, Lng: -77.03})
	require.NoError(t, err)

	require.NotNil(t, got.Coords)
	assert.Equal(t, -12.05, got.Coords.Lat)
	assert.JSONEq(t, `{"outcome":"sold"}`, string(got.Data))
}

func TestFetchPlannedVisits(t *testing.T) {
	planned := []models.PlannedVisit{
		{ID: uuid.New(), BuyerName: "Acme", Status: models.StatusPlanned},
		{ID: uuid.New(), BuyerName: "Bodega Central", Status: models.StatusPlanned},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, models.StatusPlanned, r.URL.Query().Get("status"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(planned)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", "", time.Second)
	got, err := c.FetchPlannedVisits(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, planned[0].ID, got[0].ID)
}

func TestPing(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthz", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer healthy.Close()

	c := NewClient(healthy.URL, "", "", time.Second)
	assert.NoError(t, c.Ping(context.Background()))

	down := NewClient("http://127.0.0.1:1", "", "", 200*time.Millisecond)
	assert.Error(t, down.Ping(context.Background()), "unreachable server means offline")
}
