// ABOUTME: Tests for visit record constructors
// ABOUTME: Verifies local UUID minting and payload versioning
package models

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVisitDraftMintsUniqueIDs(t *testing.T) {
	payload := json.RawMessage(`{"activity_type":"sale"}`)

	a := NewVisitDraft("Acme Distribution", payload)
	b := NewVisitDraft("Acme Distribution", payload)

	require.NotEqual(t, uuid.Nil, a.ID, "draft should mint a non-nil UUID")
	assert.NotEqual(t, a.ID, b.ID, "each draft should get its own UUID")
	assert.Equal(t, PayloadVersion, a.Version)
	assert.False(t, a.CreatedAt.IsZero(), "draft should carry a capture time")
}

func TestNewVisitReportKeepsTargetID(t *testing.T) {
	target := uuid.New()
	report := NewVisitReport(target, "Bodega Central", json.RawMessage(`{"outcome":"sold"}`), &Coords{Lat: -12.05, Lng: -77.03})

	assert.Equal(t, target, report.ID, "report must address the existing visit, not mint a new id")
	require.NotNil(t, report.Coords)
	assert.Equal(t, -12.05, report.Coords.Lat)
	assert.False(t, report.Timestamp.IsZero())
}

func TestNewVisitReportWithoutCoords(t *testing.T) {
	report := NewVisitReport(uuid.New(), "Bodega Central", json.RawMessage(`{}`), nil)
	assert.Nil(t, report.Coords, "coords stay absent when no fix was available")

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"coords"`, "absent coords should be omitted from the wire form")
}
