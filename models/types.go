// ABOUTME: Data models for offline-queued visit records
// ABOUTME: Defines VisitReport, VisitDraft, PlannedVisit and geolocation types
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PayloadVersion is stamped on queued payload envelopes so a future agent
// can tell old entries apart after a schema change.
const PayloadVersion = 1

// Coords is a geolocation fix captured at submission time.
type Coords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// VisitReport is a locally-queued completion report for an existing visit.
// ID is the target visit's identifier and is shared with the remote system;
// it is the join key for reconciliation.
type VisitReport struct {
	ID        uuid.UUID       `json:"id"`
	BuyerName string          `json:"buyer_name"`
	Data      json.RawMessage `json:"data"`
	Coords    *Coords         `json:"coords,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Version   int             `json:"version"`
}

// VisitDraft is a locally-queued new-visit creation. ID is minted locally at
// draft time and becomes the permanent identifier of the remote record once
// the create call lands.
type VisitDraft struct {
	ID        uuid.UUID       `json:"id"`
	BuyerName string          `json:"buyer_name"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	Version   int             `json:"version"`
}

// PlannedVisit is a read-through snapshot of a remote planned visit. Derived
// data only; the cache is replaced wholesale on each refresh and is never
// written back to the server.
type PlannedVisit struct {
	ID           uuid.UUID       `json:"id"`
	BuyerName    string          `json:"buyer_name"`
	ActivityType string          `json:"activity_type,omitempty"`
	ScheduledFor *time.Time      `json:"scheduled_for,omitempty"`
	Status       string          `json:"status,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// Visit status constants as reported by the remote system.
const (
	StatusPlanned   = "planned"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Activity type constants.
const (
	ActivitySale        = "sale"
	ActivityCollection  = "collection"
	ActivityDelivery    = "delivery"
	ActivityProspecting = "prospecting"
)

// NewVisitDraft mints a draft with a fresh local UUID. The UUID is never
// regenerated; it travels with the draft through to the remote create call.
func NewVisitDraft(buyerName string, payload json.RawMessage) *VisitDraft {
	return &VisitDraft{
		ID:        uuid.New(),
		BuyerName: buyerName,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
		Version:   PayloadVersion,
	}
}

// NewVisitReport builds a completion report for an existing visit. Coords may
// be nil when no geolocation fix was available at submission time.
func NewVisitReport(id uuid.UUID, buyerName string, data json.RawMessage, coords *Coords) *VisitReport {
	return &VisitReport{
		ID:        id,
		BuyerName: buyerName,
		Data:      data,
		Coords:    coords,
		Timestamp: time.Now().UTC(),
		Version:   PayloadVersion,
	}
}
