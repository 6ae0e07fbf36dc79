// ABOUTME: HTTP client for the field-ops visits API
// ABOUTME: Idempotent creates by caller-supplied id, completion updates with NOT_FOUND classification
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/ruteo/fieldsync/models"
)

// ErrVisitNotFound reports that the target visit has no remote record. The
// reconciler treats this as terminal after the draft-queue cross-check; every
// other error is transient and retried on a later run.
var ErrVisitNotFound = errors.New("visit not found")

const defaultTimeout = 15 * time.Second

// Client talks to the field-ops API.
type Client struct {
	baseURL  string
	deviceID string
	http     *http.Client
}

// NewClient builds a client for the given server. An empty token disables
// authentication (local development servers).
func NewClient(baseURL, token, deviceID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
		httpClient.Timeout = timeout
	}

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		deviceID: deviceID,
		http:     httpClient,
	}
}

// completionBody is the wire form of a visit-completion update.
type completionBody struct {
	Data   json.RawMessage `json:"data"`
	Coords *models.Coords  `json:"coords,omitempty"`
}

// CreateVisit creates a visit under the caller-supplied id. The server
// upserts by id, so retrying the same draft can never produce a second
// record.
func (c *Client) CreateVisit(ctx context.Context, id uuid.UUID, payload json.RawMessage) error {
	endpoint := fmt.Sprintf("%s/api/v1/visits/%s", c.baseURL, id)
	if err := c.do(ctx, http.MethodPut, endpoint, payload); err != nil {
		return fmt.Errorf("failed to create visit %s: %w", id, err)
	}
	return nil
}

// CompleteVisit applies a completion report to an existing visit. Returns an
// error wrapping ErrVisitNotFound when the server has no record for the id.
func (c *Client) CompleteVisit(ctx context.Context, id uuid.UUID, data json.RawMessage, coords *models.Coords) error {
	body, err := json.Marshal(completionBody{Data: data, Coords: coords})
	if err != nil {
		return fmt.Errorf("failed to encode completion body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/v1/visits/%s/report", c.baseURL, id)
	if err := c.do(ctx, http.MethodPatch, endpoint, body); err != nil {
		return fmt.Errorf("failed to complete visit %s: %w", id, err)
	}
	return nil
}

// FetchPlannedVisits pulls the agent's planned visits for the read-through
// cache.
func (c *Client) FetchPlannedVisits(ctx context.Context) ([]models.PlannedVisit, error) {
	endpoint := fmt.Sprintf("%s/api/v1/visits?status=%s", c.baseURL, models.StatusPlanned)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build planned visits request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch planned visits: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch planned visits: %s", resp.Status)
	}

	var visits []models.PlannedVisit
	if err := json.NewDecoder(resp.Body).Decode(&visits); err != nil {
		return nil, fmt.Errorf("failed to decode planned visits: %w", err)
	}
	return visits, nil
}

// Ping probes the server's health endpoint. Used as the connectivity signal.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to build ping request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("server unhealthy: %s", resp.Status)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.deviceID != "" {
		req.Header.Set("X-Device-Id", c.deviceID)
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrVisitNotFound
	case resp.StatusCode >= http.StatusBadRequest:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}
	return nil
}
