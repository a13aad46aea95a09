package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"kairos-backend/internal/tasks"
)

// BridgeClient talks to the calendar/health bridge service that holds the
// provider OAuth tokens. The bridge owns token refresh; this client only
// moves data.
type BridgeClient struct {
	baseURL string
	hc      *http.Client
}

func NewBridgeClient(baseURL string) *BridgeClient {
	return &BridgeClient{
		baseURL: baseURL,
		hc:      &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *BridgeClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge returned %s for %s", resp.Status, path)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *BridgeClient) send(ctx context.Context, method, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("bridge returned %s for %s", resp.Status, path)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *BridgeClient) Linked(ctx context.Context, userID int) bool {
	var body struct {
		Linked bool `json:"linked"`
	}
	if err := c.get(ctx, fmt.Sprintf("/users/%d/linked", userID), &body); err != nil {
		return false
	}
	return body.Linked
}

func (c *BridgeClient) Events(ctx context.Context, userID int, from, to time.Time) ([]Event, error) {
	path := fmt.Sprintf("/users/%d/calendar/events?from=%s&to=%s",
		userID, from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	var events []Event
	if err := c.get(ctx, path, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *BridgeClient) Create(ctx context.Context, userID int, t tasks.Task) (string, error) {
	var body struct {
		ID string `json:"id"`
	}
	path := fmt.Sprintf("/users/%d/calendar/events", userID)
	if err := c.send(ctx, http.MethodPost, path, t, &body); err != nil {
		return "", err
	}
	return body.ID, nil
}

func (c *BridgeClient) Update(ctx context.Context, userID int, eventID string, t tasks.Task) error {
	path := fmt.Sprintf("/users/%d/calendar/events/%s", userID, eventID)
	return c.send(ctx, http.MethodPut, path, t, nil)
}

func (c *BridgeClient) Days(ctx context.Context, userID int, from, to time.Time) ([]HealthDay, error) {
	path := fmt.Sprintf("/users/%d/health/days?from=%s&to=%s",
		userID, from.UTC().Format("2006-01-02"), to.UTC().Format("2006-01-02"))
	var days []HealthDay
	if err := c.get(ctx, path, &days); err != nil {
		return nil, err
	}
	return days, nil
}

// Disabled stands in when no bridge is configured. Every user reads as
// unlinked, so sync endpoints answer with a clean "not linked" error.
type Disabled struct{}

func (Disabled) Linked(context.Context, int) bool { return false }

func (Disabled) Events(context.Context, int, time.Time, time.Time) ([]Event, error) {
	return nil, ErrNotLinked
}

func (Disabled) Create(context.Context, int, tasks.Task) (string, error) {
	return "", ErrNotLinked
}

func (Disabled) Update(context.Context, int, string, tasks.Task) error {
	return ErrNotLinked
}

func (Disabled) Days(context.Context, int, time.Time, time.Time) ([]HealthDay, error) {
	return nil, ErrNotLinked
}
