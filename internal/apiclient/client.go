// Package apiclient reads routines and exercises from a remote Stitch
// server over its REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/claude/stitch/internal/importer"
	"github.com/claude/stitch/internal/models"
	"github.com/claude/stitch/internal/workout"
)

// ErrNotFound is returned when the server answers 404.
var ErrNotFound = models.ErrNotFound

// APIError is a non-2xx response carrying the server's {"error": ...} body.
type APIError struct {
	Path    string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apiclient: %s returned %d: %s", e.Path, e.Status, e.Message)
}

// Client implements the routine and exercise read contract against a
// remote server, e.g. one reachable over Tailscale.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client targeting baseURL. apiKey may be empty for read-only use.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, "", out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("apiclient: create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("apiclient: read body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("apiclient: %s: %w", path, ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		apiErr := &APIError{Path: path, Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("apiclient: decode %s: %w", path, err)
	}
	return nil
}

// ListRoutines returns all routines.
func (c *Client) ListRoutines(ctx context.Context) ([]models.Routine, error) {
	var routines []models.Routine
	if err := c.get(ctx, "/api/v1/routines", &routines); err != nil {
		return nil, err
	}
	return routines, nil
}

// GetRoutine returns one routine.
func (c *Client) GetRoutine(ctx context.Context, id int64) (*models.Routine, error) {
	var r models.Routine
	if err := c.get(ctx, fmt.Sprintf("/api/v1/routines/%d", id), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// GetPlan returns the flattened plan of a routine as computed by the server.
func (c *Client) GetPlan(ctx context.Context, id int64) ([]workout.PlanEntry, error) {
	var plan []workout.PlanEntry
	if err := c.get(ctx, fmt.Sprintf("/api/v1/routines/%d/plan", id), &plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// ListExercises returns the exercise library.
func (c *Client) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	var exercises []models.Exercise
	if err := c.get(ctx, "/api/v1/exercises", &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

// GetExercise returns one exercise.
func (c *Client) GetExercise(ctx context.Context, id int64) (*models.Exercise, error) {
	var e models.Exercise
	if err := c.get(ctx, fmt.Sprintf("/api/v1/exercises/%d", id), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Import posts a YAML library document to the server. The server needs the
// client's API key for writes.
func (c *Client) Import(ctx context.Context, doc []byte, dryRun bool) (*importer.Stats, error) {
	path := "/api/v1/import"
	if dryRun {
		path += "?dry_run=true"
	}
	var stats importer.Stats
	if err := c.do(ctx, http.MethodPost, path, bytes.NewReader(doc), "application/yaml", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
