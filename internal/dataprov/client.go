// Package dataprov talks to the external data-provisioning service
// that stages datasets into workspaces.
package dataprov

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// ErrWorkspaceExpired marks a workspace whose provisioning window has
// passed. Requesting the data again will not help; the condition is
// terminal for the run.
var ErrWorkspaceExpired = errors.New("workspace expired")

// Availability classifies a workspace readiness probe.
type Availability int

const (
	// NotReady means the data is still being prepared. It is the
	// expected transient outcome, not an error; the scheduler retries
	// by re-invoking the orchestration later.
	NotReady Availability = iota
	// Ready means the workspace data is provided and mountable.
	Ready
)

func (a Availability) String() string {
	if a == Ready {
		return "ready"
	}
	return "not ready"
}

const (
	statusProvided = "provided"
	statusExpired  = "expired"
)

// Client is a stateless HTTP client for the provisioning service.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	logger  *slog.Logger
}

// NewClient creates a provisioning client for the given service.
func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

// OrderDataset requests the dataset to be staged and returns the
// workspace id the service assigned to the request.
func (c *Client) OrderDataset(ctx context.Context, dataset string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"dataset": dataset,
		"token":   c.token,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode order request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/order", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to order dataset %s: %w", dataset, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("order request for dataset %s returned status %d", dataset, resp.StatusCode)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode order response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("order response for dataset %s carried no workspace id", dataset)
	}

	c.logger.Info("ordered dataset", "dataset", dataset, "workspace", out.ID)
	return out.ID, nil
}

// Check probes the workspace once and classifies the answer. A
// NotReady result is not an error. An expired workspace surfaces as
// ErrWorkspaceExpired.
func (c *Client) Check(ctx context.Context, workspaceID string) (Availability, error) {
	q := url.Values{}
	q.Set("workspaceId", workspaceID)
	q.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status?"+q.Encode(), nil)
	if err != nil {
		return NotReady, fmt.Errorf("failed to build status request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return NotReady, fmt.Errorf("failed to check workspace %s: %w", workspaceID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return NotReady, fmt.Errorf("status request for workspace %s returned status %d", workspaceID, resp.StatusCode)
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return NotReady, fmt.Errorf("failed to decode status response: %w", err)
	}

	c.logger.Debug("workspace status", "workspace", workspaceID, "status", out.Status)

	switch out.Status {
	case statusProvided:
		return Ready, nil
	case statusExpired:
		return NotReady, fmt.Errorf("workspace %s: %w", workspaceID, ErrWorkspaceExpired)
	default:
		return NotReady, nil
	}
}
