package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/perfdash/perfdash/internal/errors"
	"github.com/perfdash/perfdash/internal/metrics"
)

// Client reads the agent's JSON endpoints. Process termination goes through
// the kill package instead.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the agent at baseURL. A nil httpClient
// gets a 10 second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// Health reports whether the agent answers /healthz.
func (c *Client) Health(ctx context.Context) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/healthz", &body); err != nil {
		return err
	}
	if body.Status != "ok" {
		return errors.New(errors.ErrAgent,
			fmt.Sprintf("Agent at %s reports status %q", c.baseURL, body.Status), "")
	}
	return nil
}

// Snapshot fetches the current host metrics.
func (c *Client) Snapshot(ctx context.Context) (metrics.Snapshot, error) {
	var snap metrics.Snapshot
	err := c.get(ctx, "/api/metrics", &snap)
	return snap, err
}

// Processes fetches the process list, highest CPU first.
func (c *Client) Processes(ctx context.Context) ([]metrics.Process, error) {
	var procs []metrics.Process
	err := c.get(ctx, "/api/processes", &procs)
	return procs, err
}

// Disks fetches disk usage per mountpoint.
func (c *Client) Disks(ctx context.Context) ([]metrics.DiskUsage, error) {
	var disks []metrics.DiskUsage
	err := c.get(ctx, "/api/disks", &disks)
	return disks, err
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "Failed to build agent request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrAgent,
			"Can't reach the agent at "+c.baseURL,
			"Start it with 'perfdash agent' or point --api at a running one")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.WrapWithCode(
			fmt.Errorf("GET %s: %s %s", path, resp.Status, strings.TrimSpace(string(body))),
			errors.ErrAgent, "Agent request failed", "")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.WrapWithCode(err, errors.ErrAgent,
			"Agent sent an unreadable response",
			"Check that --api points at a perfdash agent")
	}
	return nil
}
