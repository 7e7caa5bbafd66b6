package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/statline/internal/adapters/http/api"
)

// HTTPClient talks to the assignment API.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// do sends a request and decodes the JSON answer into out when want matches.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any, want int) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != want {
		return fmt.Errorf("%w: %s %s answered %d: %s", ErrStatus, method, path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *HTTPClient) health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK)
}

type slotInfo struct {
	Slot   string `json:"slot"`
	Target string `json:"target"`
}

func (c *HTTPClient) slots(ctx context.Context) ([]slotInfo, error) {
	var out []slotInfo
	err := c.do(ctx, http.MethodGet, "/slots", nil, &out, http.StatusOK)
	return out, err
}

func (c *HTTPClient) createSession(ctx context.Context, values []int) (api.SessionView, error) {
	var view api.SessionView
	err := c.do(ctx, http.MethodPost, "/sessions", api.SessionRequest{Values: values}, &view, http.StatusCreated)
	return view, err
}

func (c *HTTPClient) move(ctx context.Context, id string, d Drag) (moveResult, error) {
	var res moveResult
	err := c.do(ctx, http.MethodPost, "/sessions/"+id+"/moves", d, &res, http.StatusOK)
	return res, err
}

func (c *HTTPClient) reset(ctx context.Context, id string) (api.SessionView, error) {
	var view api.SessionView
	err := c.do(ctx, http.MethodPost, "/sessions/"+id+"/reset", nil, &view, http.StatusOK)
	return view, err
}

func (c *HTTPClient) deleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/sessions/"+id, nil, nil, http.StatusNoContent)
}
