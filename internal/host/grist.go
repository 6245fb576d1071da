package host

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultServer is the hosted Grist service
const DefaultServer = "https://docs.getgrist.com"

// GristClient implements API over the Grist REST API for one document
type GristClient struct {
	server string
	docID  string
	apiKey string
	http   *http.Client
}

// NewGristClient creates a client for docID on server. A zero timeout means
// no timeout.
func NewGristClient(server, docID, apiKey string, timeout time.Duration) (*GristClient, error) {
	if server == "" {
		server = DefaultServer
	}
	if _, err := url.Parse(server); err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if docID == "" {
		return nil, fmt.Errorf("document id is required")
	}
	return &GristClient{
		server: strings.TrimRight(server, "/"),
		docID:  docID,
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}, nil
}

// APIError is a non-2xx answer from the server
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("grist api: HTTP %d", e.Status)
	}
	return fmt.Sprintf("grist api: HTTP %d: %s", e.Status, e.Message)
}

// FetchTable returns the table contents in columnar form
func (c *GristClient) FetchTable(ctx context.Context, table string) (Snapshot, error) {
	endpoint := c.docURL("tables", url.PathEscape(table), "data")

	var snap Snapshot
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &snap); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
		}
		return nil, fmt.Errorf("failed to fetch table %s: %w", table, err)
	}
	return snap, nil
}

// ApplyUserActions submits actions as one request. The server applies them
// atomically.
func (c *GristClient) ApplyUserActions(ctx context.Context, actions []Action) error {
	if len(actions) == 0 {
		return nil
	}
	body, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("failed to encode actions: %w", err)
	}
	if err := c.do(ctx, http.MethodPost, c.docURL("apply"), body, nil); err != nil {
		return fmt.Errorf("failed to apply %d actions: %w", len(actions), err)
	}
	return nil
}

// Ping checks that the document is reachable with the configured key
func (c *GristClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, c.docURL(), nil, nil)
}

func (c *GristClient) docURL(parts ...string) string {
	u := c.server + "/api/docs/" + url.PathEscape(c.docID)
	if len(parts) > 0 {
		u += "/" + strings.Join(parts, "/")
	}
	return u
}

func (c *GristClient) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Error
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
