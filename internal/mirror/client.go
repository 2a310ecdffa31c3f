package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client wraps the external semantic-memory service. Implementations
// perform no retries of their own; any transport or protocol failure is
// normalized to a *ServiceError so the dispatcher's retry policy can
// treat all failures uniformly.
type Client interface {
	// Add creates a memory under the given owner key and returns the ID
	// assigned by the external service.
	Add(ctx context.Context, ownerKey, content string) (string, error)

	// Update replaces the content of an existing external memory.
	Update(ctx context.Context, externalID, content string) error

	// Delete removes an external memory.
	Delete(ctx context.Context, externalID string) error
}

// ServiceError is the uniform failure wrapper for external-service calls.
type ServiceError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("memory service %s failed with status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("memory service %s failed: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// HTTPClient talks to the external memory service over its REST API.
// One instance is constructed per worker process at startup and shared by
// all workers in it; http.Client is safe for concurrent use, so no pool
// or lock is needed.
type HTTPClient struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// NewHTTPClient creates a client for the external memory service.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

type addRequest struct {
	Messages []message `json:"messages"`
	UserID   string    `json:"user_id"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type addResponse struct {
	Results []struct {
		ID string `json:"id"`
	} `json:"results"`
}

type updateRequest struct {
	Text string `json:"text"`
}

// Add creates a memory under the given owner key.
func (c *HTTPClient) Add(ctx context.Context, ownerKey, content string) (string, error) {
	body := addRequest{
		Messages: []message{{Role: "user", Content: content}},
		UserID:   ownerKey,
	}

	respBody, err := c.do(ctx, http.MethodPost, "/v1/memories/", body, "add")
	if err != nil {
		return "", err
	}

	var resp addResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", &ServiceError{Op: "add", Err: fmt.Errorf("invalid response: %w", err)}
	}
	if len(resp.Results) == 0 {
		return "", &ServiceError{Op: "add", Err: fmt.Errorf("response contains no results")}
	}

	return resp.Results[0].ID, nil
}

// Update replaces the content of an existing external memory.
func (c *HTTPClient) Update(ctx context.Context, externalID, content string) error {
	path := "/v1/memories/" + url.PathEscape(externalID) + "/"
	_, err := c.do(ctx, http.MethodPut, path, updateRequest{Text: content}, "update")
	return err
}

// Delete removes an external memory.
func (c *HTTPClient) Delete(ctx context.Context, externalID string) error {
	path := "/v1/memories/" + url.PathEscape(externalID) + "/"
	_, err := c.do(ctx, http.MethodDelete, path, nil, "delete")
	return err
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body interface{}, op string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &ServiceError{Op: op, Err: fmt.Errorf("failed to encode request: %w", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &ServiceError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, &ServiceError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &ServiceError{Op: op, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= 400 {
		return nil, &ServiceError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", truncate(string(respBody), 200)),
		}
	}

	return respBody, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
