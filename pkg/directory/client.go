// Package directory is the client side of the employee directory: an HTTP client for the
// service and a Session that keeps a local copy of the list, tracks edited rows and validates
// them before anything is sent.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aryan0dhankhar/employeedir/internal/domain"
)

// DefaultBaseURL is where a locally running server exposes the collection
const DefaultBaseURL = "http://localhost:8080/api"

// HTTPError carries status and body for non-2xx responses
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: %s %s status=%d body=%s", e.Method, e.URL, e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// Message returns the server's {"error": ...} text when the body carries one
func (e *HTTPError) Message() string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(e.Body, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return http.StatusText(e.StatusCode)
}

// Client talks to the employee collection endpoint. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the collection at baseURL (e.g. "http://localhost:8080/api").
// A nil httpClient gets a 30-second timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// List fetches every employee
func (c *Client) List(ctx context.Context) ([]domain.Employee, error) {
	var result struct {
		Employees []domain.Employee `json:"employees"`
	}
	if err := c.do(ctx, http.MethodGet, nil, &result); err != nil {
		return nil, err
	}
	return result.Employees, nil
}

// Create submits a create batch and returns the stored records
func (c *Client) Create(ctx context.Context, employees []domain.Employee) ([]domain.Employee, error) {
	var result struct {
		AddData []domain.Employee `json:"addData"`
	}
	if err := c.do(ctx, http.MethodPost, employees, &result); err != nil {
		return nil, err
	}
	return result.AddData, nil
}

// Update submits an update batch. Per-item failures come back in the result's Errors, not as err.
func (c *Client) Update(ctx context.Context, patches []domain.EmployeePatch) (*domain.BatchUpdateResult, error) {
	result := domain.NewBatchUpdateResult()
	if err := c.do(ctx, http.MethodPut, patches, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method string, body, target any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &HTTPError{Method: method, URL: c.baseURL, StatusCode: resp.StatusCode, Body: raw}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
