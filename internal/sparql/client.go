// Package sparql executes queries against a SPARQL 1.1 protocol endpoint.
package sparql

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultEndpoint = "https://dbpedia.org/sparql"
	resultsMIME     = "application/sparql-results+json"
	userAgent       = "nl2sparql/1.0"
	maxErrorBody    = 1024
)

// EndpointError reports an HTTP error status from the endpoint.
type EndpointError struct {
	StatusCode int
	Body       string
}

func (e *EndpointError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("sparql endpoint returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("sparql endpoint returned status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	endpoint   string
	httpClient *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

// Query runs a read query and decodes the JSON results.
func (c *Client) Query(ctx context.Context, query string) (*Results, error) {
	form := url.Values{}
	form.Set("query", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build sparql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", resultsMIME)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sparql request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &EndpointError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out Results
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode sparql results: %w", err)
	}
	if out.Boolean == nil && out.Results == nil {
		return nil, fmt.Errorf("sparql response has neither boolean nor results")
	}
	return &out, nil
}
