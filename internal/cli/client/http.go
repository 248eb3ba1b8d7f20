// Package client talks to a running nl2sparql HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cloo-solutions/nl2sparql/internal/service"
	"github.com/spf13/cobra"
)

const (
	envServerURL = "NL2SPARQL_SERVER_URL"
	envAPIToken  = "NL2SPARQL_API_TOKEN"

	defaultTimeout = 60 * time.Second
)

// ErrNoServer is returned when neither --server nor NL2SPARQL_SERVER_URL is set.
var ErrNoServer = errors.New("no server configured")

type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAPIClientWithCmd resolves the server with the cascade flag → env. It
// returns ErrNoServer when remote mode was not requested.
func NewAPIClientWithCmd(cmd *cobra.Command) (*APIClient, error) {
	var baseURL, token string

	if cmd != nil {
		if flagURL, err := cmd.Flags().GetString("server"); err == nil && flagURL != "" {
			baseURL = flagURL
		}
		if flagToken, err := cmd.Flags().GetString("token"); err == nil && flagToken != "" {
			token = flagToken
		}
	}

	if baseURL == "" {
		baseURL = os.Getenv(envServerURL)
	}
	if token == "" {
		token = os.Getenv(envAPIToken)
	}

	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrNoServer
	}

	return NewAPIClientWithConfig(baseURL, token, defaultTimeout), nil
}

// NewAPIClientWithConfig creates an APIClient with explicit settings. An
// empty token sends no Authorization header.
func NewAPIClientWithConfig(baseURL, token string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BaseURL is the server the client talks to.
func (c *APIClient) BaseURL() string {
	return c.baseURL
}

// Timeout is the per-request bound.
func (c *APIClient) Timeout() time.Duration {
	return c.httpClient.Timeout
}

// APIResponse represents the standard API response format.
type APIResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
	Code  string          `json:"code,omitempty"`
}

// APIError represents an error from the API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

type askRequest struct {
	Question string `json:"question"`
	Execute  *bool  `json:"execute,omitempty"`
}

// Ask posts the question to /ask. It satisfies the console's Asker.
func (c *APIClient) Ask(ctx context.Context, question string, opts service.AskOptions) (*service.Answer, error) {
	execute := opts.Execute
	return c.answer(ctx, "/ask", askRequest{Question: question, Execute: &execute})
}

// Generate posts the question to /generate.
func (c *APIClient) Generate(ctx context.Context, question string) (*service.Answer, error) {
	return c.answer(ctx, "/generate", askRequest{Question: question})
}

// Health checks that the server is up.
func (c *APIClient) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil)
	return err
}

func (c *APIClient) answer(ctx context.Context, path string, body askRequest) (*service.Answer, error) {
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}

	var answer service.Answer
	if err := json.Unmarshal(resp.Data, &answer); err != nil {
		return nil, fmt.Errorf("failed to parse answer: %w", err)
	}
	return &answer, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body interface{}) (*APIResponse, error) {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &APIError{
				StatusCode: resp.StatusCode,
				Message:    strings.TrimSpace(string(respBody)),
			}
		}
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       apiResp.Code,
			Message:    apiResp.Error,
		}
	}

	return &apiResp, nil
}
