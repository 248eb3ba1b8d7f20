// Package spotlight is a client for the DBpedia Spotlight annotation service.
package spotlight

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultEndpoint = "https://api.dbpedia-spotlight.org/en/annotate"
	userAgent       = "nl2sparql/1.0"
)

// Resource is one annotated span as returned by Spotlight.
type Resource struct {
	URI             string      `json:"@URI"`
	SurfaceForm     string      `json:"@surfaceForm"`
	Types           string      `json:"@types"`
	SimilarityScore LooseNumber `json:"@similarityScore"`
	Support         LooseNumber `json:"@support"`
	Offset          LooseNumber `json:"@offset"`
}

// Annotation is the top-level Spotlight response.
type Annotation struct {
	Text      string     `json:"@text"`
	Resources []Resource `json:"Resources"`
}

// LooseNumber decodes Spotlight's string-encoded numbers. Values that do not
// parse decode as zero.
type LooseNumber float64

func (n *LooseNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = LooseNumber(f)
	return nil
}

func (n LooseNumber) Float() float64 { return float64(n) }
func (n LooseNumber) Int() int       { return int(n) }

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("spotlight returned status %d: %s", e.StatusCode, e.Body)
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

// Annotate asks Spotlight to link the spans in text.
func (c *Client) Annotate(ctx context.Context, text string, confidence float64, support int) (*Annotation, error) {
	params := url.Values{}
	params.Set("text", text)
	params.Set("confidence", strconv.FormatFloat(confidence, 'f', -1, 64))
	params.Set("support", strconv.Itoa(support))

	reqURL := c.endpoint
	if strings.Contains(reqURL, "?") {
		reqURL += "&" + params.Encode()
	} else {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build spotlight request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spotlight request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out Annotation
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode spotlight response: %w", err)
	}
	return &out, nil
}
