//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloo-solutions/nl2sparql/internal/api/handlers"
	"github.com/cloo-solutions/nl2sparql/internal/api/middleware"
	"github.com/cloo-solutions/nl2sparql/internal/cli"
	"github.com/cloo-solutions/nl2sparql/internal/config"
	"github.com/cloo-solutions/nl2sparql/internal/logging"
	"github.com/cloo-solutions/nl2sparql/internal/server"
	"github.com/cloo-solutions/nl2sparql/internal/spotlight"
	"github.com/cloo-solutions/nl2sparql/internal/testutil"
)

const apiToken = "e2e-token"

var embeddingKeywords = []string{"capital", "population", "country", "city", "birth", "person"}

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	FusekiC      *testutil.FusekiContainer
	Spotlight    string
	LLM          *testutil.FakeOpenAI
	Config       *config.Config
	ServerURL    string
	ServerCloser func()
	BinaryDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv starts the triple store, fake upstreams and the HTTP API.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	fuseki := testutil.NewFusekiContainer(ctx, t)
	if err := testutil.Seed(ctx, fuseki.Endpoint(), testutil.CapitalTriples...); err != nil {
		fuseki.Terminate(ctx)
		t.Fatalf("failed to seed fuseki: %v", err)
	}

	spot := testutil.NewFakeSpotlight(t, spotlight.Resource{
		URI:             "http://dbpedia.org/resource/France",
		SurfaceForm:     "France",
		Types:           "Schema:Country,DBpedia:Country",
		SimilarityScore: 0.998,
		Support:         74122,
	})
	llm := testutil.NewFakeOpenAI(t, embeddingKeywords, "")

	cfg := &config.Config{
		Port:                      "0",
		LogLevel:                  "debug",
		LogFormat:                 "text",
		APIToken:                  apiToken,
		GroqAPIKey:                "test",
		GroqModel:                 "test-model",
		GroqBaseURL:               llm.URL,
		CompletionTemperature:     0.1,
		CompletionMaxTokens:       600,
		EmbeddingModel:            "test-embedding",
		EmbeddingBaseURL:          llm.URL,
		EmbeddingAPIKey:           "test",
		SpotlightEndpoint:         spot.URL + "/annotate",
		SpotlightConfidence:       0.35,
		SpotlightSupport:          20,
		SPARQLEndpoint:            fuseki.Endpoint(),
		SchemaTopK:                6,
		SchemaEntityPropertyLimit: 120,
		SchemaMinSimilarity:       0.2,
		RequestTimeoutSec:         15,
		MaxEntities:               4,
		DefaultSelectLimit:        50,
		Environment:               "test",
		MetricsEnabled:            true,
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, cfg, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		FusekiC:      fuseki,
		Spotlight:    spot.URL,
		LLM:          llm,
		Config:       cfg,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.FusekiC != nil {
		e.FusekiC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinaries compiles the nl2sparql binary into a temp directory.
func (e *E2ETestEnv) BuildBinaries() {
	dir, err := os.MkdirTemp("", "nl2sparql-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create binary dir: %v", err)
	}
	e.BinaryDir = dir

	cmd := exec.Command("go", "build", "-o", filepath.Join(dir, "nl2sparql"), "./cmd/nl2sparql")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build nl2sparql: %v\n%s", err, out)
	}
}

// RunCLI runs the built binary against the test environment.
func (e *E2ETestEnv) RunCLI(args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "nl2sparql"), args...)
	cmd.Dir = e.BinaryDir
	cmd.Env = append(os.Environ(),
		"GROQ_API_KEY=test",
		"GROQ_BASE_URL="+e.Config.GroqBaseURL,
		"EMBEDDING_BASE_URL="+e.Config.EmbeddingBaseURL,
		"EMBEDDING_API_KEY=test",
		"SPOTLIGHT_ENDPOINT="+e.Config.SpotlightEndpoint,
		"DBPEDIA_SPARQL_ENDPOINT="+e.Config.SPARQLEndpoint,
		"NL2SPARQL_NO_BANNER=1",
		"NO_COLOR=1",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		return stdout.String(), fmt.Errorf("%w: %s", err, stderr.String())
	}
	return stdout.String(), nil
}

// APIResponse is the success or error envelope.
type APIResponse struct {
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body, authToken)
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*http.Response, []byte, error) {
	resp, err := e.HTTPClient.Get(e.ServerURL + path)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	return resp, body, err
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// startServer wires the app the way `nl2sparql serve` does.
func startServer(t *testing.T, cfg *config.Config, port int) (string, func()) {
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	app, err := cli.NewApp(cfg, logger, "e2e")
	if err != nil {
		t.Fatalf("failed to build app: %v", err)
	}

	stopWarmer := app.StartWarmer(context.Background())

	router := server.NewRouter(server.RouterConfig{
		AskHandler:     handlers.NewAskHandler(app.Pipeline),
		TokenValidator: middleware.StaticToken{Token: cfg.APIToken},
		MetricsHandler: app.Metrics,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
		stopWarmer()
		app.Close()
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
