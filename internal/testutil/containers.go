// Package testutil starts throwaway infrastructure for integration and
// end-to-end tests.
package testutil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/nl2sparql/internal/sparql"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	fusekiImage   = "stain/jena-fuseki:4.0.0"
	fusekiDataset = "ds"
)

// FusekiContainer is an Apache Jena Fuseki triple store with one in-memory
// dataset.
type FusekiContainer struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

// NewFusekiContainer starts Fuseki and waits until the dataset answers.
func NewFusekiContainer(ctx context.Context, t *testing.T) *FusekiContainer {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        fusekiImage,
		ExposedPorts: []string{"3030/tcp"},
		Env: map[string]string{
			"ADMIN_PASSWORD":   "nl2sparql",
			"FUSEKI_DATASET_1": fusekiDataset,
		},
		WaitingFor: wait.ForHTTP("/$/ping").
			WithPort("3030/tcp").
			WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to create fuseki container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "3030")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	return &FusekiContainer{
		Container: container,
		Host:      host,
		Port:      port.Port(),
	}
}

// Endpoint is the dataset URL; it accepts both queries and updates.
func (fc *FusekiContainer) Endpoint() string {
	return fmt.Sprintf("http://%s:%s/%s", fc.Host, fc.Port, fusekiDataset)
}

// Terminate stops and removes the container
func (fc *FusekiContainer) Terminate(ctx context.Context) error {
	return testcontainers.TerminateContainer(fc.Container)
}

// Seed inserts N-Triples-style statements into the default graph of the
// store at endpoint, retrying while the dataset finishes initialising.
func Seed(ctx context.Context, endpoint string, triples ...string) error {
	update := "INSERT DATA {\n" + strings.Join(triples, "\n") + "\n}"

	var err error
	for i := 0; i < 5; i++ {
		if err = postUpdate(ctx, endpoint, update); err == nil {
			return nil
		}
		time.Sleep(time.Duration(i+1) * 500 * time.Millisecond)
	}
	return fmt.Errorf("failed to seed triple store: %w", err)
}

// postUpdate sends one SPARQL 1.1 update request.
func postUpdate(ctx context.Context, endpoint, update string) error {
	form := url.Values{}
	form.Set("update", update)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build sparql update: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("sparql update failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &sparql.EndpointError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// CapitalTriples describe France, its capital and the property labels the
// schema retriever reads.
var CapitalTriples = []string{
	`<http://dbpedia.org/resource/France> <http://dbpedia.org/ontology/capital> <http://dbpedia.org/resource/Paris> .`,
	`<http://dbpedia.org/resource/France> <http://dbpedia.org/ontology/populationTotal> "68042591"^^<http://www.w3.org/2001/XMLSchema#nonNegativeInteger> .`,
	`<http://dbpedia.org/resource/France> <http://www.w3.org/2000/01/rdf-schema#label> "France"@en .`,
	`<http://dbpedia.org/resource/Paris> <http://www.w3.org/2000/01/rdf-schema#label> "Paris"@en .`,
	`<http://dbpedia.org/ontology/capital> <http://www.w3.org/2000/01/rdf-schema#label> "capital"@en .`,
	`<http://dbpedia.org/ontology/capital> <http://www.w3.org/2000/01/rdf-schema#comment> "capital city of a country"@en .`,
	`<http://dbpedia.org/ontology/populationTotal> <http://www.w3.org/2000/01/rdf-schema#label> "population total"@en .`,
}
