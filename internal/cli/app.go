package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cloo-solutions/nl2sparql/internal/config"
	"github.com/cloo-solutions/nl2sparql/internal/jobs"
	"github.com/cloo-solutions/nl2sparql/internal/metrics"
	"github.com/cloo-solutions/nl2sparql/internal/openai"
	"github.com/cloo-solutions/nl2sparql/internal/schema"
	"github.com/cloo-solutions/nl2sparql/internal/service"
	"github.com/cloo-solutions/nl2sparql/internal/sparql"
	"github.com/cloo-solutions/nl2sparql/internal/spotlight"
	"github.com/cloo-solutions/nl2sparql/internal/telemetry"
)

// App holds the wired pipeline and the process-wide collaborators.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Pipeline  *service.Pipeline
	Retriever *service.SchemaRetriever
	SPARQL    *sparql.Client
	// Metrics is the /metrics handler, nil unless METRICS_ENABLED.
	Metrics http.Handler

	flushTelemetry func()
}

// NewApp builds every collaborator from cfg. Nothing is contacted yet.
func NewApp(cfg *config.Config, logger *slog.Logger, version string) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	flush, err := telemetry.Init(telemetry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Release:     "nl2sparql@" + version,
		Debug:       cfg.Debug,
		Tags: map[string]string{
			"sparql_endpoint": cfg.SPARQLEndpoint,
			"model":           cfg.GroqModel,
		},
		Logger: logger,
	})
	if err != nil {
		logger.Warn("telemetry init failed, continuing without tracing", "error", err)
		flush = func() {}
	}

	var metricsHandler http.Handler
	if cfg.MetricsEnabled {
		metricsHandler = metrics.EnablePrometheus()
	}

	catalog, err := loadCatalog(cfg.SchemaCatalogPath)
	if err != nil {
		flush()
		return nil, err
	}

	timeout := cfg.RequestTimeout()
	if !cfg.HasEmbeddingKey() {
		logger.Warn("no embedding api key set, schema retrieval will come back empty")
	}

	llm := openai.NewClient(openai.Config{
		Embedding: openai.EndpointConfig{
			APIKey:  cfg.EmbeddingAPIKey,
			BaseURL: cfg.EmbeddingBaseURL,
			Timeout: timeout,
		},
		EmbeddingModel: cfg.EmbeddingModel,
		Completion: openai.EndpointConfig{
			APIKey:  cfg.GroqAPIKey,
			BaseURL: cfg.GroqBaseURL,
			Timeout: timeout,
		},
		CompletionModel: cfg.GroqModel,
		Temperature:     cfg.CompletionTemperature,
		MaxTokens:       cfg.CompletionMaxTokens,
	})

	endpoint := sparql.NewClient(cfg.SPARQLEndpoint, timeout)

	linker := service.NewEntityLinker(
		spotlight.NewClient(cfg.SpotlightEndpoint, timeout),
		service.LinkerConfig{
			Confidence:  cfg.SpotlightConfidence,
			Support:     cfg.SpotlightSupport,
			MaxEntities: cfg.MaxEntities,
		},
		logger.With("component", "linker"),
	)

	retriever := service.NewSchemaRetriever(llm, endpoint, catalog, service.RetrieverConfig{
		TopK:                cfg.SchemaTopK,
		ClassTopK:           cfg.ClassTopK(),
		EntityPropertyLimit: cfg.SchemaEntityPropertyLimit,
		MinSimilarity:       cfg.SchemaMinSimilarity,
	}, logger.With("component", "retriever"))

	generator := service.NewGenerator(llm, cfg.DefaultSelectLimit, logger.With("component", "generator"))

	return &App{
		Config:         cfg,
		Logger:         logger,
		Pipeline:       service.NewPipeline(linker, retriever, generator, endpoint, logger.With("component", "pipeline")),
		Retriever:      retriever,
		SPARQL:         endpoint,
		Metrics:        metricsHandler,
		flushTelemetry: flush,
	}, nil
}

// StartWarmer embeds the catalog in the background, retrying every
// WarmRetryInterval until it succeeds. The returned func stops it.
func (a *App) StartWarmer(ctx context.Context) (stop func()) {
	worker := jobs.NewWorker(
		jobs.NewCatalogWarmer(a.Retriever, a.Config.RequestTimeout(), a.Logger),
		a.Config.WarmRetryInterval(),
		a.Logger.With("component", "warmer"),
	)
	go worker.Start(ctx)
	return worker.Stop
}

// Close flushes buffered telemetry.
func (a *App) Close() {
	if a.flushTelemetry != nil {
		a.flushTelemetry()
	}
}

func loadCatalog(path string) (*schema.Catalog, error) {
	catalog, err := schema.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema catalog: %w", err)
	}
	return catalog, nil
}
