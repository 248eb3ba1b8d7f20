package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cloo-solutions/nl2sparql/internal/domain"
	"github.com/cloo-solutions/nl2sparql/internal/logging"
	"github.com/cloo-solutions/nl2sparql/internal/metrics"
	"github.com/cloo-solutions/nl2sparql/internal/telemetry"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// NoEntitiesWarning is attached to answers whose question linked to nothing.
const NoEntitiesWarning = "No entities found. Try adding a specific name or place."

// Pipeline stage names used for spans and metrics.
const (
	StageLink               = "link"
	StageRetrieveClasses    = "retrieve_classes"
	StageRetrieveProperties = "retrieve_properties"
	StageGenerate           = "generate"
	StageExecute            = "execute"
)

// Linker defines the interface for entity linking
type Linker interface {
	Link(ctx context.Context, question string) []domain.Entity
}

// SchemaSource defines the interface for schema retrieval
type SchemaSource interface {
	Retrieve(ctx context.Context, question string, entities []domain.Entity, topK int) []domain.SchemaItem
	RetrieveClasses(ctx context.Context, question string, topK int) []domain.SchemaItem
}

// AskOptions controls one question.
type AskOptions struct {
	// Execute runs the generated query against the endpoint.
	Execute bool
}

// Answer is everything the pipeline learned while answering one question.
type Answer struct {
	ID             string              `json:"id"`
	Question       string              `json:"question"`
	Entities       []domain.Entity     `json:"entities"`
	Classes        []domain.SchemaItem `json:"classes"`
	Properties     []domain.SchemaItem `json:"properties"`
	Query          string              `json:"query"`
	Fallback       bool                `json:"fallback"`
	FallbackReason string              `json:"fallback_reason,omitempty"`
	Rejected       []string            `json:"rejected,omitempty"`
	Executed       bool                `json:"executed"`
	Result         *domain.ResultTable `json:"result,omitempty"`
	ExecutionError string              `json:"execution_error,omitempty"`
	Warnings       []string            `json:"warnings,omitempty"`
	Duration       time.Duration       `json:"duration_ns"`
}

// Pipeline answers one question at a time: link, retrieve, generate,
// optionally execute.
type Pipeline struct {
	mu        sync.Mutex
	linker    Linker
	schema    SchemaSource
	generator *Generator
	runner    QueryRunner
	logger    *slog.Logger
}

func NewPipeline(linker Linker, schema SchemaSource, generator *Generator, runner QueryRunner, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		linker:    linker,
		schema:    schema,
		generator: generator,
		runner:    runner,
		logger:    logger,
	}
}

// NormalizeQuestion applies NFC and trims surrounding whitespace.
func NormalizeQuestion(q string) string {
	return strings.TrimSpace(norm.NFC.String(q))
}

// Ask runs the full pipeline. The only error is domain.ErrEmptyQuestion;
// upstream failures degrade the answer and an execution failure is reported
// in Answer.ExecutionError.
func (p *Pipeline) Ask(ctx context.Context, question string, opts AskOptions) (*Answer, error) {
	question = NormalizeQuestion(question)
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	ans := &Answer{ID: logging.RequestID(ctx), Question: question}
	if ans.ID == "" {
		ans.ID = uuid.New().String()
	}
	logger := p.logger.With("answer_id", ans.ID)

	ans.Entities = runStage(ctx, StageLink, ans.ID, func(ctx context.Context) []domain.Entity {
		return p.linker.Link(ctx, question)
	})
	if len(ans.Entities) == 0 {
		ans.Warnings = append(ans.Warnings, NoEntitiesWarning)
	}

	ans.Classes = runStage(ctx, StageRetrieveClasses, ans.ID, func(ctx context.Context) []domain.SchemaItem {
		return p.schema.RetrieveClasses(ctx, question, 0)
	})
	ans.Properties = runStage(ctx, StageRetrieveProperties, ans.ID, func(ctx context.Context) []domain.SchemaItem {
		return p.schema.Retrieve(ctx, question, ans.Entities, 0)
	})

	gen := p.generate(ctx, ans.ID, question, ans.Entities, ans.Properties, ans.Classes)
	ans.Query = gen.Query
	ans.Fallback = gen.Fallback
	ans.FallbackReason = gen.FallbackReason
	ans.Rejected = gen.Rejected

	logger.Info("query generated",
		"entities", len(ans.Entities),
		"classes", len(ans.Classes),
		"properties", len(ans.Properties),
		"fallback", gen.Fallback,
		"fallback_reason", gen.FallbackReason,
	)

	if opts.Execute {
		ans.Executed = true
		table, err := p.execute(ctx, ans.ID, ans.Query)
		if err != nil {
			ans.ExecutionError = err.Error()
			logger.Warn("query execution failed", "error", err)
		} else {
			ans.Result = table
		}
	}

	ans.Duration = time.Since(start)
	return ans, nil
}

// Generate runs linking, retrieval and generation without executing.
func (p *Pipeline) Generate(ctx context.Context, question string) (*Answer, error) {
	return p.Ask(ctx, question, AskOptions{Execute: false})
}

// Execute runs a query against the endpoint and shapes the result.
func (p *Pipeline) Execute(ctx context.Context, query string) (*domain.ResultTable, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.execute(ctx, "", query)
}

func (p *Pipeline) generate(ctx context.Context, answerID, question string, entities []domain.Entity, properties, classes []domain.SchemaItem) Generation {
	done := metrics.TimeStage(StageGenerate)
	ctx, span := telemetry.StartSpan(ctx, "pipeline."+StageGenerate, telemetry.SpanAttributes{AnswerID: answerID, Stage: StageGenerate})
	defer span.End()

	gen := p.generator.Generate(ctx, question, entities, properties, classes)
	if gen.Fallback {
		span.SetTag("fallback_reason", gen.FallbackReason)
		telemetry.AddBreadcrumb(ctx, "generator", "fallback query used", map[string]interface{}{
			"reason":   gen.FallbackReason,
			"rejected": gen.Rejected,
		})
	}
	done(!gen.Fallback)
	return gen
}

func (p *Pipeline) execute(ctx context.Context, answerID, query string) (*domain.ResultTable, error) {
	done := metrics.TimeStage(StageExecute)
	ctx, span := telemetry.StartSpan(ctx, "pipeline."+StageExecute, telemetry.SpanAttributes{AnswerID: answerID, Stage: StageExecute})
	defer span.End()

	res, err := p.runner.Query(ctx, query)
	if err != nil {
		wrapped := domain.ErrQueryExecution.WithCause(err)
		span.SetError(wrapped)
		done(false)
		return nil, wrapped
	}

	table := ShapeResults(res)
	span.SetCount(len(table.Rows))
	done(true)
	return table, nil
}

// runStage traces and times one retrieval stage. Stages never fail; an empty
// result counts as unsuccessful in metrics.
func runStage[T any](ctx context.Context, stage, answerID string, fn func(context.Context) []T) []T {
	done := metrics.TimeStage(stage)
	ctx, span := telemetry.StartSpan(ctx, "pipeline."+stage, telemetry.SpanAttributes{AnswerID: answerID, Stage: stage})
	defer span.End()

	out := fn(ctx)
	if out == nil {
		out = []T{}
	}
	span.SetCount(len(out))
	done(len(out) > 0)
	return out
}
