// Package telemetry wires Sentry tracing and error reporting around the
// pipeline stages, HTTP requests and MCP tool calls.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

const serviceName = "nl2sparql"

// Config holds the configuration for Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	Release          string
	TracesSampleRate float64
	Debug            bool
	// Tags are set on every event, e.g. the SPARQL endpoint and model.
	Tags   map[string]string
	Logger *slog.Logger
}

// Init initializes Sentry with tracing enabled and returns a flush function.
// An empty DSN yields a no-op; so does a DSN Sentry rejects.
func Init(cfg Config) (func(), error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate == 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		ServerName:       serviceName,
		TracesSampler: sentry.TracesSampler(func(ctx sentry.SamplingContext) float64 {
			// Follow the caller's decision for continued traces.
			var emptySpanID sentry.SpanID
			if ctx.Span.ParentSpanID != emptySpanID {
				if ctx.Span.Sampled.Bool() {
					return 1.0
				}
				return 0.0
			}
			return cfg.TracesSampleRate
		}),
	})
	if err != nil {
		logger.Warn("sentry init failed, continuing without tracing", "error", err)
		return func() {}, nil
	}

	if len(cfg.Tags) > 0 {
		sentry.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTags(cfg.Tags)
		})
	}

	logger.Info("sentry tracing initialized", "environment", cfg.Environment, "sample_rate", cfg.TracesSampleRate)
	return func() { sentry.Flush(5 * time.Second) }, nil
}

// SpanAttributes are the tags recorded on pipeline spans.
type SpanAttributes struct {
	AnswerID string
	Stage    string
	Tool     string
}

// Span wraps sentry.Span so callers never touch a nil span.
type Span struct {
	inner *sentry.Span
}

func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetCount records how many items a stage produced.
func (s *Span) SetCount(n int) {
	if s.inner != nil {
		s.inner.SetData("count", n)
	}
}

func (s *Span) SetTag(key, value string) {
	if s.inner != nil {
		s.inner.SetTag(key, value)
	}
}

// SetError marks the span as failed and reports err on the span's hub.
func (s *Span) SetError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	if hub := sentry.GetHubFromContext(s.inner.Context()); hub != nil {
		hub.CaptureException(err)
	} else {
		sentry.CaptureException(err)
	}
}

func setAttributes(span *sentry.Span, attrs SpanAttributes) {
	if span == nil {
		return
	}
	if attrs.AnswerID != "" {
		span.SetTag("answer_id", attrs.AnswerID)
	}
	if attrs.Stage != "" {
		span.SetTag("stage", attrs.Stage)
	}
	if attrs.Tool != "" {
		span.SetTag("tool", attrs.Tool)
	}
}

// StartSpan starts a child of the span in ctx, or a new transaction when ctx
// carries none (the CLI console has no enclosing request).
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}

	setAttributes(span, attrs)
	return span.Context(), &Span{inner: span}
}

// StartTransaction creates a root span for a top-level operation such as an
// MCP tool call.
func StartTransaction(ctx context.Context, name, op string, attrs SpanAttributes) (context.Context, *Span) {
	options := []sentry.SpanOption{
		sentry.WithTransactionName(name),
		sentry.WithTransactionSource(sentry.SourceTask),
	}
	span := sentry.StartSpan(ctx, op, options...)
	setAttributes(span, attrs)
	return span.Context(), &Span{inner: span}
}

// AddBreadcrumb records a pipeline event on the current scope. It becomes
// part of the next event reported for the request.
func AddBreadcrumb(ctx context.Context, category, message string, data map[string]interface{}) {
	breadcrumb := &sentry.Breadcrumb{
		Type:      "default",
		Category:  category,
		Message:   message,
		Data:      data,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.AddBreadcrumb(breadcrumb, nil)
	} else {
		sentry.AddBreadcrumb(breadcrumb)
	}
}
