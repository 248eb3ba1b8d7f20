package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cloo-solutions/nl2sparql/internal/domain"
	"github.com/cloo-solutions/nl2sparql/internal/metrics"
	"github.com/cloo-solutions/nl2sparql/internal/vocabulary"
)

// FallbackQuery is returned whenever no trustworthy query can be produced.
// It is valid SPARQL and always answers false.
var FallbackQuery = vocabulary.PrefixDeclarations() + "ASK { FILTER(false) }"

// Reasons recorded when the fallback query is returned.
const (
	FallbackEmptyContext         = "empty_context"
	FallbackCompletionFailed     = "completion_failed"
	FallbackNoQueryForm          = "no_query_form"
	FallbackDisallowedIdentifier = "disallowed_identifier"
)

// Completer defines the interface for the completion model
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Generation is the outcome of one generate call.
type Generation struct {
	Query string `json:"query"`
	// Raw is the unprocessed model reply; empty when no call was made.
	Raw            string   `json:"raw,omitempty"`
	Fallback       bool     `json:"fallback"`
	FallbackReason string   `json:"fallback_reason,omitempty"`
	Rejected       []string `json:"rejected,omitempty"`
}

// Generator asks the completion model for a query and only lets through
// queries that pass the validator.
type Generator struct {
	completer Completer
	prompts   *PromptBuilder
	validator *QueryValidator
	logger    *slog.Logger
}

func NewGenerator(completer Completer, selectLimit int, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		completer: completer,
		prompts:   NewPromptBuilder(selectLimit),
		validator: NewQueryValidator(selectLimit),
		logger:    logger,
	}
}

func (g *Generator) Prompts() *PromptBuilder {
	return g.prompts
}

// Generate never fails: every error path returns FallbackQuery with the
// reason recorded.
func (g *Generator) Generate(ctx context.Context, question string, entities []domain.Entity, properties, classes []domain.SchemaItem) Generation {
	if len(entities) == 0 && len(properties) == 0 && len(classes) == 0 {
		return g.fallback(FallbackEmptyContext, "", nil)
	}

	raw, err := g.completer.Complete(ctx, g.prompts.SystemPrompt(), g.prompts.UserPrompt(question, entities, properties, classes))
	if err != nil {
		g.logger.Warn("completion failed", "error", domain.ErrCompletionUnavailable.WithCause(err))
		return g.fallback(FallbackCompletionFailed, "", nil)
	}

	query := g.validator.PostProcess(raw)
	allow := NewAllowSet(entities, properties, classes)
	if err := g.validator.Validate(query, allow); err != nil {
		var disallowed *DisallowedIdentifiersError
		if errors.As(err, &disallowed) {
			g.logger.Info("generated query rejected", "identifiers", disallowed.Identifiers)
			return g.fallback(FallbackDisallowedIdentifier, raw, disallowed.Identifiers)
		}
		g.logger.Info("generated query rejected", "error", err)
		return g.fallback(FallbackNoQueryForm, raw, nil)
	}

	return Generation{Query: query, Raw: raw}
}

func (g *Generator) fallback(reason, raw string, rejected []string) Generation {
	metrics.Default().IncFallback(reason)
	return Generation{
		Query:          FallbackQuery,
		Raw:            raw,
		Fallback:       true,
		FallbackReason: reason,
		Rejected:       rejected,
	}
}
