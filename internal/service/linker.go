package service

import (
	"context"
	"log/slog"
	"sort"

	"github.com/cloo-solutions/nl2sparql/internal/domain"
	"github.com/cloo-solutions/nl2sparql/internal/spotlight"
)

// Annotator defines the interface for the entity annotation service
type Annotator interface {
	Annotate(ctx context.Context, text string, confidence float64, support int) (*spotlight.Annotation, error)
}

type LinkerConfig struct {
	Confidence  float64
	Support     int
	MaxEntities int
}

// EntityLinker maps spans of a question to DBpedia resources.
type EntityLinker struct {
	annotator Annotator
	cfg       LinkerConfig
	logger    *slog.Logger
}

func NewEntityLinker(annotator Annotator, cfg LinkerConfig, logger *slog.Logger) *EntityLinker {
	if logger == nil {
		logger = slog.Default()
	}
	return &EntityLinker{annotator: annotator, cfg: cfg, logger: logger}
}

// Link returns the confident entities in question, best first. Any failure
// of the annotation service yields an empty list.
func (l *EntityLinker) Link(ctx context.Context, question string) []domain.Entity {
	ann, err := l.annotator.Annotate(ctx, question, l.cfg.Confidence, l.cfg.Support)
	if err != nil {
		l.logger.Warn("entity linking failed", "error", domain.ErrLinkerUnavailable.WithCause(err))
		return []domain.Entity{}
	}
	if ann == nil {
		return []domain.Entity{}
	}
	return SelectEntities(ann.Resources, l.cfg)
}

// SelectEntities dedupes resources by URI (first occurrence wins, even if it
// is later filtered out), drops those below the confidence or support
// thresholds, sorts by score then support and caps the result.
func SelectEntities(resources []spotlight.Resource, cfg LinkerConfig) []domain.Entity {
	seen := make(map[string]bool, len(resources))
	entities := make([]domain.Entity, 0, len(resources))

	for _, r := range resources {
		if r.URI == "" || seen[r.URI] {
			continue
		}
		seen[r.URI] = true

		score := r.SimilarityScore.Float()
		support := r.Support.Int()
		if score < cfg.Confidence || support < cfg.Support {
			continue
		}
		entities = append(entities, domain.Entity{
			SurfaceForm:     r.SurfaceForm,
			URI:             r.URI,
			Types:           r.Types,
			SimilarityScore: score,
			Support:         support,
		})
	}

	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].SimilarityScore != entities[j].SimilarityScore {
			return entities[i].SimilarityScore > entities[j].SimilarityScore
		}
		return entities[i].Support > entities[j].Support
	})

	if cfg.MaxEntities > 0 && len(entities) > cfg.MaxEntities {
		entities = entities[:cfg.MaxEntities]
	}
	return entities
}
