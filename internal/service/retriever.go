package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/cloo-solutions/nl2sparql/internal/domain"
	"github.com/cloo-solutions/nl2sparql/internal/metrics"
	"github.com/cloo-solutions/nl2sparql/internal/schema"
	"github.com/cloo-solutions/nl2sparql/internal/sparql"
	"github.com/cloo-solutions/nl2sparql/internal/vocabulary"
)

// Embedder defines the interface for batch text embedding
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// QueryRunner defines the interface for executing SPARQL queries
type QueryRunner interface {
	Query(ctx context.Context, query string) (*sparql.Results, error)
}

type RetrieverConfig struct {
	TopK                int
	ClassTopK           int
	EntityPropertyLimit int
	MinSimilarity       float64
}

// SchemaRetriever ranks catalog properties and classes, plus the properties
// of linked entities, against a question.
type SchemaRetriever struct {
	embedder Embedder
	runner   QueryRunner
	cfg      RetrieverConfig
	logger   *slog.Logger

	mu          sync.Mutex
	properties  []domain.SchemaItem
	classes     []domain.SchemaItem
	staticReady bool
	entityCache map[string][]domain.SchemaItem
}

func NewSchemaRetriever(embedder Embedder, runner QueryRunner, catalog *schema.Catalog, cfg RetrieverConfig, logger *slog.Logger) *SchemaRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	if catalog == nil {
		catalog = &schema.Catalog{}
	}
	r := &SchemaRetriever{
		embedder:    embedder,
		runner:      runner,
		cfg:         cfg,
		logger:      logger,
		properties:  prepareItems(catalog.Properties),
		classes:     prepareItems(catalog.Classes),
		entityCache: make(map[string][]domain.SchemaItem),
	}
	return r
}

func prepareItems(items []domain.SchemaItem) []domain.SchemaItem {
	out := make([]domain.SchemaItem, 0, len(items))
	for _, it := range items {
		if it.Prefixed == "" {
			it.Prefixed = vocabulary.ToPrefixed(it.URI)
		}
		if it.Text == "" {
			it.Text = it.EmbeddingText()
		}
		out = append(out, it)
	}
	return out
}

// Warm embeds the static catalog. Retrieval calls it lazily; calling it at
// startup moves the cost out of the first question.
func (r *SchemaRetriever) Warm(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.warmLocked(ctx)
}

func (r *SchemaRetriever) warmLocked(ctx context.Context) error {
	if r.staticReady {
		return nil
	}
	all := append(append([]domain.SchemaItem{}, r.properties...), r.classes...)
	if err := r.embedItems(ctx, all); err != nil {
		return err
	}
	copy(r.properties, all[:len(r.properties)])
	copy(r.classes, all[len(r.properties):])
	r.staticReady = true
	return nil
}

// Retrieve returns up to topK properties for the question. A non-positive
// topK means the configured default. Failures are logged and yield an empty
// list.
func (r *SchemaRetriever) Retrieve(ctx context.Context, question string, entities []domain.Entity, topK int) []domain.SchemaItem {
	if topK <= 0 {
		topK = r.cfg.TopK
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.warmLocked(ctx); err != nil {
		r.logger.Warn("schema embedding failed", "error", err)
		return []domain.SchemaItem{}
	}

	candidates := append([]domain.SchemaItem{}, r.properties...)
	for _, e := range entities {
		if e.URI == "" {
			continue
		}
		candidates = append(candidates, r.entityPropertiesLocked(ctx, e.URI)...)
	}
	candidates = DedupeItems(candidates)

	return r.rank(ctx, question, candidates, topK)
}

// RetrieveClasses returns up to topK catalog classes for the question.
func (r *SchemaRetriever) RetrieveClasses(ctx context.Context, question string, topK int) []domain.SchemaItem {
	if topK <= 0 {
		topK = r.cfg.ClassTopK
	}
	if topK <= 0 {
		topK = clamp(r.cfg.TopK, 3, 5)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.warmLocked(ctx); err != nil {
		r.logger.Warn("schema embedding failed", "error", err)
		return []domain.SchemaItem{}
	}
	return r.rank(ctx, question, append([]domain.SchemaItem{}, r.classes...), topK)
}

func (r *SchemaRetriever) rank(ctx context.Context, question string, items []domain.SchemaItem, topK int) []domain.SchemaItem {
	if len(items) == 0 {
		return []domain.SchemaItem{}
	}

	vectors, err := r.embed(ctx, []string{question})
	if err != nil {
		r.logger.Warn("question embedding failed", "error", err)
		return []domain.SchemaItem{}
	}
	if err := r.embedItems(ctx, items); err != nil {
		r.logger.Warn("candidate embedding failed", "error", err)
		return []domain.SchemaItem{}
	}

	return RankItems(vectors[0], items, topK, r.cfg.MinSimilarity)
}

// embedItems fills in missing embeddings with a single batch call.
func (r *SchemaRetriever) embedItems(ctx context.Context, items []domain.SchemaItem) error {
	var idx []int
	var texts []string
	for i := range items {
		if len(items[i].Embedding) > 0 {
			continue
		}
		text := items[i].Text
		if text == "" {
			text = items[i].EmbeddingText()
			items[i].Text = text
		}
		idx = append(idx, i)
		texts = append(texts, text)
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := r.embed(ctx, texts)
	if err != nil {
		return err
	}
	for j, i := range idx {
		items[i].Embedding = vectors[j]
	}
	return nil
}

func (r *SchemaRetriever) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := r.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return nil, domain.ErrEmbeddingUnavailable.WithCause(err)
	}
	if len(vectors) != len(texts) {
		return nil, domain.ErrEmbeddingUnavailable.WithCause(fmt.Errorf("got %d vectors for %d texts", len(vectors), len(texts)))
	}
	for i := range vectors {
		vectors[i] = Normalize(vectors[i])
	}
	return vectors, nil
}

// entityPropertiesLocked returns the cached or freshly fetched properties of
// one entity. Fetch failures are not cached.
func (r *SchemaRetriever) entityPropertiesLocked(ctx context.Context, uri string) []domain.SchemaItem {
	if items, ok := r.entityCache[uri]; ok {
		metrics.Default().IncEntityCache(true)
		return items
	}
	metrics.Default().IncEntityCache(false)

	query, err := EntityPropertiesQuery(uri, r.cfg.EntityPropertyLimit)
	if err != nil {
		r.logger.Warn("skipping entity property lookup", "entity", uri, "error", err)
		return nil
	}
	res, err := r.runner.Query(ctx, query)
	if err != nil {
		r.logger.Warn("entity property lookup failed", "entity", uri, "error", err)
		return nil
	}

	var items []domain.SchemaItem
	for _, row := range res.Rows() {
		p := row["p"].Value
		if p == "" {
			continue
		}
		label := row["label"].Value
		if label == "" {
			label = vocabulary.LabelFromURI(p)
		}
		items = append(items, domain.SchemaItem{
			Kind:        domain.SchemaKindProperty,
			Label:       label,
			URI:         p,
			Description: row["comment"].Value,
			Prefixed:    vocabulary.ToPrefixed(p),
		})
	}
	items = DedupeItems(items)
	for i := range items {
		items[i].Text = items[i].EmbeddingText()
	}

	if err := r.embedItems(ctx, items); err != nil {
		r.logger.Warn("entity property embedding failed", "entity", uri, "error", err)
		return items
	}

	r.entityCache[uri] = items
	return items
}

// CachedEntities reports how many entities have cached properties.
func (r *SchemaRetriever) CachedEntities() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entityCache)
}

// EntityPropertiesQuery lists the DBpedia ontology and property predicates
// used by one entity, with English labels and comments when available.
// entityURI comes from the linker and must be an absolute IRIREF.
func EntityPropertiesQuery(entityURI string, limit int) (string, error) {
	if !IsIRIRef(entityURI) {
		return "", domain.ErrInvalidIRI.WithCause(fmt.Errorf("entity uri %q", entityURI))
	}
	var sb strings.Builder
	sb.WriteString("PREFIX rdfs: <" + vocabulary.RDFS + ">\n")
	sb.WriteString("SELECT DISTINCT ?p ?label ?comment WHERE {\n")
	fmt.Fprintf(&sb, "  <%s> ?p ?o .\n", entityURI)
	sb.WriteString("  FILTER(\n")
	fmt.Fprintf(&sb, "    STRSTARTS(STR(?p), %q) ||\n", vocabulary.DBpediaOntology)
	fmt.Fprintf(&sb, "    STRSTARTS(STR(?p), %q)\n", vocabulary.DBpediaProperty)
	sb.WriteString("  )\n")
	sb.WriteString("  OPTIONAL { ?p rdfs:label ?label FILTER(lang(?label) = \"en\") }\n")
	sb.WriteString("  OPTIONAL { ?p rdfs:comment ?comment FILTER(lang(?comment) = \"en\") }\n")
	sb.WriteString("}\n")
	fmt.Fprintf(&sb, "LIMIT %d", limit)
	return sb.String(), nil
}

// DedupeItems merges items sharing a URI into the first occurrence, filling
// its empty label, description, prefixed form, text and embedding from later
// duplicates. Items without a URI are dropped. Order of first appearance is
// kept.
func DedupeItems(items []domain.SchemaItem) []domain.SchemaItem {
	index := make(map[string]int, len(items))
	out := make([]domain.SchemaItem, 0, len(items))

	for _, it := range items {
		if it.URI == "" {
			continue
		}
		i, ok := index[it.URI]
		if !ok {
			index[it.URI] = len(out)
			out = append(out, it)
			continue
		}
		existing := &out[i]
		if existing.Label == "" {
			existing.Label = it.Label
		}
		if existing.Description == "" {
			existing.Description = it.Description
		}
		if existing.Prefixed == "" {
			existing.Prefixed = it.Prefixed
		}
		if existing.Text == "" {
			existing.Text = it.Text
		}
		if len(existing.Embedding) == 0 {
			existing.Embedding = it.Embedding
		}
	}
	return out
}

// RankItems scores items by dot product with the normalized question vector,
// keeps those at or above minSimilarity (all of them when none qualify) and
// returns at most topK, best first. Returned items carry no embedding.
func RankItems(question []float32, items []domain.SchemaItem, topK int, minSimilarity float64) []domain.SchemaItem {
	if len(items) == 0 || topK <= 0 {
		return []domain.SchemaItem{}
	}

	scored := make([]domain.SchemaItem, len(items))
	for i, it := range items {
		it.Score = Dot(question, it.Embedding)
		scored[i] = it
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	filtered := make([]domain.SchemaItem, 0, len(scored))
	for _, it := range scored {
		if it.Score >= minSimilarity {
			filtered = append(filtered, it)
		}
	}
	if len(filtered) == 0 {
		filtered = scored
	}
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}

	out := make([]domain.SchemaItem, len(filtered))
	for i, it := range filtered {
		if it.Prefixed == "" {
			it.Prefixed = vocabulary.ToPrefixed(it.URI)
		}
		it.Embedding = nil
		it.Text = ""
		out[i] = it
	}
	return out
}

// Normalize scales v to unit length. Zero vectors are returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Dot is the dot product over the shorter of the two vectors.
func Dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
