package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/cloo-solutions/nl2sparql/internal/domain"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envPrefix is tried first; the bare names (GROQ_API_KEY, ...) are the
// fallback envconfig consults when the prefixed variable is unset.
const envPrefix = "NL2SPARQL"

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
	APIToken string `envconfig:"API_TOKEN"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	GroqAPIKey            string  `envconfig:"GROQ_API_KEY" required:"true"`
	GroqModel             string  `envconfig:"GROQ_MODEL" default:"openai/gpt-oss-120b"`
	GroqBaseURL           string  `envconfig:"GROQ_BASE_URL" default:"https://api.groq.com/openai/v1"`
	CompletionTemperature float32 `envconfig:"COMPLETION_TEMPERATURE" default:"0.1"`
	CompletionMaxTokens   int     `envconfig:"COMPLETION_MAX_TOKENS" default:"600"`

	EmbeddingModel   string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingBaseURL string `envconfig:"EMBEDDING_BASE_URL" default:"https://api.openai.com/v1"`
	EmbeddingAPIKey  string `envconfig:"EMBEDDING_API_KEY"`

	SpotlightEndpoint   string  `envconfig:"SPOTLIGHT_ENDPOINT" default:"https://api.dbpedia-spotlight.org/en/annotate"`
	SpotlightConfidence float64 `envconfig:"SPOTLIGHT_CONFIDENCE" default:"0.35"`
	SpotlightSupport    int     `envconfig:"SPOTLIGHT_SUPPORT" default:"20"`

	SPARQLEndpoint string `envconfig:"DBPEDIA_SPARQL_ENDPOINT" default:"https://dbpedia.org/sparql"`

	SchemaTopK                int     `envconfig:"SCHEMA_TOP_K" default:"6"`
	SchemaEntityPropertyLimit int     `envconfig:"SCHEMA_ENTITY_PROPERTY_LIMIT" default:"120"`
	SchemaMinSimilarity       float64 `envconfig:"SCHEMA_MIN_SIMILARITY" default:"0.2"`
	SchemaCatalogPath         string  `envconfig:"SCHEMA_CATALOG_PATH"`

	RequestTimeoutSec  int `envconfig:"REQUEST_TIMEOUT_SEC" default:"15"`
	MaxEntities        int `envconfig:"MAX_ENTITIES" default:"4"`
	DefaultSelectLimit int `envconfig:"DEFAULT_SELECT_LIMIT" default:"50"`
	WarmRetrySec       int `envconfig:"WARM_RETRY_SEC" default:"30"`

	SentryDSN      string `envconfig:"SENTRY_DSN"`
	Environment    string `envconfig:"ENVIRONMENT" default:"development"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"false"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	// The embedding server is usually OpenAI itself.
	if cfg.EmbeddingAPIKey == "" {
		cfg.EmbeddingAPIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	cfg.GroqAPIKey = strings.TrimSpace(cfg.GroqAPIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.GroqAPIKey == "" {
		problems = append(problems, "GROQ_API_KEY is required")
	}
	if c.SchemaTopK <= 0 {
		problems = append(problems, "SCHEMA_TOP_K must be positive")
	}
	if c.SchemaEntityPropertyLimit <= 0 {
		problems = append(problems, "SCHEMA_ENTITY_PROPERTY_LIMIT must be positive")
	}
	if c.SchemaMinSimilarity < -1 || c.SchemaMinSimilarity > 1 {
		problems = append(problems, "SCHEMA_MIN_SIMILARITY must be within [-1, 1]")
	}
	if c.RequestTimeoutSec <= 0 {
		problems = append(problems, "REQUEST_TIMEOUT_SEC must be positive")
	}
	if c.MaxEntities <= 0 {
		problems = append(problems, "MAX_ENTITIES must be positive")
	}
	if c.DefaultSelectLimit <= 0 {
		problems = append(problems, "DEFAULT_SELECT_LIMIT must be positive")
	}
	if c.WarmRetrySec < 0 {
		problems = append(problems, "WARM_RETRY_SEC must not be negative")
	}
	if c.CompletionMaxTokens <= 0 {
		problems = append(problems, "COMPLETION_MAX_TOKENS must be positive")
	}

	if len(problems) > 0 {
		return domain.ErrInvalidConfig.WithCause(fmt.Errorf("%s", strings.Join(problems, "; ")))
	}
	return nil
}

// RequestTimeout is the per-call bound for every external request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// WarmRetryInterval is the pause between background catalog warm-up attempts.
func (c *Config) WarmRetryInterval() time.Duration {
	if c.WarmRetrySec <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.WarmRetrySec) * time.Second
}

// ClassTopK is the default number of classes to retrieve: the property top-K
// clamped to [3, 5].
func (c *Config) ClassTopK() int {
	k := c.SchemaTopK
	if k < 3 {
		k = 3
	}
	if k > 5 {
		k = 5
	}
	return k
}

func (c *Config) HasEmbeddingKey() bool {
	return c.EmbeddingAPIKey != ""
}

func (c *Config) HasSentry() bool {
	return c.SentryDSN != ""
}
