package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is used when no embedding model is configured.
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultCompletionModel is the Groq-hosted model used for generation.
	DefaultCompletionModel = "openai/gpt-oss-120b"

	DefaultTemperature = 0.1
	DefaultMaxTokens   = 600
)

var (
	// ErrEmptyText is returned when an input text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrCountMismatch is returned when the server returns a different number of vectors than inputs
	ErrCountMismatch = errors.New("embedding count does not match input count")
	// ErrRaggedEmbeddings is returned when vectors in one batch differ in length
	ErrRaggedEmbeddings = errors.New("embeddings have inconsistent dimensions")
	// ErrNoChoices is returned when a completion has no choices
	ErrNoChoices = errors.New("completion returned no choices")
)

// EmbeddingAPI defines the interface for batch embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatAPI defines the interface for single-turn chat completion
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, system, user string) (string, error)
}

// Client wraps the OpenAI-compatible embedding and completion APIs
type Client struct {
	embeddings EmbeddingAPI
	chat       ChatAPI
}

type EmbeddingAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewEmbeddingAdapter(cfg EndpointConfig, model string) *EmbeddingAdapter {
	if model == "" {
		model = string(DefaultEmbeddingModel)
	}
	return &EmbeddingAdapter{
		client: newClient(cfg),
		model:  openai.EmbeddingModel(model),
	}
}

// CreateEmbeddings embeds all texts in one request, returning vectors in input order.
func (a *EmbeddingAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(out) || out[idx] != nil {
			idx = i
		}
		if idx >= len(out) {
			return nil, ErrCountMismatch
		}
		out[idx] = d.Embedding
	}
	return out, nil
}

type ChatAdapter struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

func NewChatAdapter(cfg EndpointConfig, model string, temperature float32, maxTokens int) *ChatAdapter {
	if model == "" {
		model = DefaultCompletionModel
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &ChatAdapter{
		client:      newClient(cfg),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// CreateChatCompletion sends a system and a user message and returns the
// first choice's content.
func (a *ChatAdapter) CreateChatCompletion(ctx context.Context, system, user string) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// EndpointConfig addresses one OpenAI-compatible server.
type EndpointConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

func newClient(cfg EndpointConfig) *openai.Client {
	apiKey := cfg.APIKey
	if apiKey == "" {
		// Local OpenAI-compatible servers accept any key.
		apiKey = "unused"
	}
	config := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	config.HTTPClient = &http.Client{Timeout: timeout}
	return openai.NewClientWithConfig(config)
}

type Config struct {
	Embedding      EndpointConfig
	EmbeddingModel string

	Completion      EndpointConfig
	CompletionModel string
	Temperature     float32
	MaxTokens       int
}

// NewClient creates a client from explicit configuration.
func NewClient(cfg Config) *Client {
	return &Client{
		embeddings: NewEmbeddingAdapter(cfg.Embedding, cfg.EmbeddingModel),
		chat:       NewChatAdapter(cfg.Completion, cfg.CompletionModel, cfg.Temperature, cfg.MaxTokens),
	}
}

// NewClientWithAPIs builds a client over arbitrary API implementations.
func NewClientWithAPIs(embeddings EmbeddingAPI, chat ChatAPI) *Client {
	return &Client{embeddings: embeddings, chat: chat}
}

// GenerateEmbeddings returns one vector per text, all of equal length.
func (c *Client) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	for _, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, ErrEmptyText
		}
	}

	vectors, err := c.embeddings.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, ErrCountMismatch
	}

	dims := -1
	for _, v := range vectors {
		if v == nil {
			return nil, ErrCountMismatch
		}
		if dims >= 0 && len(v) != dims {
			return nil, ErrRaggedEmbeddings
		}
		dims = len(v)
	}

	return vectors, nil
}

// GenerateEmbedding embeds a single text.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Complete returns the model's reply to one system and one user message.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	text, err := c.chat.CreateChatCompletion(ctx, system, user)
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}
	return text, nil
}
