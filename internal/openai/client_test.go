package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmbeddingAPI is a mock for the embedding API
type MockEmbeddingAPI struct {
	mock.Mock
}

func (m *MockEmbeddingAPI) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

// MockChatAPI is a mock for the chat API
type MockChatAPI struct {
	mock.Mock
}

func (m *MockChatAPI) CreateChatCompletion(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

func TestClient_GenerateEmbeddings_Success(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := NewClientWithAPIs(mockAPI, nil)

	ctx := context.Background()
	texts := []string{"capital city of a country", "total population of a place"}
	expected := [][]float32{{0.1, 0.2, 0.3}, {0.3, 0.2, 0.1}}

	mockAPI.On("CreateEmbeddings", ctx, texts).Return(expected, nil)

	vectors, err := client.GenerateEmbeddings(ctx, texts)

	assert.NoError(t, err)
	assert.Equal(t, expected, vectors)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbeddings_NoInput(t *testing.T) {
	client := NewClientWithAPIs(new(MockEmbeddingAPI), nil)

	vectors, err := client.GenerateEmbeddings(context.Background(), nil)

	assert.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestClient_GenerateEmbeddings_EmptyText(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := NewClientWithAPIs(mockAPI, nil)

	vectors, err := client.GenerateEmbeddings(context.Background(), []string{"ok", "  "})

	assert.Nil(t, vectors)
	assert.Equal(t, ErrEmptyText, err)
	mockAPI.AssertNotCalled(t, "CreateEmbeddings", mock.Anything, mock.Anything)
}

func TestClient_GenerateEmbeddings_APIError(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := NewClientWithAPIs(mockAPI, nil)

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"text"}).Return(nil, errors.New("API rate limit exceeded"))

	vectors, err := client.GenerateEmbeddings(ctx, []string{"text"})

	assert.Nil(t, vectors)
	assert.Contains(t, err.Error(), "failed to create embeddings")
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbeddings_CountMismatch(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := NewClientWithAPIs(mockAPI, nil)

	ctx := context.Background()
	texts := []string{"a", "b"}
	mockAPI.On("CreateEmbeddings", ctx, texts).Return([][]float32{{1, 0}}, nil)

	_, err := client.GenerateEmbeddings(ctx, texts)

	assert.Equal(t, ErrCountMismatch, err)
}

func TestClient_GenerateEmbeddings_Ragged(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := NewClientWithAPIs(mockAPI, nil)

	ctx := context.Background()
	texts := []string{"a", "b"}
	mockAPI.On("CreateEmbeddings", ctx, texts).Return([][]float32{{1, 0}, {1, 0, 0}}, nil)

	_, err := client.GenerateEmbeddings(ctx, texts)

	assert.Equal(t, ErrRaggedEmbeddings, err)
}

func TestClient_GenerateEmbedding_Single(t *testing.T) {
	mockAPI := new(MockEmbeddingAPI)
	client := NewClientWithAPIs(mockAPI, nil)

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, []string{"question"}).Return([][]float32{{0.5, 0.5}}, nil)

	vector, err := client.GenerateEmbedding(ctx, "question")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, vector)
}

func TestClient_Complete(t *testing.T) {
	mockChat := new(MockChatAPI)
	client := NewClientWithAPIs(nil, mockChat)

	ctx := context.Background()
	mockChat.On("CreateChatCompletion", ctx, "system", "user").Return("ASK { FILTER(false) }", nil)

	text, err := client.Complete(ctx, "system", "user")

	require.NoError(t, err)
	assert.Equal(t, "ASK { FILTER(false) }", text)
	mockChat.AssertExpectations(t)
}

func TestClient_Complete_Error(t *testing.T) {
	mockChat := new(MockChatAPI)
	client := NewClientWithAPIs(nil, mockChat)

	ctx := context.Background()
	mockChat.On("CreateChatCompletion", ctx, "s", "u").Return("", errors.New("503"))

	_, err := client.Complete(ctx, "s", "u")

	assert.ErrorContains(t, err, "failed to create completion")
}

func TestEmbeddingAdapter_AgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-embed", req.Model)

		// Returned out of order; the adapter reorders by index.
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]}
		],"model":"test-embed"}`))
	}))
	defer srv.Close()

	adapter := NewEmbeddingAdapter(EndpointConfig{APIKey: "key", BaseURL: srv.URL + "/", Timeout: time.Second}, "test-embed")
	vectors, err := adapter.CreateEmbeddings(context.Background(), []string{"first", "second"})

	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
}

func TestChatAdapter_AgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req struct {
			Model       string  `json:"model"`
			Temperature float32 `json:"temperature"`
			MaxTokens   int     `json:"max_tokens"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "groq-model", req.Model)
		assert.InDelta(t, 0.1, req.Temperature, 1e-6)
		assert.Equal(t, 600, req.MaxTokens)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "user", req.Messages[1].Role)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[
			{"index":0,"message":{"role":"assistant","content":"SELECT ?x WHERE {}"},"finish_reason":"stop"}
		]}`))
	}))
	defer srv.Close()

	adapter := NewChatAdapter(EndpointConfig{APIKey: "key", BaseURL: srv.URL}, "groq-model", DefaultTemperature, 0)
	text, err := adapter.CreateChatCompletion(context.Background(), "sys", "usr")

	require.NoError(t, err)
	assert.Equal(t, "SELECT ?x WHERE {}", text)
}

func TestChatAdapter_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer srv.Close()

	adapter := NewChatAdapter(EndpointConfig{BaseURL: srv.URL}, "", DefaultTemperature, DefaultMaxTokens)
	_, err := adapter.CreateChatCompletion(context.Background(), "sys", "usr")

	assert.Equal(t, ErrNoChoices, err)
}

func TestNewClient(t *testing.T) {
	client := NewClient(Config{
		Embedding:  EndpointConfig{APIKey: "k"},
		Completion: EndpointConfig{APIKey: "k", BaseURL: "https://api.groq.com/openai/v1"},
	})

	assert.NotNil(t, client)
	assert.NotNil(t, client.embeddings)
	assert.NotNil(t, client.chat)
}
