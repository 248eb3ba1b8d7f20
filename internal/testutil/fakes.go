package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/cloo-solutions/nl2sparql/internal/spotlight"
)

// NewFakeSpotlight serves /annotate, returning every resource whose surface
// form occurs in the text parameter.
func NewFakeSpotlight(t *testing.T, resources ...spotlight.Resource) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		text := r.URL.Query().Get("text")
		ann := spotlight.Annotation{Text: text}
		for _, res := range resources {
			if strings.Contains(text, res.SurfaceForm) {
				ann.Resources = append(ann.Resources, res)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ann)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// KeywordVector embeds text as presence flags over keywords plus a constant
// bias component, so unrelated texts stay comparable.
func KeywordVector(text string, keywords []string) []float32 {
	text = strings.ToLower(text)
	vec := make([]float32, len(keywords)+1)
	vec[len(keywords)] = 0.1
	for i, kw := range keywords {
		if strings.Contains(text, kw) {
			vec[i] = 1
		}
	}
	return vec
}

// FakeOpenAI is an OpenAI-compatible server for /embeddings and
// /chat/completions.
type FakeOpenAI struct {
	*httptest.Server

	Keywords []string

	mu          sync.Mutex
	reply       string
	chatCalls   int
	lastPrompts []string
}

// NewFakeOpenAI starts the server. Chat replies default to reply.
func NewFakeOpenAI(t *testing.T, keywords []string, reply string) *FakeOpenAI {
	t.Helper()

	f := &FakeOpenAI{Keywords: keywords, reply: reply}
	mux := http.NewServeMux()
	mux.HandleFunc("/embeddings", f.handleEmbeddings)
	mux.HandleFunc("/chat/completions", f.handleChat)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// SetReply changes the chat completion text.
func (f *FakeOpenAI) SetReply(reply string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = reply
}

// ChatCalls returns how many completions were requested.
func (f *FakeOpenAI) ChatCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chatCalls
}

// LastPrompts returns the message contents of the latest completion request.
func (f *FakeOpenAI) LastPrompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lastPrompts...)
}

func (f *FakeOpenAI) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	type item struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	}
	data := make([]item, 0, len(req.Input))
	for i, text := range req.Input {
		data = append(data, item{Object: "embedding", Embedding: KeywordVector(text, f.Keywords), Index: i})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data":   data,
		"model":  req.Model,
		"usage":  map[string]int{"prompt_tokens": 0, "total_tokens": 0},
	})
}

func (f *FakeOpenAI) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.chatCalls++
	f.lastPrompts = f.lastPrompts[:0]
	for _, m := range req.Messages {
		f.lastPrompts = append(f.lastPrompts, m.Content)
	}
	reply := f.reply
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 0,
		"model":   req.Model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": reply},
			"finish_reason": "stop",
		}},
	})
}
