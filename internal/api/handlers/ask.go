package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloo-solutions/nl2sparql/internal/api"
	"github.com/cloo-solutions/nl2sparql/internal/service"
)

// QuestionAnswerer is the pipeline surface the HTTP API needs.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string, opts service.AskOptions) (*service.Answer, error)
	Generate(ctx context.Context, question string) (*service.Answer, error)
}

type AskHandler struct {
	pipeline QuestionAnswerer
}

func NewAskHandler(pipeline QuestionAnswerer) *AskHandler {
	return &AskHandler{pipeline: pipeline}
}

type AskRequest struct {
	Question string `json:"question"`
	// Execute defaults to true when omitted.
	Execute *bool `json:"execute,omitempty"`
}

type GenerateRequest struct {
	Question string `json:"question"`
}

// Ask handles POST /ask.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, err)
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	execute := true
	if req.Execute != nil {
		execute = *req.Execute
	}

	answer, err := h.pipeline.Ask(r.Context(), req.Question, service.AskOptions{Execute: execute})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, answer)
}

// Generate handles POST /generate: the query without executing it.
func (h *AskHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleError(w, err)
		return
	}

	if strings.TrimSpace(req.Question) == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := h.pipeline.Generate(r.Context(), req.Question)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, answer)
}
