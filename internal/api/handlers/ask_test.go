package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloo-solutions/nl2sparql/internal/domain"
	"github.com/cloo-solutions/nl2sparql/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockQuestionAnswerer struct {
	mock.Mock
}

func (m *MockQuestionAnswerer) Ask(ctx context.Context, question string, opts service.AskOptions) (*service.Answer, error) {
	args := m.Called(ctx, question, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Answer), args.Error(1)
}

func (m *MockQuestionAnswerer) Generate(ctx context.Context, question string) (*service.Answer, error) {
	args := m.Called(ctx, question)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Answer), args.Error(1)
}

type answerEnvelope struct {
	Data service.Answer `json:"data"`
}

func TestAskHandler_Ask_DefaultsToExecute(t *testing.T) {
	mockSvc := new(MockQuestionAnswerer)
	yes := true
	answer := &service.Answer{
		ID:       "ans-1",
		Question: "Is Paris the capital of France?",
		Query:    "ASK { dbr:France dbo:capital dbr:Paris }",
		Executed: true,
		Result:   &domain.ResultTable{Kind: domain.ResultKindBoolean, Boolean: &yes, Columns: []string{"ASK"}, Rows: []map[string]string{{"ASK": "true"}}},
	}
	mockSvc.On("Ask", mock.Anything, "Is Paris the capital of France?", service.AskOptions{Execute: true}).Return(answer, nil)

	handler := NewAskHandler(mockSvc)

	body, _ := json.Marshal(map[string]string{"question": "Is Paris the capital of France?"})
	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp answerEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ans-1", resp.Data.ID)
	assert.True(t, resp.Data.Executed)
	require.NotNil(t, resp.Data.Result)
	assert.Equal(t, domain.ResultKindBoolean, resp.Data.Result.Kind)
	mockSvc.AssertExpectations(t)
}

func TestAskHandler_Ask_ExecuteFalse(t *testing.T) {
	mockSvc := new(MockQuestionAnswerer)
	answer := &service.Answer{ID: "ans-2", Question: "Who wrote Dune?", Query: "SELECT ?a WHERE { dbr:Dune_(novel) dbo:author ?a }\nLIMIT 50"}
	mockSvc.On("Ask", mock.Anything, "Who wrote Dune?", service.AskOptions{Execute: false}).Return(answer, nil)

	handler := NewAskHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewBufferString(`{"question":"Who wrote Dune?","execute":false}`))
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestAskHandler_Ask_InvalidBody(t *testing.T) {
	handler := NewAskHandler(new(MockQuestionAnswerer))

	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewBufferString("not json"))
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestAskHandler_Ask_MissingQuestion(t *testing.T) {
	handler := NewAskHandler(new(MockQuestionAnswerer))

	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewBufferString(`{"question":"   "}`))
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "question is required")
}

func TestAskHandler_Ask_DomainError(t *testing.T) {
	mockSvc := new(MockQuestionAnswerer)
	mockSvc.On("Ask", mock.Anything, "\u200b", mock.Anything).Return(nil, domain.ErrEmptyQuestion)

	handler := NewAskHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/ask", bytes.NewBufferString(`{"question":"\u200b"}`))
	w := httptest.NewRecorder()

	handler.Ask(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrCodeValidation)
}

func TestAskHandler_Generate(t *testing.T) {
	mockSvc := new(MockQuestionAnswerer)
	answer := &service.Answer{ID: "ans-3", Question: "capital of France", Query: service.FallbackQuery, Fallback: true, FallbackReason: service.FallbackEmptyContext}
	mockSvc.On("Generate", mock.Anything, "capital of France").Return(answer, nil)

	handler := NewAskHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewBufferString(`{"question":"capital of France"}`))
	w := httptest.NewRecorder()

	handler.Generate(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp answerEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Fallback)
	assert.Equal(t, service.FallbackEmptyContext, resp.Data.FallbackReason)
	assert.False(t, resp.Data.Executed)
	mockSvc.AssertExpectations(t)
}

func TestAskHandler_Generate_MissingQuestion(t *testing.T) {
	handler := NewAskHandler(new(MockQuestionAnswerer))

	req := httptest.NewRequest(http.MethodPost, "/generate", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()

	handler.Generate(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
