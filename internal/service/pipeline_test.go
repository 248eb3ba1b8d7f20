package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cloo-solutions/nl2sparql/internal/domain"
	"github.com/cloo-solutions/nl2sparql/internal/logging"
	"github.com/cloo-solutions/nl2sparql/internal/sparql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockLinker mocks entity linking
type MockLinker struct {
	mock.Mock
}

func (m *MockLinker) Link(ctx context.Context, question string) []domain.Entity {
	args := m.Called(ctx, question)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.Entity)
}

// MockSchemaSource mocks schema retrieval
type MockSchemaSource struct {
	mock.Mock
}

func (m *MockSchemaSource) Retrieve(ctx context.Context, question string, entities []domain.Entity, topK int) []domain.SchemaItem {
	args := m.Called(ctx, question, entities, topK)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.SchemaItem)
}

func (m *MockSchemaSource) RetrieveClasses(ctx context.Context, question string, topK int) []domain.SchemaItem {
	args := m.Called(ctx, question, topK)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.SchemaItem)
}

type pipelineFixture struct {
	linker    *MockLinker
	schema    *MockSchemaSource
	completer *MockCompleter
	runner    *MockQueryRunner
	pipeline  *Pipeline
}

func newPipelineFixture() *pipelineFixture {
	f := &pipelineFixture{
		linker:    new(MockLinker),
		schema:    new(MockSchemaSource),
		completer: new(MockCompleter),
		runner:    new(MockQueryRunner),
	}
	logger := logging.Discard()
	f.pipeline = NewPipeline(f.linker, f.schema, NewGenerator(f.completer, 50, logger), f.runner, logger)
	return f
}

func TestPipeline_Ask_CapitalOfFrance(t *testing.T) {
	f := newPipelineFixture()
	question := "What is the capital of France?"
	yes := true

	f.linker.On("Link", mock.Anything, question).Return([]domain.Entity{france})
	f.schema.On("RetrieveClasses", mock.Anything, question, 0).Return([]domain.SchemaItem{countryClass})
	f.schema.On("Retrieve", mock.Anything, question, []domain.Entity{france}, 0).Return([]domain.SchemaItem{capitalProperty})
	f.completer.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return("ASK { dbr:France dbo:capital ?c }", nil)
	f.runner.On("Query", mock.Anything, mock.MatchedBy(func(q string) bool {
		return QueryForm(q) == "ASK"
	})).Return(&sparql.Results{Boolean: &yes}, nil)

	ans, err := f.pipeline.Ask(context.Background(), "  "+question+"\n", AskOptions{Execute: true})

	require.NoError(t, err)
	_, parseErr := uuid.Parse(ans.ID)
	assert.NoError(t, parseErr)
	assert.Equal(t, question, ans.Question)
	assert.False(t, ans.Fallback)
	assert.Contains(t, ans.Query, "ASK { dbr:France dbo:capital ?c }")
	assert.True(t, ans.Executed)
	require.NotNil(t, ans.Result)
	assert.Equal(t, domain.ResultKindBoolean, ans.Result.Kind)
	assert.Empty(t, ans.Warnings)
	assert.Empty(t, ans.ExecutionError)

	for _, id := range ExtractIdentifiers(ans.Query) {
		assert.Contains(t, []string{"dbr:France", "dbo:capital"}, id.Token)
	}
}

func TestPipeline_Ask_NoContextReturnsFallbackWithoutCompletion(t *testing.T) {
	f := newPipelineFixture()

	f.linker.On("Link", mock.Anything, mock.Anything).Return(nil)
	f.schema.On("RetrieveClasses", mock.Anything, mock.Anything, 0).Return(nil)
	f.schema.On("Retrieve", mock.Anything, mock.Anything, mock.Anything, 0).Return(nil)

	ans, err := f.pipeline.Ask(context.Background(), "blorp", AskOptions{})

	require.NoError(t, err)
	assert.Equal(t, FallbackQuery, ans.Query)
	assert.True(t, ans.Fallback)
	assert.Equal(t, FallbackEmptyContext, ans.FallbackReason)
	assert.Equal(t, []string{NoEntitiesWarning}, ans.Warnings)
	assert.NotNil(t, ans.Entities)
	assert.False(t, ans.Executed)
	f.completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
	f.runner.AssertNotCalled(t, "Query", mock.Anything, mock.Anything)
}

func TestPipeline_Ask_UsesRequestIDAsAnswerID(t *testing.T) {
	f := newPipelineFixture()

	f.linker.On("Link", mock.Anything, mock.Anything).Return(nil)
	f.schema.On("RetrieveClasses", mock.Anything, mock.Anything, 0).Return(nil)
	f.schema.On("Retrieve", mock.Anything, mock.Anything, mock.Anything, 0).Return(nil)

	ctx := logging.WithRequestID(context.Background(), "req-42")
	ans, err := f.pipeline.Ask(ctx, "blorp", AskOptions{})
	require.NoError(t, err)
	assert.Equal(t, "req-42", ans.ID)

	ans, err = f.pipeline.Ask(context.Background(), "blorp", AskOptions{})
	require.NoError(t, err)
	_, parseErr := uuid.Parse(ans.ID)
	assert.NoError(t, parseErr)
}

func TestPipeline_Ask_ExecutionErrorKeepsQuery(t *testing.T) {
	f := newPipelineFixture()

	f.linker.On("Link", mock.Anything, mock.Anything).Return([]domain.Entity{france})
	f.schema.On("RetrieveClasses", mock.Anything, mock.Anything, 0).Return(nil)
	f.schema.On("Retrieve", mock.Anything, mock.Anything, mock.Anything, 0).Return([]domain.SchemaItem{capitalProperty})
	f.completer.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return("SELECT ?c WHERE { dbr:France dbo:capital ?c }", nil)
	f.runner.On("Query", mock.Anything, mock.Anything).
		Return(nil, &sparql.EndpointError{StatusCode: 500, Body: "Virtuoso error"})

	ans, err := f.pipeline.Ask(context.Background(), "capital of France", AskOptions{Execute: true})

	require.NoError(t, err)
	assert.Contains(t, ans.Query, "LIMIT 50")
	assert.True(t, ans.Executed)
	assert.Nil(t, ans.Result)
	assert.Contains(t, ans.ExecutionError, "Virtuoso error")
}

func TestPipeline_Ask_EmptyQuestion(t *testing.T) {
	f := newPipelineFixture()

	ans, err := f.pipeline.Ask(context.Background(), " \t\n", AskOptions{})

	assert.Nil(t, ans)
	assert.ErrorIs(t, err, domain.ErrEmptyQuestion)
	f.linker.AssertNotCalled(t, "Link", mock.Anything, mock.Anything)
}

func TestPipeline_Execute(t *testing.T) {
	f := newPipelineFixture()
	f.runner.On("Query", mock.Anything, "SELECT * {}").
		Return(nil, errors.New("timeout")).Once()

	_, err := f.pipeline.Execute(context.Background(), "SELECT * {}")

	var domainErr *domain.DomainError
	require.True(t, errors.As(err, &domainErr))
	assert.Equal(t, domain.ErrCodeExecution, domainErr.Code)
}

func TestPipeline_Ask_Serialized(t *testing.T) {
	f := newPipelineFixture()

	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0
	f.linker.On("Link", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()
	}).Return(nil)
	f.schema.On("RetrieveClasses", mock.Anything, mock.Anything, 0).Run(func(mock.Arguments) {
		mu.Lock()
		inFlight--
		mu.Unlock()
	}).Return(nil)
	f.schema.On("Retrieve", mock.Anything, mock.Anything, mock.Anything, 0).Return(nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.pipeline.Ask(context.Background(), "question", AskOptions{})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInFlight)
}

func TestNormalizeQuestion(t *testing.T) {
	// "é" as e + combining acute accent composes to U+00E9.
	assert.Equal(t, "Where is Orl\u00e9ans?", NormalizeQuestion("  Where is Orle\u0301ans? "))
}
