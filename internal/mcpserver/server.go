// Package mcpserver exposes the question pipeline as MCP tools over stdio.
package mcpserver

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/cloo-solutions/nl2sparql/internal/metrics"
	"github.com/cloo-solutions/nl2sparql/internal/render"
	"github.com/cloo-solutions/nl2sparql/internal/service"
	"github.com/cloo-solutions/nl2sparql/internal/telemetry"
	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	ToolGenerateSPARQL = "generate_sparql"
	ToolAskDBpedia     = "ask_dbpedia"
)

// QuestionAnswerer is the pipeline surface the tools need.
type QuestionAnswerer interface {
	Ask(ctx context.Context, question string, opts service.AskOptions) (*service.Answer, error)
	Generate(ctx context.Context, question string) (*service.Answer, error)
}

type GenerateArgs struct {
	Question string `json:"question" jsonschema:"The natural-language question to translate into SPARQL."`
}

type AskArgs struct {
	Question string `json:"question" jsonschema:"The natural-language question to answer from DBpedia."`
	MaxRows  int    `json:"maxRows,omitempty" jsonschema:"Rows to include in the text summary (default 10)."`
}

// MCPServer handles MCP protocol communication
type MCPServer struct {
	server   *mcp.Server
	pipeline QuestionAnswerer
	logger   *slog.Logger
}

// NewMCPServer registers the tools on a fresh server.
func NewMCPServer(pipeline QuestionAnswerer, version string, logger *slog.Logger) *MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "nl2sparql",
		Version: version,
	}, nil)

	s := &MCPServer{
		server:   server,
		pipeline: pipeline,
		logger:   logger,
	}
	s.setupToolHandlers()
	return s
}

func (s *MCPServer) setupToolHandlers() {
	generateInputSchema, err := jsonschema.For[GenerateArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for GenerateArgs: %v", err))
	}
	askInputSchema, err := jsonschema.For[AskArgs]()
	if err != nil {
		panic(fmt.Sprintf("failed to create schema for AskArgs: %v", err))
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Annotations: &mcp.ToolAnnotations{Title: "Generate SPARQL"},
		Name:        ToolGenerateSPARQL,
		Title:       "Generate SPARQL",
		Description: "Translate a question into a validated DBpedia SPARQL query without running it.",
		InputSchema: generateInputSchema,
	}, s.handleGenerate)

	mcp.AddTool(s.server, &mcp.Tool{
		Annotations: &mcp.ToolAnnotations{Title: "Ask DBpedia"},
		Name:        ToolAskDBpedia,
		Title:       "Ask DBpedia",
		Description: "Answer a question by generating a SPARQL query and executing it against DBpedia.",
		InputSchema: askInputSchema,
	}, s.handleAsk)
}

func (s *MCPServer) handleGenerate(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[GenerateArgs],
) (*mcp.CallToolResultFor[service.Answer], error) {
	done := metrics.TimeTool(ToolGenerateSPARQL)
	var success bool
	defer func() { done(success) }()

	ctx, span := telemetry.StartTransaction(ctx, "mcp "+ToolGenerateSPARQL, "mcp.tool", telemetry.SpanAttributes{Tool: ToolGenerateSPARQL})
	defer span.End()

	answer, err := s.pipeline.Generate(ctx, params.Arguments.Question)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("generate failed: %w", err)
	}
	success = true

	return &mcp.CallToolResultFor[service.Answer]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: answer.Query},
		},
		StructuredContent: *answer,
	}, nil
}

func (s *MCPServer) handleAsk(
	ctx context.Context,
	session *mcp.ServerSession,
	params *mcp.CallToolParamsFor[AskArgs],
) (*mcp.CallToolResultFor[service.Answer], error) {
	done := metrics.TimeTool(ToolAskDBpedia)
	var success bool
	defer func() { done(success) }()

	ctx, span := telemetry.StartTransaction(ctx, "mcp "+ToolAskDBpedia, "mcp.tool", telemetry.SpanAttributes{Tool: ToolAskDBpedia})
	defer span.End()

	answer, err := s.pipeline.Ask(ctx, params.Arguments.Question, service.AskOptions{Execute: true})
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("ask failed: %w", err)
	}
	success = answer.ExecutionError == ""

	var text bytes.Buffer
	render.Answer(&text, answer, render.Options{MaxRows: params.Arguments.MaxRows})

	return &mcp.CallToolResultFor[service.Answer]{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text.String()},
		},
		StructuredContent: *answer,
		IsError:           answer.ExecutionError != "",
	}, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *MCPServer) Run(ctx context.Context) error {
	s.logger.Info("mcp server listening on stdio")
	transport := mcp.NewStdioTransport()
	return s.server.Run(ctx, transport)
}
