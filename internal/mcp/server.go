package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/docqa/docqa/internal/rag"
	"github.com/docqa/docqa/pkg/version"
)

// Server exposes the pipeline to MCP clients over stdio.
type Server struct {
	mcp      *mcp.Server
	pipeline *rag.Pipeline
	logger   *slog.Logger
}

// AskInput defines the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the indexed documentation"`
}

// AskOutput defines the output schema for the ask tool.
type AskOutput struct {
	Answer  string         `json:"answer" jsonschema:"the generated answer, grounded in the indexed documents"`
	Sources []SourceOutput `json:"sources" jsonschema:"the document chunks the answer is based on"`
}

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the retrieval query to execute"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Results []SourceOutput `json:"results" jsonschema:"matching document chunks, best first"`
}

// SourceOutput is one retrieved chunk.
type SourceOutput struct {
	SourcePath string  `json:"source_path" jsonschema:"path of the source document relative to the docs directory"`
	Content    string  `json:"content" jsonschema:"chunk text"`
	Score      float64 `json:"score" jsonschema:"cosine similarity between 0 and 1"`
}

// StatusInput defines the input schema for the status tool (no parameters).
type StatusInput struct{}

// StatusOutput defines the output schema for the status tool.
type StatusOutput struct {
	State            string `json:"state" jsonschema:"pipeline state: uninitialized, indexing, ready, failed"`
	ChunkCount       int    `json:"chunk_count" jsonschema:"number of chunks in the knowledge base"`
	EmbeddingModel   string `json:"embedding_model" jsonschema:"active embedding model"`
	Dimensions       int    `json:"dimensions" jsonschema:"embedding dimensions"`
	LLMModel         string `json:"llm_model" jsonschema:"active generation model"`
	BackendAvailable bool   `json:"backend_available" jsonschema:"whether the LLM backend is reachable"`
	LastIndexed      string `json:"last_indexed,omitempty" jsonschema:"RFC3339 timestamp of the last ingestion"`
	DocsDirectory    string `json:"docs_directory" jsonschema:"document corpus directory"`
}

// NewServer creates an MCP server over an initialized pipeline.
func NewServer(pipeline *rag.Pipeline, logger *slog.Logger) (*Server, error) {
	if pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		pipeline: pipeline,
		logger:   logger,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "docqa",
			Version: version.Version,
		},
		nil, // capabilities are inferred from registered tools
	)

	s.registerTools()

	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the indexed product documentation. Responses are grounded in retrieved document chunks and include the sources used.",
	}, s.askHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search",
		Description: "Retrieve the document chunks most similar to a query, without generating an answer. Useful for inspecting what the knowledge base contains.",
	}, s.searchHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "status",
		Description: "Report pipeline state, knowledge base size and backend availability. Use before asking to verify the index is ready.",
	}, s.statusHandler)

	s.logger.Info("MCP tools registered", slog.Int("count", 3))
}

// askHandler answers a question through the pipeline.
func (s *Server) askHandler(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (
	*mcp.CallToolResult,
	AskOutput,
	error,
) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, AskOutput{}, NewInvalidParamsError("question parameter is required")
	}

	start := time.Now()
	requestID := generateRequestID()

	s.logger.Info("ask started",
		slog.String("request_id", requestID))

	answer, err := s.pipeline.Ask(ctx, input.Question)
	if err != nil {
		s.logger.Error("ask failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
		return nil, AskOutput{}, MapError(err)
	}

	s.logger.Info("ask completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("sources", len(answer.Sources)))

	return nil, AskOutput{
		Answer:  answer.Text,
		Sources: toSourceOutputs(answer.Sources),
	}, nil
}

// searchHandler runs retrieval only.
func (s *Server) searchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, SearchOutput{}, NewInvalidParamsError("query parameter is required")
	}

	results, err := s.pipeline.Search(ctx, input.Query)
	if err != nil {
		return nil, SearchOutput{}, MapError(err)
	}

	return nil, SearchOutput{Results: toSourceOutputs(results)}, nil
}

// statusHandler reports the pipeline snapshot.
func (s *Server) statusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ StatusInput) (
	*mcp.CallToolResult,
	StatusOutput,
	error,
) {
	status := s.pipeline.Status(ctx)

	out := StatusOutput{
		State:            status.State,
		ChunkCount:       status.ChunkCount,
		EmbeddingModel:   status.EmbeddingModel,
		Dimensions:       status.Dimensions,
		LLMModel:         status.LLMModel,
		BackendAvailable: status.BackendAvailable,
		DocsDirectory:    status.DocsDirectory,
	}
	if !status.LastIndexed.IsZero() {
		out.LastIndexed = status.LastIndexed.Format(time.RFC3339)
	}

	return nil, out, nil
}

func toSourceOutputs(results []rag.RetrievalResult) []SourceOutput {
	out := make([]SourceOutput, len(results))
	for i, r := range results {
		out[i] = SourceOutput{
			SourcePath: r.SourcePath,
			Content:    r.Content,
			Score:      float64(r.Score),
		}
	}
	return out
}

// Serve runs the server on the stdio transport until the context ends.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("Starting MCP server", slog.String("transport", "stdio"))

	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("MCP server stopped with error",
			slog.String("error", err.Error()))
		return err
	}

	s.logger.Info("MCP server stopped gracefully")
	return nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
