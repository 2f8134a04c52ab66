// Package mcp exposes the retrieval engine to AI clients over the Model
// Context Protocol.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/contextlab/recall/internal/engine"
	rerrors "github.com/contextlab/recall/internal/errors"
	"github.com/contextlab/recall/pkg/version"
)

// ServerName is the implementation name reported to MCP clients.
const ServerName = "recall"

// Server bridges MCP clients to the personalization engine.
type Server struct {
	mcp    *mcp.Server
	engine *engine.Engine
	logger *slog.Logger
}

// NewServer creates an MCP server over the given engine.
func NewServer(eng *engine.Engine, logger *slog.Logger) (*Server, error) {
	if eng == nil {
		return nil, errors.New("engine is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		engine: eng,
		logger: logger,
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "personal_context",
		Description: "Retrieve personalization context for a user message. Classifies the question, searches the user's memory chunks and entity facts, and returns a token-budgeted context block ready for prompt insertion.",
	}, s.personalContextHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "invalidate_memory",
		Description: "Invalidate cached retrieval results after memory edits. Target a specific entity, a specific chunk, or clear everything. Must be called whenever underlying chunks or entity facts change.",
	}, s.invalidateMemoryHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory_status",
		Description: "Report store contents and query pipeline metrics: chunk and entity counts, cache hit rates, intent distribution, and classification fallback rate.",
	}, s.memoryStatusHandler)

	s.logger.Info("MCP tools registered", slog.Int("count", 3))
}

// personalContextHandler serves the personal_context tool.
func (s *Server) personalContextHandler(ctx context.Context, req *mcp.CallToolRequest, input PersonalContextInput) (
	*mcp.CallToolResult,
	PersonalContextOutput,
	error,
) {
	if input.Message == "" {
		return nil, PersonalContextOutput{}, NewInvalidParamsError("message parameter is required")
	}
	if input.Scope == "" {
		return nil, PersonalContextOutput{}, NewInvalidParamsError("scope parameter is required")
	}

	result, err := s.engine.ProcessQuery(ctx, input.Message, input.Scope)
	if err != nil {
		s.logger.Error("personal_context failed",
			slog.String("scope", input.Scope),
			slog.String("code", rerrors.GetCode(err)),
			slog.String("error", err.Error()))
		return nil, PersonalContextOutput{}, toolError(err)
	}

	return nil, PersonalContextOutput{
		ContextText: result.ContextText,
		Intent:      string(result.Intent),
		FromCache:   result.FromCache,
		CacheTier:   result.CacheTier.String(),
		Debug: DebugOutput{
			Intent:             string(result.Debug.Intent),
			Entities:           result.Debug.Keywords.Entities,
			Concepts:           result.Debug.Keywords.Concepts,
			Temporal:           result.Debug.Keywords.Temporal,
			Relational:         result.Debug.Keywords.Relational,
			Emotional:          result.Debug.Keywords.Emotional,
			ExactMatches:       result.Debug.ExactMatches,
			EntityMatches:      result.Debug.EntityMatches,
			SemanticMatches:    result.Debug.SemanticMatches,
			ChunksSelected:     result.Debug.ChunksSelected,
			TokensUsed:         result.Debug.TokensUsed,
			UsedFallback:       result.Debug.UsedFallback,
			EmbeddingAvailable: result.Debug.EmbeddingAvailable,
		},
	}, nil
}

// invalidateMemoryHandler serves the invalidate_memory tool.
func (s *Server) invalidateMemoryHandler(ctx context.Context, req *mcp.CallToolRequest, input InvalidateMemoryInput) (
	*mcp.CallToolResult,
	InvalidateMemoryOutput,
	error,
) {
	var (
		removed int
		err     error
	)
	switch {
	case input.All:
		err = s.engine.InvalidateAll()
	case input.Entity != "":
		removed, err = s.engine.InvalidateByEntity(input.Entity)
	case input.ChunkID != "":
		removed, err = s.engine.InvalidateByChunk(input.ChunkID)
	default:
		return nil, InvalidateMemoryOutput{}, NewInvalidParamsError("one of entity, chunk_id, or all is required")
	}
	if err != nil {
		return nil, InvalidateMemoryOutput{}, toolError(err)
	}

	return nil, InvalidateMemoryOutput{EntriesRemoved: removed}, nil
}

// memoryStatusHandler serves the memory_status tool.
func (s *Server) memoryStatusHandler(ctx context.Context, req *mcp.CallToolRequest, input MemoryStatusInput) (
	*mcp.CallToolResult,
	MemoryStatusOutput,
	error,
) {
	out := MemoryStatusOutput{}

	if input.Scope != "" {
		stats, err := s.engine.Store().Stats(ctx, input.Scope)
		if err != nil {
			return nil, MemoryStatusOutput{}, toolError(err)
		}
		out.Store = &StoreStatusOutput{
			Scope:       input.Scope,
			Chunks:      stats.Chunks,
			Entities:    stats.Entities,
			EntityFacts: stats.EntityFacts,
		}
	}

	snap := s.engine.Metrics().Snapshot()
	out.Queries = QueryStatusOutput{
		Total:         snap.TotalQueries,
		CacheHits:     snap.CacheHits,
		CacheHitRate:  snap.CacheHitRate(),
		FallbackCount: snap.FallbackCount,
		FallbackRate:  snap.FallbackRate(),
		Since:         snap.Since.Format("2006-01-02T15:04:05Z07:00"),
	}
	for intent, count := range snap.IntentCounts {
		out.Queries.IntentCounts = append(out.Queries.IntentCounts, IntentCount{
			Intent: string(intent),
			Count:  count,
		})
	}
	return nil, out, nil
}

// Serve runs the server on the given transport until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
			return err
		}
		s.logger.Info("MCP server stopped gracefully")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}
