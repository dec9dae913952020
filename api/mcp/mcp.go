// Package mcp provides an MCP (Model Context Protocol) server that lets
// agents study the signed-in user's documents.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/reply"
	"github.com/papercomputeco/studybuddy/pkg/study"
	"github.com/papercomputeco/studybuddy/pkg/transcript"
	"github.com/papercomputeco/studybuddy/pkg/utils"
)

// Backend is the subset of the backend client the tools need.
// *client.Client satisfies it.
type Backend interface {
	ListDocuments(ctx context.Context) ([]client.Document, error)
	Chat(ctx context.Context, req client.ChatRequest, observe func(reply.Result), opts ...reply.Option) (reply.Result, error)
	GenerateQuiz(ctx context.Context, documentID string, n int) (*client.Quiz, error)
	Graph(ctx context.Context, documentID string) (*client.Graph, error)
}

type Config struct {
	// Backend answers the tool calls
	Backend Backend

	// Transcripts, when set, enables the search_transcripts tool over the
	// local archive.
	Transcripts transcript.Driver

	// OnTurn, when set, receives every ask_document exchange so it can be
	// archived like a CLI chat turn.
	OnTurn func(ctx context.Context, t study.Turn)

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured slog logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the study tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "studybuddy",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Backend == nil {
			return nil, errors.New("backend is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        listDocumentsToolName,
			Description: listDocumentsDescription,
		}, s.handleListDocuments)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        askToolName,
			Description: askDescription,
		}, s.handleAsk)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        quizToolName,
			Description: quizDescription,
		}, s.handleQuiz)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        graphToolName,
			Description: graphDescription,
		}, s.handleGraph)

		if c.Transcripts != nil {
			mcp.AddTool(mcpServer, &mcp.Tool{
				Name:        searchToolName,
				Description: searchDescription,
			}, s.handleSearch)
		}
	}

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// RunStdio serves MCP over stdin/stdout until ctx is done or the client
// disconnects.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// toolError reports a failed call to the model instead of the transport.
func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, args...)},
		},
	}
}

// jsonResult mirrors structured output as a JSON text block for clients
// that only read text content.
func (s *Server) jsonResult(v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		s.config.Logger.Error("failed to marshal tool output", "error", err)
		return toolError("Failed to serialize results: %v", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}
}
