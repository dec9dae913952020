package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	apisearch "github.com/papercomputeco/studybuddy/api/search"
)

var (
	searchToolName    = "search_transcripts"
	searchDescription = "Search past study sessions recorded on this machine. Returns the best matching questions and answers together with the rest of their session, oldest turn first."
)

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input apisearch.SearchInput) (*mcp.CallToolResult, apisearch.SearchOutput, error) {
	output, err := apisearch.NewSearcher(ctx, s.config.Transcripts, s.config.Logger).
		InDocument(input.DocumentID).
		Search(input.Query, input.TopK)
	if err != nil {
		s.config.Logger.Error("failed to search transcripts", "query", input.Query, "error", err)
		return toolError("Search failed: %v", err), apisearch.SearchOutput{}, nil
	}

	return s.jsonResult(output), *output, nil
}
