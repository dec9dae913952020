package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/study"
)

var (
	askToolName    = "ask_document"
	askDescription = "Ask the Study Buddy tutor a question about a document. Returns the answer with the page numbers it cites and a session_id that can be passed back to continue the conversation. Omit document_id for a general chat."
)

// AskInput represents the input arguments for the ask_document tool.
type AskInput struct {
	DocumentID string `json:"document_id,omitempty" jsonschema:"id of a ready document, omit for a general question"`
	Question   string `json:"question" jsonschema:"the question to ask"`
	Persona    string `json:"persona,omitempty" jsonschema:"tutor persona: default, eli5, star_wars, professor or socratic"`
	SessionID  string `json:"session_id,omitempty" jsonschema:"session to continue"`
	WebSearch  bool   `json:"web_search,omitempty" jsonschema:"allow the tutor to search the web"`
}

// AskOutput represents the output of the ask_document tool.
type AskOutput struct {
	Answer    string `json:"answer"`
	Citations []int  `json:"citations"`
	SessionID string `json:"session_id,omitempty"`
	Persona   string `json:"persona"`
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return toolError("question is required"), AskOutput{}, nil
	}
	if input.Persona != "" {
		if _, ok := client.LookupPersona(input.Persona); !ok {
			return toolError("unknown persona %q", input.Persona), AskOutput{}, nil
		}
	}

	opts := []study.Option{
		study.WithSession(input.SessionID),
		study.WithWebSearch(input.WebSearch),
		study.WithLogger(s.config.Logger),
	}
	if input.Persona != "" {
		opts = append(opts, study.WithPersona(input.Persona))
	}
	if s.config.OnTurn != nil {
		opts = append(opts, study.OnTurn(func(t study.Turn) { s.config.OnTurn(ctx, t) }))
	}
	conv := study.NewConversation(s.config.Backend, input.DocumentID, opts...)

	s.config.Logger.Debug("MCP ask request",
		"document_id", input.DocumentID,
		"session_id", input.SessionID,
	)

	turn, err := conv.Send(ctx, question)
	if err != nil {
		s.config.Logger.Error("failed to ask document", "error", err)
		return toolError("Failed to get an answer: %v", err), AskOutput{}, nil
	}

	out := AskOutput{
		Answer:    turn.Result.DisplayText,
		Citations: turn.Result.Citations,
		SessionID: turn.SessionID,
		Persona:   turn.Persona,
	}
	if out.Citations == nil {
		out.Citations = []int{}
	}

	return s.jsonResult(out), out, nil
}
