package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/studybuddy/pkg/client"
)

var (
	listDocumentsToolName    = "list_documents"
	listDocumentsDescription = "List the user's uploaded PDF documents with their processing status. Only documents with status ready or needs_ocr can be studied."
)

// ListDocumentsInput represents the input arguments for the list_documents tool.
type ListDocumentsInput struct {
	Status string `json:"status,omitempty" jsonschema:"only return documents with this status (pending, processing, ready, failed, needs_ocr)"`
}

// DocumentInfo is one listed document.
type DocumentInfo struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	TotalPages int    `json:"total_pages"`
	Studyable  bool   `json:"studyable"`
	CreatedAt  string `json:"created_at"`
}

// ListDocumentsOutput represents the output of the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentInfo `json:"documents"`
	Count     int            `json:"count"`
}

func (s *Server) handleListDocuments(ctx context.Context, _ *mcp.CallToolRequest, input ListDocumentsInput) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.config.Backend.ListDocuments(ctx)
	if err != nil {
		s.config.Logger.Error("failed to list documents", "error", err)
		return toolError("Failed to list documents: %v", err), ListDocumentsOutput{}, nil
	}

	out := ListDocumentsOutput{Documents: []DocumentInfo{}}
	for _, d := range docs {
		if input.Status != "" && string(d.Status) != input.Status {
			continue
		}
		out.Documents = append(out.Documents, documentInfo(d))
	}
	out.Count = len(out.Documents)

	return s.jsonResult(out), out, nil
}

func documentInfo(d client.Document) DocumentInfo {
	return DocumentInfo{
		ID:         d.ID,
		Filename:   d.Filename,
		Status:     string(d.Status),
		TotalPages: d.TotalPages,
		Studyable:  d.Status.Studyable(),
		CreatedAt:  d.CreatedAt.Format(time.RFC3339),
	}
}
