package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	graphToolName    = "knowledge_map"
	graphDescription = "Return the knowledge map of a document: its key concepts and the labelled relations between them, busiest concepts first."
)

// GraphInput represents the input arguments for the knowledge_map tool.
type GraphInput struct {
	DocumentID string `json:"document_id" jsonschema:"id of a ready document"`
}

// Relation is one labelled edge from a concept.
type Relation struct {
	Target string `json:"target"`
	Label  string `json:"label"`
}

// Concept is a concept and its outgoing relations.
type Concept struct {
	Name      string     `json:"name"`
	Degree    int        `json:"degree"`
	Relations []Relation `json:"relations"`
}

// GraphOutput represents the output of the knowledge_map tool.
type GraphOutput struct {
	DocumentID string    `json:"document_id"`
	Concepts   []Concept `json:"concepts"`
	NodeCount  int       `json:"node_count"`
	LinkCount  int       `json:"link_count"`
}

func (s *Server) handleGraph(ctx context.Context, _ *mcp.CallToolRequest, input GraphInput) (*mcp.CallToolResult, GraphOutput, error) {
	if input.DocumentID == "" {
		return toolError("document_id is required"), GraphOutput{}, nil
	}

	g, err := s.config.Backend.Graph(ctx, input.DocumentID)
	if err != nil {
		s.config.Logger.Error("failed to load knowledge map", "document_id", input.DocumentID, "error", err)
		return toolError("Failed to load knowledge map: %v", err), GraphOutput{}, nil
	}

	names := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		names[n.ID] = n.Name
	}
	name := func(id string) string {
		if n, ok := names[id]; ok && n != "" {
			return n
		}
		return id
	}

	out := GraphOutput{
		DocumentID: input.DocumentID,
		Concepts:   []Concept{},
		NodeCount:  len(g.Nodes),
		LinkCount:  len(g.Links),
	}
	for _, cl := range g.Adjacency() {
		c := Concept{Name: name(cl.Concept), Degree: cl.Degree, Relations: []Relation{}}
		for _, l := range cl.Links {
			c.Relations = append(c.Relations, Relation{Target: name(l.Target), Label: l.Label})
		}
		out.Concepts = append(out.Concepts, c)
	}

	return s.jsonResult(out), out, nil
}
