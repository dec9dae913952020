package client

import (
	"context"
	"fmt"
	"net/http"
	"sort"
)

// Graph returns the document's knowledge map.
func (c *Client) Graph(ctx context.Context, documentID string) (*Graph, error) {
	g := &Graph{}
	if err := c.doJSON(ctx, http.MethodGet, c.endpoint("graph", documentID), nil, g); err != nil {
		return nil, fmt.Errorf("loading knowledge map: %w", err)
	}
	return g, nil
}

// Degree returns the number of links touching each node.
func (g *Graph) Degree() map[string]int {
	deg := make(map[string]int, len(g.Nodes))
	for _, l := range g.Links {
		deg[l.Source]++
		deg[l.Target]++
	}
	return deg
}

// Adjacency groups outgoing links by source concept. Sources are ordered by
// degree, busiest first, then by name.
func (g *Graph) Adjacency() []ConceptLinks {
	deg := g.Degree()
	bySource := make(map[string][]GraphLink)
	for _, l := range g.Links {
		bySource[l.Source] = append(bySource[l.Source], l)
	}

	out := make([]ConceptLinks, 0, len(bySource))
	for src, links := range bySource {
		sort.Slice(links, func(i, j int) bool { return links[i].Target < links[j].Target })
		out = append(out, ConceptLinks{Concept: src, Degree: deg[src], Links: links})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Degree != out[j].Degree {
			return out[i].Degree > out[j].Degree
		}
		return out[i].Concept < out[j].Concept
	})
	return out
}

// ConceptLinks is one concept with its outgoing relations.
type ConceptLinks struct {
	Concept string
	Degree  int
	Links   []GraphLink
}
