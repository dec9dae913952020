// Package search provides keyword search over the local transcript archive.
// It is shared by the REST API endpoint and the MCP server tool.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/papercomputeco/studybuddy/pkg/transcript"
	"github.com/papercomputeco/studybuddy/pkg/utils"
)

// DefaultTopK is the result count used when none is requested.
const DefaultTopK = 5

const previewLen = 120

// SearchInput represents the input arguments for a search request.
type SearchInput struct {
	Query      string `json:"query"`
	TopK       int    `json:"top_k,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
}

// SearchResult represents a single matched turn and its session.
type SearchResult struct {
	TurnID     string `json:"turn_id"`
	SessionID  string `json:"session_id"`
	DocumentID string `json:"document_id,omitempty"`
	Score      int    `json:"score"`
	Preview    string `json:"preview"`
	Turns      int    `json:"turns"`
	Branch     []Turn `json:"branch"`
}

// Turn represents a single question and answer in a session.
type Turn struct {
	ID        string `json:"id"`
	Question  string `json:"question"`
	Reply     string `json:"reply"`
	Citations []int  `json:"citations,omitempty"`
	Matched   bool   `json:"matched,omitempty"`
}

// SearchOutput represents the output of a search operation.
type SearchOutput struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Count   int            `json:"count"`
}

// Searcher runs keyword searches against an archive.
type Searcher struct {
	ctx        context.Context
	archive    transcript.Driver
	logger     *slog.Logger
	documentID string
}

// NewSearcher creates a Searcher bound to ctx.
func NewSearcher(ctx context.Context, archive transcript.Driver, logger *slog.Logger) *Searcher {
	return &Searcher{ctx: ctx, archive: archive, logger: logger}
}

// InDocument limits the search to turns about one document. An empty id
// searches everything.
func (s *Searcher) InDocument(documentID string) *Searcher {
	scoped := *s
	scoped.documentID = documentID
	return &scoped
}

// Search scores every archived turn by how often the query terms occur in its
// question and reply, case-insensitively, and returns the topK best with
// their whole session. Ties go to the most recent turn.
func (s *Searcher) Search(query string, topK int) (*SearchOutput, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, fmt.Errorf("query is empty")
	}

	s.logger.Debug("search request", "query", query, "top_k", topK, "document_id", s.documentID)

	turns, err := s.archive.List(s.ctx, transcript.Filter{DocumentID: s.documentID})
	if err != nil {
		return nil, fmt.Errorf("failed to list transcript: %w", err)
	}

	type hit struct {
		turn  *transcript.Turn
		score int
	}
	var hits []hit
	for _, t := range turns {
		if score := Score(t, terms); score > 0 {
			hits = append(hits, hit{turn: t, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].turn.StartedAt.After(hits[j].turn.StartedAt)
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	bySession := make(map[string][]*transcript.Turn)
	for _, t := range turns {
		bySession[t.SessionID] = append(bySession[t.SessionID], t)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, BuildSearchResult(h.turn, h.score, bySession[h.turn.SessionID]))
	}

	return &SearchOutput{
		Query:   query,
		Results: results,
		Count:   len(results),
	}, nil
}

// Score counts occurrences of the lower-cased terms in t's question and reply.
func Score(t *transcript.Turn, terms []string) int {
	text := strings.ToLower(t.Question + "\n" + t.Reply)
	score := 0
	for _, term := range terms {
		score += strings.Count(text, term)
	}
	return score
}

// BuildSearchResult converts a matched turn and its session into a
// SearchResult. The branch is ordered oldest first.
func BuildSearchResult(matched *transcript.Turn, score int, session []*transcript.Turn) SearchResult {
	ordered := make([]*transcript.Turn, len(session))
	copy(ordered, session)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartedAt.Before(ordered[j].StartedAt)
	})

	branch := make([]Turn, 0, len(ordered))
	for _, t := range ordered {
		branch = append(branch, Turn{
			ID:        t.ID,
			Question:  t.Question,
			Reply:     t.Reply,
			Citations: t.Citations,
			Matched:   t.ID == matched.ID,
		})
	}

	return SearchResult{
		TurnID:     matched.ID,
		SessionID:  matched.SessionID,
		DocumentID: matched.DocumentID,
		Score:      score,
		Preview:    utils.Truncate(utils.FirstLine(matched.Reply), previewLen),
		Turns:      len(branch),
		Branch:     branch,
	}
}
