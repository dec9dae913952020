// Package transcript archives completed tutor turns locally so past study
// sessions can be reviewed without the backend.
package transcript

import (
	"context"
	"sort"
	"time"
)

// Turn is one question and its fully decoded reply.
type Turn struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id,omitempty"`
	DocumentID  string    `json:"document_id,omitempty"`
	Persona     string    `json:"persona"`
	WebSearch   bool      `json:"web_search"`
	Question    string    `json:"question"`
	Reply       string    `json:"reply"`
	Citations   []int     `json:"citations,omitempty"`
	Failed      bool      `json:"failed"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	SessionID  string
	DocumentID string

	// Limit caps the number of turns returned, most recent first. Zero is unbounded.
	Limit int
}

// Matches reports whether t passes the filter's field constraints.
func (f Filter) Matches(t *Turn) bool {
	if f.SessionID != "" && t.SessionID != f.SessionID {
		return false
	}
	if f.DocumentID != "" && t.DocumentID != f.DocumentID {
		return false
	}
	return true
}

// SessionSummary groups the archived turns of one chat session.
type SessionSummary struct {
	SessionID     string    `json:"session_id"`
	DocumentID    string    `json:"document_id,omitempty"`
	Turns         int       `json:"turns"`
	FirstQuestion string    `json:"first_question"`
	LastAt        time.Time `json:"last_at"`
}

// Driver defines the interface for persisting and retrieving turns.
type Driver interface {
	// Put stores a turn, assigning an ID when empty. Putting an existing ID
	// replaces the stored turn.
	Put(ctx context.Context, turn *Turn) error

	// Get retrieves a turn by its ID.
	Get(ctx context.Context, id string) (*Turn, error)

	// List returns turns matching filter, most recent first.
	List(ctx context.Context, filter Filter) ([]*Turn, error)

	// Sessions summarizes archived turns per session, most recently active first.
	// Turns recorded before a session id was assigned are not grouped.
	Sessions(ctx context.Context) ([]SessionSummary, error)

	// Close closes the store and releases any resources.
	Close() error
}

// Summarize groups turns by session id. Drivers share it so grouping
// semantics cannot drift between backends.
func Summarize(turns []*Turn) []SessionSummary {
	byID := map[string]*SessionSummary{}
	first := map[string]time.Time{}

	for _, t := range turns {
		if t.SessionID == "" {
			continue
		}
		s, ok := byID[t.SessionID]
		if !ok {
			s = &SessionSummary{SessionID: t.SessionID, DocumentID: t.DocumentID}
			byID[t.SessionID] = s
		}
		s.Turns++
		if f, seen := first[t.SessionID]; !seen || t.StartedAt.Before(f) {
			first[t.SessionID] = t.StartedAt
			s.FirstQuestion = t.Question
		}
		if t.CompletedAt.After(s.LastAt) {
			s.LastAt = t.CompletedAt
		}
	}

	out := make([]SessionSummary, 0, len(byID))
	for _, s := range byID {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastAt.Equal(out[j].LastAt) {
			return out[i].LastAt.After(out[j].LastAt)
		}
		return out[i].SessionID < out[j].SessionID
	})
	return out
}

// SortRecent orders turns most recent first and applies limit.
func SortRecent(turns []*Turn, limit int) []*Turn {
	sort.SliceStable(turns, func(i, j int) bool {
		if !turns[i].StartedAt.Equal(turns[j].StartedAt) {
			return turns[i].StartedAt.After(turns[j].StartedAt)
		}
		return turns[i].ID > turns[j].ID
	})
	if limit > 0 && len(turns) > limit {
		turns = turns[:limit]
	}
	return turns
}
