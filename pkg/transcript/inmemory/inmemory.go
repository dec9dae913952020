package inmemory

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/papercomputeco/studybuddy/pkg/transcript"
)

// Driver implements transcript.Driver using an in-memory map.
type Driver struct {
	mu    sync.RWMutex
	turns map[string]*transcript.Turn
}

// NewDriver creates a new in-memory transcript store.
func NewDriver() *Driver {
	return &Driver{
		turns: make(map[string]*transcript.Turn),
	}
}

// Put stores a copy of turn.
func (s *Driver) Put(_ context.Context, turn *transcript.Turn) error {
	if turn == nil {
		return errors.New("cannot store nil turn")
	}
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns[turn.ID] = clone(turn)
	return nil
}

// Get retrieves a turn by its ID.
func (s *Driver) Get(_ context.Context, id string) (*transcript.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.turns[id]
	if !ok {
		return nil, transcript.NotFoundError{ID: id}
	}
	return clone(t), nil
}

// List returns turns matching filter, most recent first.
func (s *Driver) List(_ context.Context, filter transcript.Filter) ([]*transcript.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*transcript.Turn
	for _, t := range s.turns {
		if filter.Matches(t) {
			out = append(out, clone(t))
		}
	}
	return transcript.SortRecent(out, filter.Limit), nil
}

// Sessions summarizes archived turns per session.
func (s *Driver) Sessions(ctx context.Context) ([]transcript.SessionSummary, error) {
	turns, err := s.List(ctx, transcript.Filter{})
	if err != nil {
		return nil, err
	}
	return transcript.Summarize(turns), nil
}

// Close is a no-op for the in-memory store.
func (s *Driver) Close() error {
	return nil
}

func clone(t *transcript.Turn) *transcript.Turn {
	c := *t
	c.Citations = slices.Clone(t.Citations)
	return &c
}
