package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/logger"
)

// DefaultPollInterval matches the document list refresh cadence.
const DefaultPollInterval = 5 * time.Second

// Lister fetches the current document list.
type Lister interface {
	ListDocuments(ctx context.Context) ([]client.Document, error)
}

// Transition is a document leaving the in-flight states. A document that
// disappears from the listing while in flight leaves them as Removed, with
// Document holding its last known state.
type Transition struct {
	Document client.Document
	From     client.DocumentStatus
	Removed  bool
}

// To names the state the document moved to.
func (t Transition) To() string {
	if t.Removed {
		return "removed"
	}
	return string(t.Document.Status)
}

// Message is the user-facing notice for the transition.
func (t Transition) Message() string {
	if t.Removed {
		return fmt.Sprintf("%q was removed before processing finished.", t.Document.Filename)
	}
	switch t.Document.Status {
	case client.StatusReady:
		return fmt.Sprintf("%q is ready to study!", t.Document.Filename)
	case client.StatusFailed:
		return fmt.Sprintf("Processing failed for %q.", t.Document.Filename)
	default:
		return fmt.Sprintf("%q finished processing with status %s.", t.Document.Filename, t.Document.Status)
	}
}

// Success reports whether the document can now be studied.
func (t Transition) Success() bool {
	return !t.Removed && t.Document.Status.Studyable()
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithPollInterval overrides DefaultPollInterval.
func WithPollInterval(d time.Duration) TrackerOption {
	return func(t *Tracker) { t.interval = d }
}

// WithTrackerLogger sets the tracker's logger.
func WithTrackerLogger(l *slog.Logger) TrackerOption {
	return func(t *Tracker) { t.logger = l }
}

// OnTransition registers a callback for every emitted transition.
func OnTransition(fn func(Transition)) TrackerOption {
	return func(t *Tracker) { t.onTransition = fn }
}

// Tracker polls the document list while any known document is in flight.
type Tracker struct {
	lister       Lister
	interval     time.Duration
	logger       *slog.Logger
	onTransition func(Transition)

	mu    sync.Mutex
	known map[string]client.Document
}

// NewTracker creates a Tracker backed by lister.
func NewTracker(lister Lister, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		lister:   lister,
		interval: DefaultPollInterval,
		logger:   logger.Nop(),
		known:    map[string]client.Document{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Track records docs as the last known state, typically the result of an
// upload or an initial listing.
func (t *Tracker) Track(docs ...client.Document) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, d := range docs {
		t.known[d.ID] = d
	}
}

// Pending reports whether any known document is still in flight.
func (t *Tracker) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, d := range t.known {
		if d.Status.InFlight() {
			return true
		}
	}
	return false
}

// Poll lists documents once and returns the transitions since the previous
// known state. Documents not seen before are recorded without a transition.
// Known documents missing from the listing are forgotten, with a Removed
// transition if they were still in flight.
func (t *Tracker) Poll(ctx context.Context) ([]Transition, error) {
	docs, err := t.lister.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	var out []Transition
	listed := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		listed[d.ID] = struct{}{}
		old, ok := t.known[d.ID]
		if ok && old.Status.InFlight() && !d.Status.InFlight() {
			out = append(out, Transition{Document: d, From: old.Status})
		}
		t.known[d.ID] = d
	}
	for id, old := range t.known {
		if _, ok := listed[id]; ok {
			continue
		}
		delete(t.known, id)
		if old.Status.InFlight() {
			out = append(out, Transition{Document: old, From: old.Status, Removed: true})
		}
	}
	t.mu.Unlock()

	for _, tr := range out {
		t.logger.Info("document processed",
			"document_id", tr.Document.ID,
			"from", string(tr.From),
			"to", tr.To(),
		)
		if t.onTransition != nil {
			t.onTransition(tr)
		}
	}
	return out, nil
}

// Run polls every interval until nothing is in flight or ctx is done.
// Poll failures are logged and retried on the next tick.
func (t *Tracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for t.Pending() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := t.Poll(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				t.logger.Warn("polling documents failed", "error", err)
			}
		}
	}
	return nil
}
