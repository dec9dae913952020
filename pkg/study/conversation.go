// Package study holds the client-side state of a study session: the chat
// conversation, the page being studied, and the recording of finished turns.
package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/logger"
	"github.com/papercomputeco/studybuddy/pkg/reply"
	"github.com/papercomputeco/studybuddy/pkg/state"
)

// FallbackReply is shown when a question could not be answered.
const FallbackReply = "Sorry, I encountered an error."

var (
	// ErrBusy is returned by Send while a reply is still streaming.
	ErrBusy = errors.New("a reply is already streaming")

	// ErrEmptyQuestion is returned by Send for blank input.
	ErrEmptyQuestion = errors.New("question is empty")
)

// Sender streams a tutor reply. *client.Client satisfies it.
type Sender interface {
	Chat(ctx context.Context, req client.ChatRequest, observe func(reply.Result), opts ...reply.Option) (reply.Result, error)
}

// History loads stored session messages. *client.Client satisfies it.
type History interface {
	SessionMessages(ctx context.Context, sessionID string) ([]client.Message, error)
}

// Message is one entry in the conversation.
type Message struct {
	Role      client.Role
	Content   string
	Citations []int
}

// Snapshot is the observable conversation state.
type Snapshot struct {
	Messages   []Message
	SessionID  string
	DocumentID string
	Persona    string
	WebSearch  bool
	Loading    bool
}

func (s Snapshot) clone() Snapshot {
	c := s
	c.Messages = make([]Message, len(s.Messages))
	for i, m := range s.Messages {
		m.Citations = slices.Clone(m.Citations)
		c.Messages[i] = m
	}
	return c
}

// Turn describes one finished Send, successful or not.
type Turn struct {
	Question         string
	Result           reply.Result
	Err              error
	SessionID        string
	DocumentID       string
	Persona          string
	WebSearch        bool
	SessionOutcome   reply.Outcome
	CitationsOutcome reply.Outcome
	DecodeFailures   []*reply.ParseError
	StartedAt        time.Time
	CompletedAt      time.Time
}

// Option configures a Conversation.
type Option func(*Conversation)

// WithPersona sets the initial persona.
func WithPersona(p string) Option {
	return func(c *Conversation) { c.initial.Persona = p }
}

// WithSession resumes an existing backend session.
func WithSession(id string) Option {
	return func(c *Conversation) { c.initial.SessionID = id }
}

// WithWebSearch sets the initial web search flag.
func WithWebSearch(on bool) Option {
	return func(c *Conversation) { c.initial.WebSearch = on }
}

// WithPages links cited pages to a page tracker.
func WithPages(p *Pages) Option {
	return func(c *Conversation) { c.pages = p }
}

// WithLogger sets the conversation's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Conversation) { c.logger = l }
}

// OnTurn registers a callback that runs after every Send.
func OnTurn(fn func(Turn)) Option {
	return func(c *Conversation) { c.onTurn = fn }
}

// Conversation drives one chat about a document, or a general chat when the
// document id is empty.
type Conversation struct {
	sender  Sender
	pages   *Pages
	logger  *slog.Logger
	onTurn  func(Turn)
	initial Snapshot
	store   *state.Store[Snapshot]

	// gen counts abandoned conversations. It is only read or written inside
	// store updates, so a streaming reply can tell that NewChat or Load
	// replaced the messages it was writing into.
	gen uint64

	sendMu   sync.Mutex
	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

// NewConversation creates a conversation about documentID.
func NewConversation(sender Sender, documentID string, opts ...Option) *Conversation {
	c := &Conversation{
		sender:  sender,
		logger:  logger.Nop(),
		initial: Snapshot{DocumentID: documentID, Persona: client.PersonaDefault},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.store = state.New(c.initial)
	return c
}

// Snapshot returns a copy of the current state.
func (c *Conversation) Snapshot() Snapshot {
	return c.store.Get().clone()
}

// Subscribe registers fn for every state change. fn receives a copy.
func (c *Conversation) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	return c.store.Subscribe(func(s Snapshot) { fn(s.clone()) })
}

// EffectivePersona is the persona the backend will answer with.
func (c *Conversation) EffectivePersona() string {
	s := c.store.Get()
	return client.EffectivePersona(s.DocumentID, s.Persona)
}

// SetPersona switches the tutor persona for later questions.
func (c *Conversation) SetPersona(key string) error {
	if _, ok := client.LookupPersona(key); !ok {
		return fmt.Errorf("unknown persona %q", key)
	}
	c.store.Update(func(s Snapshot) Snapshot {
		s.Persona = key
		return s
	})
	return nil
}

// SetWebSearch toggles web search for later questions.
func (c *Conversation) SetWebSearch(on bool) {
	c.store.Update(func(s Snapshot) Snapshot {
		s.WebSearch = on
		return s
	})
}

// NewChat clears the messages and detaches from the active session. A reply
// still streaming is abandoned.
func (c *Conversation) NewChat() {
	c.store.Update(func(s Snapshot) Snapshot {
		c.gen++
		s.Messages = nil
		s.SessionID = ""
		s.Loading = false
		return s
	})
	c.abandonReply()
}

// abandonReply cancels the in-flight Send, if any.
func (c *Conversation) abandonReply() {
	c.cancelMu.Lock()
	defer c.cancelMu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Load replaces the conversation with a stored session and adopts its persona.
func (c *Conversation) Load(ctx context.Context, history History, session client.Session) error {
	c.store.Update(func(s Snapshot) Snapshot {
		c.gen++
		s.Loading = true
		return s
	})
	c.abandonReply()

	msgs, err := history.SessionMessages(ctx, session.ID)
	if err != nil {
		c.store.Update(func(s Snapshot) Snapshot {
			s.Loading = false
			return s
		})
		return err
	}

	loaded := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		loaded = append(loaded, Message{Role: m.Role, Content: m.Content, Citations: m.Citations})
	}

	c.store.Update(func(s Snapshot) Snapshot {
		s.Messages = loaded
		s.SessionID = session.ID
		if session.Persona != "" {
			s.Persona = session.Persona
		}
		s.Loading = false
		return s
	})
	return nil
}

// Send asks question and streams the reply into the last assistant message.
// The assistant message appears with the first streamed fragment. On
// failure FallbackReply is appended and the error returned. NewChat or Load
// during the stream cancels ctx and the rest of the reply is discarded.
func (c *Conversation) Send(ctx context.Context, question string) (Turn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Turn{}, ErrEmptyQuestion
	}
	if !c.sendMu.TryLock() {
		return Turn{}, ErrBusy
	}
	defer c.sendMu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancelMu.Lock()
	c.cancel = cancel
	c.cancelMu.Unlock()
	defer func() {
		c.cancelMu.Lock()
		c.cancel = nil
		c.cancelMu.Unlock()
	}()

	var gen uint64
	start := c.store.Update(func(s Snapshot) Snapshot {
		gen = c.gen
		s.Messages = append(slices.Clone(s.Messages), Message{Role: client.RoleUser, Content: question})
		s.Loading = true
		return s
	})

	turn := Turn{
		Question:   question,
		SessionID:  start.SessionID,
		DocumentID: start.DocumentID,
		Persona:    client.EffectivePersona(start.DocumentID, start.Persona),
		WebSearch:  start.WebSearch,
		StartedAt:  time.Now(),
	}

	req := client.ChatRequest{
		DocumentID: start.DocumentID,
		Question:   question,
		Persona:    start.Persona,
		SessionID:  start.SessionID,
		WebSearch:  start.WebSearch,
	}

	var (
		assistant = -1
		pageSet   bool
		failures  []*reply.ParseError
		failureMu sync.Mutex
	)
	sink := reply.WithErrorSink(func(err error) {
		var perr *reply.ParseError
		if errors.As(err, &perr) {
			failureMu.Lock()
			failures = append(failures, perr)
			failureMu.Unlock()
		}
	})

	observe := func(res reply.Result) {
		current := true
		c.store.Update(func(s Snapshot) Snapshot {
			if c.gen != gen {
				current = false
				return s
			}
			msgs := slices.Clone(s.Messages)
			if assistant < 0 {
				msgs = append(msgs, Message{Role: client.RoleAssistant})
				assistant = len(msgs) - 1
			}
			msg := &msgs[assistant]
			msg.Content = res.DisplayText
			if res.Citations != nil {
				msg.Citations = res.Citations
			}
			s.Messages = msgs

			if res.SessionID != nil && s.SessionID == "" {
				s.SessionID = *res.SessionID
			}
			return s
		})

		if current && !pageSet && len(res.Citations) > 0 && c.pages != nil {
			c.pages.Set(res.Citations[0])
			pageSet = true
		}
	}

	res, err := c.sender.Chat(ctx, req, observe, sink)

	c.store.Update(func(s Snapshot) Snapshot {
		if c.gen != gen {
			return s
		}
		if err != nil {
			s.Messages = append(slices.Clone(s.Messages), Message{Role: client.RoleAssistant, Content: FallbackReply})
		}
		s.Loading = false
		return s
	})

	turn.Result = res
	turn.Err = err
	if turn.SessionID == "" && res.SessionID != nil {
		turn.SessionID = *res.SessionID
	}
	turn.DecodeFailures = failures
	turn.SessionOutcome = outcome(res.SessionID != nil, failures, reply.MarkerSessionID)
	turn.CitationsOutcome = outcome(res.Citations != nil, failures, reply.MarkerCitations)
	turn.CompletedAt = time.Now()

	if err != nil {
		c.logger.Error("chat failed", "error", err)
	}
	if c.onTurn != nil {
		c.onTurn(turn)
	}
	return turn, err
}

func outcome(extracted bool, failures []*reply.ParseError, m reply.Marker) reply.Outcome {
	if extracted {
		return reply.OutcomeExtracted
	}
	for _, f := range failures {
		if f.Marker == m {
			return reply.OutcomeFailed
		}
	}
	return reply.OutcomePending
}
