package eventstream

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeChatCompleted is emitted after a tutor reply finishes streaming.
	EventTypeChatCompleted = "studybuddy.chat.completed"

	// EventTypeReplyDecodeFailed is emitted when a reply marker payload
	// could not be parsed.
	EventTypeReplyDecodeFailed = "studybuddy.reply.decode_failed"

	// EventTypeQuizCompleted is emitted when a quiz run reaches its score screen.
	EventTypeQuizCompleted = "studybuddy.quiz.completed"

	// EventTypeDocumentTransition is emitted when a document leaves processing.
	EventTypeDocumentTransition = "studybuddy.document.transition"
)

// Event is a transport-neutral study event. Exactly one of the payload
// fields is set, matching EventType.
type Event struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	Source        EventSource `json:"source"`

	Chat         *ChatCompleted      `json:"chat,omitempty"`
	DecodeFailed *ReplyDecodeFailed  `json:"decode_failed,omitempty"`
	Quiz         *QuizCompleted      `json:"quiz,omitempty"`
	Document     *DocumentTransition `json:"document,omitempty"`
}

// EventSource identifies the client that emitted the event.
type EventSource struct {
	Client  string `json:"client"`
	Version string `json:"version,omitempty"`
	User    string `json:"user,omitempty"`
}

// ChatCompleted summarizes one finished chat turn.
type ChatCompleted struct {
	SessionID        string `json:"session_id,omitempty"`
	DocumentID       string `json:"document_id,omitempty"`
	Persona          string `json:"persona"`
	WebSearch        bool   `json:"web_search"`
	QuestionChars    int    `json:"question_chars"`
	ReplyChars       int    `json:"reply_chars"`
	Citations        []int  `json:"citations,omitempty"`
	SessionOutcome   string `json:"session_outcome"`
	CitationsOutcome string `json:"citations_outcome"`
	DurationMs       int64  `json:"duration_ms"`
	Failed           bool   `json:"failed"`
}

// ReplyDecodeFailed reports a malformed marker payload.
type ReplyDecodeFailed struct {
	SessionID string `json:"session_id,omitempty"`
	Marker    string `json:"marker"`
	Payload   string `json:"payload"`
	Error     string `json:"error"`
}

// QuizCompleted reports a finished quiz run.
type QuizCompleted struct {
	DocumentID string `json:"document_id"`
	Score      int    `json:"score"`
	Total      int    `json:"total"`
}

// DocumentTransition reports a document moving out of processing.
type DocumentTransition struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// Key returns the partition key for the event: the chat session when known,
// otherwise the document.
func (e *Event) Key() string {
	switch {
	case e.Chat != nil && e.Chat.SessionID != "":
		return e.Chat.SessionID
	case e.Chat != nil:
		return e.Chat.DocumentID
	case e.DecodeFailed != nil:
		return e.DecodeFailed.SessionID
	case e.Quiz != nil:
		return e.Quiz.DocumentID
	case e.Document != nil:
		return e.Document.DocumentID
	}
	return ""
}

// Validate checks that event is non-nil and carries exactly the payload its
// EventType names.
func (e *Event) Validate() error {
	if e == nil {
		return ErrNilEvent
	}

	set := 0
	for _, present := range []bool{e.Chat != nil, e.DecodeFailed != nil, e.Quiz != nil, e.Document != nil} {
		if present {
			set++
		}
	}

	var ok bool
	switch e.EventType {
	case EventTypeChatCompleted:
		ok = e.Chat != nil
	case EventTypeReplyDecodeFailed:
		ok = e.DecodeFailed != nil
	case EventTypeQuizCompleted:
		ok = e.Quiz != nil
	case EventTypeDocumentTransition:
		ok = e.Document != nil
	}
	if !ok || set != 1 {
		return fmt.Errorf("%w: %q", ErrPayloadMismatch, e.EventType)
	}
	return nil
}

func newEvent(eventType string, src EventSource) *Event {
	return &Event{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        src,
	}
}

// NewChatCompleted wraps a chat turn summary in an event envelope.
func NewChatCompleted(src EventSource, payload ChatCompleted) *Event {
	e := newEvent(EventTypeChatCompleted, src)
	e.Chat = &payload
	return e
}

// NewReplyDecodeFailed wraps a marker parse failure in an event envelope.
func NewReplyDecodeFailed(src EventSource, payload ReplyDecodeFailed) *Event {
	e := newEvent(EventTypeReplyDecodeFailed, src)
	e.DecodeFailed = &payload
	return e
}

// NewQuizCompleted wraps a quiz score in an event envelope.
func NewQuizCompleted(src EventSource, payload QuizCompleted) *Event {
	e := newEvent(EventTypeQuizCompleted, src)
	e.Quiz = &payload
	return e
}

// NewDocumentTransition wraps a document status change in an event envelope.
func NewDocumentTransition(src EventSource, payload DocumentTransition) *Event {
	e := newEvent(EventTypeDocumentTransition, src)
	e.Document = &payload
	return e
}
