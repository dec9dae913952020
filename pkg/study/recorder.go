package study

import (
	"context"
	"log/slog"

	"github.com/papercomputeco/studybuddy/pkg/eventstream"
	"github.com/papercomputeco/studybuddy/pkg/logger"
	"github.com/papercomputeco/studybuddy/pkg/transcript"
)

// Recorder archives finished turns and publishes study telemetry. Failures
// are logged and never interrupt the student.
type Recorder struct {
	archive   transcript.Driver
	publisher eventstream.Publisher
	source    eventstream.EventSource
	logger    *slog.Logger
}

// NewRecorder creates a Recorder. archive and publisher may be nil.
func NewRecorder(archive transcript.Driver, publisher eventstream.Publisher, source eventstream.EventSource, log *slog.Logger) *Recorder {
	if log == nil {
		log = logger.Nop()
	}
	return &Recorder{archive: archive, publisher: publisher, source: source, logger: log}
}

// Source identifies this client in published events.
func (r *Recorder) Source() eventstream.EventSource {
	return r.source
}

// RecordTurn stores t in the archive and publishes its events. Turns that
// failed before any text arrived are published but not archived.
func (r *Recorder) RecordTurn(ctx context.Context, t Turn) {
	if r.archive != nil && t.Result.DisplayText != "" {
		err := r.archive.Put(ctx, &transcript.Turn{
			SessionID:   t.SessionID,
			DocumentID:  t.DocumentID,
			Persona:     t.Persona,
			WebSearch:   t.WebSearch,
			Question:    t.Question,
			Reply:       t.Result.DisplayText,
			Citations:   t.Result.Citations,
			Failed:      t.Err != nil,
			StartedAt:   t.StartedAt,
			CompletedAt: t.CompletedAt,
		})
		if err != nil {
			r.logger.Warn("archiving turn failed", "error", err)
		}
	}

	for _, f := range t.DecodeFailures {
		r.publish(ctx, eventstream.NewReplyDecodeFailed(r.source, eventstream.ReplyDecodeFailed{
			SessionID: t.SessionID,
			Marker:    string(f.Marker),
			Payload:   f.Payload,
			Error:     f.Err.Error(),
		}))
	}

	r.publish(ctx, eventstream.NewChatCompleted(r.source, eventstream.ChatCompleted{
		SessionID:        t.SessionID,
		DocumentID:       t.DocumentID,
		Persona:          t.Persona,
		WebSearch:        t.WebSearch,
		QuestionChars:    len([]rune(t.Question)),
		ReplyChars:       len([]rune(t.Result.DisplayText)),
		Citations:        t.Result.Citations,
		SessionOutcome:   t.SessionOutcome.String(),
		CitationsOutcome: t.CitationsOutcome.String(),
		DurationMs:       t.CompletedAt.Sub(t.StartedAt).Milliseconds(),
		Failed:           t.Err != nil,
	}))
}

// RecordQuiz publishes a finished quiz score.
func (r *Recorder) RecordQuiz(ctx context.Context, documentID string, score, total int) {
	r.publish(ctx, eventstream.NewQuizCompleted(r.source, eventstream.QuizCompleted{
		DocumentID: documentID,
		Score:      score,
		Total:      total,
	}))
}

// RecordTransition publishes a document status change.
func (r *Recorder) RecordTransition(ctx context.Context, documentID, filename, from, to string) {
	r.publish(ctx, eventstream.NewDocumentTransition(r.source, eventstream.DocumentTransition{
		DocumentID: documentID,
		Filename:   filename,
		From:       from,
		To:         to,
	}))
}

func (r *Recorder) publish(ctx context.Context, e *eventstream.Event) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, e); err != nil {
		r.logger.Warn("publishing event failed", "event_type", e.EventType, "error", err)
	}
}
