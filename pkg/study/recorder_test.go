package study_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/studybuddy/pkg/eventstream"
	"github.com/papercomputeco/studybuddy/pkg/reply"
	"github.com/papercomputeco/studybuddy/pkg/study"
	"github.com/papercomputeco/studybuddy/pkg/transcript"
	"github.com/papercomputeco/studybuddy/pkg/transcript/inmemory"
)

type recordingPublisher struct {
	events []*eventstream.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e *eventstream.Event) error {
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

var _ = Describe("Recorder", func() {
	var (
		ctx     context.Context
		archive *inmemory.Driver
		pub     *recordingPublisher
		rec     *study.Recorder
		source  eventstream.EventSource
	)

	BeforeEach(func() {
		ctx = context.Background()
		archive = inmemory.NewDriver()
		pub = &recordingPublisher{}
		source = eventstream.EventSource{Client: "studybuddy", Version: "test"}
		rec = study.NewRecorder(archive, pub, source, nil)
	})

	finishedTurn := func() study.Turn {
		sid := "s-1"
		start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		return study.Turn{
			Question:         "What is osmosis?",
			Result:           reply.Result{SessionID: &sid, Citations: []int{2}, DisplayText: "Water moving."},
			SessionID:        sid,
			DocumentID:       "doc-1",
			Persona:          "default",
			SessionOutcome:   reply.OutcomeExtracted,
			CitationsOutcome: reply.OutcomeExtracted,
			StartedAt:        start,
			CompletedAt:      start.Add(1500 * time.Millisecond),
		}
	}

	It("archives the turn and publishes a chat event", func() {
		rec.RecordTurn(ctx, finishedTurn())

		turns, err := archive.List(ctx, transcript.Filter{SessionID: "s-1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(turns).To(HaveLen(1))
		Expect(turns[0].Question).To(Equal("What is osmosis?"))
		Expect(turns[0].Reply).To(Equal("Water moving."))
		Expect(turns[0].Citations).To(Equal([]int{2}))

		Expect(pub.events).To(HaveLen(1))
		e := pub.events[0]
		Expect(e.EventType).To(Equal(eventstream.EventTypeChatCompleted))
		Expect(e.Source).To(Equal(source))
		Expect(e.Chat.SessionID).To(Equal("s-1"))
		Expect(e.Chat.QuestionChars).To(Equal(16))
		Expect(e.Chat.ReplyChars).To(Equal(13))
		Expect(e.Chat.SessionOutcome).To(Equal("extracted"))
		Expect(e.Chat.DurationMs).To(Equal(int64(1500)))
		Expect(e.Chat.Failed).To(BeFalse())
	})

	It("publishes decode failures before the chat event", func() {
		t := finishedTurn()
		t.Result.Citations = nil
		t.CitationsOutcome = reply.OutcomeFailed
		t.DecodeFailures = []*reply.ParseError{{
			Marker: reply.MarkerCitations, Payload: `[1,"Web"]`, Err: errors.New("not an integer array"),
		}}

		rec.RecordTurn(ctx, t)

		Expect(pub.events).To(HaveLen(2))
		Expect(pub.events[0].EventType).To(Equal(eventstream.EventTypeReplyDecodeFailed))
		Expect(pub.events[0].DecodeFailed.Payload).To(Equal(`[1,"Web"]`))
		Expect(pub.events[1].Chat.CitationsOutcome).To(Equal("failed"))
	})

	It("does not archive turns without reply text", func() {
		t := finishedTurn()
		t.Result = reply.Result{}
		t.Err = errors.New("chat failed: 500")

		rec.RecordTurn(ctx, t)

		turns, err := archive.List(ctx, transcript.Filter{})
		Expect(err).NotTo(HaveOccurred())
		Expect(turns).To(BeEmpty())
		Expect(pub.events).To(HaveLen(1))
		Expect(pub.events[0].Chat.Failed).To(BeTrue())
	})

	It("keeps going when publishing fails", func() {
		pub.err = errors.New("broker down")

		rec.RecordTurn(ctx, finishedTurn())
		rec.RecordQuiz(ctx, "doc-1", 4, 5)

		Expect(pub.events).To(HaveLen(2))
		Expect(pub.events[1].Quiz).To(Equal(&eventstream.QuizCompleted{DocumentID: "doc-1", Score: 4, Total: 5}))
	})

	It("publishes document transitions", func() {
		rec.RecordTransition(ctx, "doc-9", "notes.pdf", "processing", "ready")

		Expect(pub.events).To(HaveLen(1))
		Expect(pub.events[0].Key()).To(Equal("doc-9"))
		Expect(pub.events[0].Document.To).To(Equal("ready"))
	})

	It("tolerates a missing archive and publisher", func() {
		bare := study.NewRecorder(nil, nil, source, nil)
		Expect(func() { bare.RecordTurn(ctx, finishedTurn()) }).NotTo(Panic())
	})
})
