package study_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/reply"
	"github.com/papercomputeco/studybuddy/pkg/study"
)

// scriptedSender replays chunks through a real decoder.
type scriptedSender struct {
	chunks    []string
	refuse    error
	streamErr error
	requests  []client.ChatRequest
	block     chan struct{}
	// afterFirst runs once the first chunk has been observed.
	afterFirst func(ctx context.Context)
}

func (s *scriptedSender) Chat(ctx context.Context, req client.ChatRequest, observe func(reply.Result), opts ...reply.Option) (reply.Result, error) {
	s.requests = append(s.requests, req)
	if s.block != nil {
		<-s.block
	}
	if s.refuse != nil {
		return reply.Result{}, s.refuse
	}

	d := reply.NewDecoder(opts...)
	for i, c := range s.chunks {
		observe(d.Push(c))
		if i == 0 && s.afterFirst != nil {
			s.afterFirst(ctx)
		}
	}
	if s.streamErr != nil {
		return d.Result(), s.streamErr
	}
	res := d.Close()
	observe(res)
	return res, nil
}

type fakeHistory struct {
	msgs []client.Message
	err  error
}

func (f *fakeHistory) SessionMessages(context.Context, string) ([]client.Message, error) {
	return f.msgs, f.err
}

var _ = Describe("Conversation", func() {
	ctx := context.Background()

	It("streams a reply into the last assistant message", func() {
		sender := &scriptedSender{chunks: []string{
			"__SESSION_ID__:s-1\n__CITA", "TIONS__:[4,2]\nMitochondria ", "make ATP.",
		}}
		pages := study.NewPages()
		conv := study.NewConversation(sender, "doc-1", study.WithPages(pages), study.WithPersona("eli5"))

		var loadingSeen []bool
		conv.Subscribe(func(s study.Snapshot) { loadingSeen = append(loadingSeen, s.Loading) })

		turn, err := conv.Send(ctx, "  What do mitochondria do?  ")
		Expect(err).NotTo(HaveOccurred())

		snap := conv.Snapshot()
		Expect(snap.Messages).To(Equal([]study.Message{
			{Role: client.RoleUser, Content: "What do mitochondria do?"},
			{Role: client.RoleAssistant, Content: "Mitochondria make ATP.", Citations: []int{4, 2}},
		}))
		Expect(snap.SessionID).To(Equal("s-1"))
		Expect(snap.Loading).To(BeFalse())
		Expect(loadingSeen[0]).To(BeTrue())
		Expect(loadingSeen[len(loadingSeen)-1]).To(BeFalse())

		page, ok := pages.Current()
		Expect(ok).To(BeTrue())
		Expect(page).To(Equal(4))

		Expect(sender.requests[0]).To(Equal(client.ChatRequest{
			DocumentID: "doc-1", Question: "What do mitochondria do?", Persona: "eli5",
		}))
		Expect(turn.SessionID).To(Equal("s-1"))
		Expect(turn.Persona).To(Equal("eli5"))
		Expect(turn.SessionOutcome).To(Equal(reply.OutcomeExtracted))
		Expect(turn.CitationsOutcome).To(Equal(reply.OutcomeExtracted))
	})

	It("keeps the active session once one is set", func() {
		sender := &scriptedSender{chunks: []string{"__SESSION_ID__:other\nok"}}
		conv := study.NewConversation(sender, "doc-1", study.WithSession("mine"))

		_, err := conv.Send(ctx, "q")
		Expect(err).NotTo(HaveOccurred())

		Expect(conv.Snapshot().SessionID).To(Equal("mine"))
		Expect(sender.requests[0].SessionID).To(Equal("mine"))
	})

	It("reports malformed citations without failing the turn", func() {
		sender := &scriptedSender{chunks: []string{"__SESSION_ID__:s\n__CITATIONS__:[1,\"Web\"]\nFrom the web."}}
		pages := study.NewPages()
		conv := study.NewConversation(sender, "doc-1", study.WithPages(pages))

		turn, err := conv.Send(ctx, "q")
		Expect(err).NotTo(HaveOccurred())

		Expect(turn.CitationsOutcome).To(Equal(reply.OutcomeFailed))
		Expect(turn.DecodeFailures).To(HaveLen(1))
		Expect(turn.DecodeFailures[0].Marker).To(Equal(reply.MarkerCitations))
		Expect(conv.Snapshot().Messages[1].Citations).To(BeNil())
		Expect(conv.Snapshot().Messages[1].Content).To(Equal("From the web."))

		_, ok := pages.Current()
		Expect(ok).To(BeFalse())
	})

	It("appends the fallback reply when the request is refused", func() {
		sender := &scriptedSender{refuse: errors.New("chat failed: 500")}
		var turns []study.Turn
		conv := study.NewConversation(sender, "doc-1", study.OnTurn(func(t study.Turn) { turns = append(turns, t) }))

		_, err := conv.Send(ctx, "q")
		Expect(err).To(MatchError("chat failed: 500"))

		Expect(conv.Snapshot().Messages).To(Equal([]study.Message{
			{Role: client.RoleUser, Content: "q"},
			{Role: client.RoleAssistant, Content: study.FallbackReply},
		}))
		Expect(conv.Snapshot().Loading).To(BeFalse())
		Expect(turns).To(HaveLen(1))
		Expect(turns[0].Err).To(HaveOccurred())
	})

	It("keeps the partial reply and appends the fallback on a stream failure", func() {
		sender := &scriptedSender{chunks: []string{"Half an ans"}, streamErr: errors.New("chat stream: reset")}
		conv := study.NewConversation(sender, "doc-1")

		_, err := conv.Send(ctx, "q")
		Expect(err).To(HaveOccurred())

		msgs := conv.Snapshot().Messages
		Expect(msgs).To(HaveLen(3))
		Expect(msgs[1].Content).To(Equal("Half an ans"))
		Expect(msgs[2].Content).To(Equal(study.FallbackReply))
	})

	It("rejects blank questions and concurrent sends", func() {
		sender := &scriptedSender{chunks: []string{"ok"}, block: make(chan struct{})}
		conv := study.NewConversation(sender, "")

		_, err := conv.Send(ctx, "   ")
		Expect(err).To(MatchError(study.ErrEmptyQuestion))

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			_, _ = conv.Send(ctx, "first")
			close(done)
		}()
		Eventually(func() bool { return conv.Snapshot().Loading }).Should(BeTrue())

		_, err = conv.Send(ctx, "second")
		Expect(err).To(MatchError(study.ErrBusy))

		close(sender.block)
		Eventually(done).Should(BeClosed())
	})

	It("runs general chats as the general assistant", func() {
		sender := &scriptedSender{chunks: []string{"hi"}}
		conv := study.NewConversation(sender, "", study.WithPersona("professor"))

		turn, err := conv.Send(ctx, "hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(turn.Persona).To(Equal(client.PersonaGeneral))
		Expect(conv.EffectivePersona()).To(Equal(client.PersonaGeneral))
	})

	It("starts a new chat", func() {
		sender := &scriptedSender{chunks: []string{"__SESSION_ID__:s\nhi"}}
		conv := study.NewConversation(sender, "doc-1")
		_, err := conv.Send(ctx, "hello")
		Expect(err).NotTo(HaveOccurred())

		conv.NewChat()
		Expect(conv.Snapshot().Messages).To(BeEmpty())
		Expect(conv.Snapshot().SessionID).To(BeEmpty())
		Expect(conv.Snapshot().DocumentID).To(Equal("doc-1"))
	})

	It("abandons a streaming reply when a new chat starts", func() {
		var cancelled bool
		pages := study.NewPages()
		sender := &scriptedSender{chunks: []string{"Hello ", "__SESSION_ID__:s-9\n__CITATIONS__:[3]\nworld"}}
		conv := study.NewConversation(sender, "doc-1", study.WithPages(pages))
		sender.afterFirst = func(ctx context.Context) {
			conv.NewChat()
			cancelled = ctx.Err() != nil
		}

		var turn study.Turn
		Expect(func() { turn, _ = conv.Send(ctx, "Say hello") }).NotTo(Panic())

		Expect(cancelled).To(BeTrue())
		snap := conv.Snapshot()
		Expect(snap.Messages).To(BeEmpty())
		Expect(snap.SessionID).To(BeEmpty())
		Expect(snap.Loading).To(BeFalse())
		_, ok := pages.Current()
		Expect(ok).To(BeFalse())
		Expect(turn.SessionID).To(Equal("s-9"))

		sender.afterFirst = nil
		sender.chunks = []string{"Fresh start."}
		_, err := conv.Send(ctx, "Again")
		Expect(err).NotTo(HaveOccurred())
		Expect(conv.Snapshot().Messages).To(Equal([]study.Message{
			{Role: client.RoleUser, Content: "Again"},
			{Role: client.RoleAssistant, Content: "Fresh start."},
		}))
	})

	It("abandons a streaming reply when a stored session loads", func() {
		history := &fakeHistory{msgs: []client.Message{{Role: client.RoleUser, Content: "Old question"}}}
		sender := &scriptedSender{chunks: []string{"Partial ", "reply"}}
		conv := study.NewConversation(sender, "doc-1")
		sender.afterFirst = func(context.Context) {
			Expect(conv.Load(ctx, history, client.Session{ID: "s-old"})).To(Succeed())
		}

		_, err := conv.Send(ctx, "New question")
		Expect(err).NotTo(HaveOccurred())

		snap := conv.Snapshot()
		Expect(snap.SessionID).To(Equal("s-old"))
		Expect(snap.Messages).To(Equal([]study.Message{{Role: client.RoleUser, Content: "Old question"}}))
	})

	It("loads a stored session and syncs the persona", func() {
		conv := study.NewConversation(&scriptedSender{}, "doc-1")
		history := &fakeHistory{msgs: []client.Message{
			{Role: client.RoleUser, Content: "earlier"},
			{Role: client.RoleAssistant, Content: "reply", Citations: []int{7}},
		}}

		err := conv.Load(ctx, history, client.Session{ID: "s-old", Persona: "socratic"})
		Expect(err).NotTo(HaveOccurred())

		snap := conv.Snapshot()
		Expect(snap.SessionID).To(Equal("s-old"))
		Expect(snap.Persona).To(Equal("socratic"))
		Expect(snap.Messages).To(HaveLen(2))
		Expect(snap.Messages[1].Citations).To(Equal([]int{7}))
		Expect(snap.Loading).To(BeFalse())
	})

	It("leaves state untouched when loading fails", func() {
		conv := study.NewConversation(&scriptedSender{}, "doc-1", study.WithSession("keep"))
		err := conv.Load(ctx, &fakeHistory{err: errors.New("404")}, client.Session{ID: "gone"})

		Expect(err).To(HaveOccurred())
		Expect(conv.Snapshot().SessionID).To(Equal("keep"))
		Expect(conv.Snapshot().Loading).To(BeFalse())
	})

	It("validates personas", func() {
		conv := study.NewConversation(&scriptedSender{}, "doc-1")
		Expect(conv.SetPersona("pirate")).To(HaveOccurred())
		Expect(conv.SetPersona("star_wars")).To(Succeed())
		Expect(conv.Snapshot().Persona).To(Equal("star_wars"))

		conv.SetWebSearch(true)
		Expect(conv.Snapshot().WebSearch).To(BeTrue())
	})

	It("hands out snapshots that callers cannot mutate", func() {
		sender := &scriptedSender{chunks: []string{"__CITATIONS__:[1]\nx"}}
		conv := study.NewConversation(sender, "doc-1")
		_, err := conv.Send(ctx, "q")
		Expect(err).NotTo(HaveOccurred())

		snap := conv.Snapshot()
		snap.Messages[1].Citations[0] = 99
		snap.Messages[0].Content = "changed"

		Expect(conv.Snapshot().Messages[1].Citations).To(Equal([]int{1}))
		Expect(conv.Snapshot().Messages[0].Content).To(Equal("q"))
	})
})

var _ = Describe("Pages", func() {
	It("ignores non-positive pages", func() {
		p := study.NewPages()
		p.Set(0)
		_, ok := p.Current()
		Expect(ok).To(BeFalse())

		var seen []int
		p.Subscribe(func(n int) { seen = append(seen, n) })
		p.Set(3)
		Expect(seen).To(Equal([]int{3}))
	})
})
