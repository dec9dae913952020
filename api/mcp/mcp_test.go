package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apisearch "github.com/papercomputeco/studybuddy/api/search"
	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/logger"
	"github.com/papercomputeco/studybuddy/pkg/reply"
	"github.com/papercomputeco/studybuddy/pkg/study"
	"github.com/papercomputeco/studybuddy/pkg/transcript/inmemory"
	testutils "github.com/papercomputeco/studybuddy/pkg/utils/test"
)

type fakeBackend struct {
	docs     []client.Document
	stream   string
	chatErr  error
	quiz     *client.Quiz
	graph    *client.Graph
	err      error
	requests []client.ChatRequest
}

func (f *fakeBackend) ListDocuments(context.Context) ([]client.Document, error) {
	return f.docs, f.err
}

func (f *fakeBackend) Chat(_ context.Context, req client.ChatRequest, observe func(reply.Result), opts ...reply.Option) (reply.Result, error) {
	f.requests = append(f.requests, req)
	if f.chatErr != nil {
		return reply.Result{}, f.chatErr
	}
	d := reply.NewDecoder(opts...)
	d.Push(f.stream)
	res := d.Close()
	if observe != nil {
		observe(res)
	}
	return res, nil
}

func (f *fakeBackend) GenerateQuiz(context.Context, string, int) (*client.Quiz, error) {
	return f.quiz, f.err
}

func (f *fakeBackend) Graph(context.Context, string) (*client.Graph, error) {
	return f.graph, f.err
}

func resultText(res *mcp.CallToolResult) string {
	Expect(res.Content).To(HaveLen(1))
	text, ok := res.Content[0].(*mcp.TextContent)
	Expect(ok).To(BeTrue())
	return text.Text
}

var _ = Describe("MCP Server", func() {
	var (
		backend *fakeBackend
		server  *Server
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		backend = &fakeBackend{}

		var err error
		server, err = NewServer(Config{Backend: backend, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewServer", func() {
		It("returns an error when the backend is nil", func() {
			_, err := NewServer(Config{Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("backend is required")))
		})

		It("returns an error when logger is nil", func() {
			_, err := NewServer(Config{Backend: backend})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})

		It("builds an empty server in noop mode", func() {
			s, err := NewServer(Config{Noop: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Handler()).NotTo(BeNil())
		})

		It("returns an HTTP handler", func() {
			Expect(server.Handler()).NotTo(BeNil())
		})
	})

	Describe("list_documents", func() {
		BeforeEach(func() {
			backend.docs = []client.Document{
				{ID: "d1", Filename: "bio.pdf", Status: client.StatusReady, TotalPages: 12},
				{ID: "d2", Filename: "scan.pdf", Status: client.StatusNeedsOCR},
				{ID: "d3", Filename: "new.pdf", Status: client.StatusProcessing},
			}
		})

		It("lists every document and marks the studyable ones", func() {
			res, out, err := server.handleListDocuments(ctx, nil, ListDocumentsInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())

			Expect(out.Count).To(Equal(3))
			Expect(out.Documents[0].Studyable).To(BeTrue())
			Expect(out.Documents[1].Studyable).To(BeTrue())
			Expect(out.Documents[2].Studyable).To(BeFalse())
			Expect(resultText(res)).To(ContainSubstring(`"filename":"bio.pdf"`))
		})

		It("filters by status", func() {
			_, out, err := server.handleListDocuments(ctx, nil, ListDocumentsInput{Status: "processing"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Count).To(Equal(1))
			Expect(out.Documents[0].ID).To(Equal("d3"))
		})

		It("reports backend failures as tool errors", func() {
			backend.err = errors.New("401")
			res, _, err := server.handleListDocuments(ctx, nil, ListDocumentsInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(resultText(res)).To(ContainSubstring("Failed to list documents"))
		})
	})

	Describe("ask_document", func() {
		It("returns the decoded answer with citations and session", func() {
			backend.stream = "__SESSION_ID__:s-7\nOsmosis moves water. __CITATIONS__:[3,5]\n"

			res, out, err := server.handleAsk(ctx, nil, AskInput{DocumentID: "d1", Question: " What is osmosis? ", Persona: "eli5"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())

			Expect(out.Answer).To(Equal("Osmosis moves water. "))
			Expect(out.Citations).To(Equal([]int{3, 5}))
			Expect(out.SessionID).To(Equal("s-7"))
			Expect(out.Persona).To(Equal("eli5"))
			Expect(backend.requests[0].Question).To(Equal("What is osmosis?"))
		})

		It("keeps the caller's session when the reply carries none", func() {
			backend.stream = "Hi."
			_, out, err := server.handleAsk(ctx, nil, AskInput{Question: "hello", SessionID: "s-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.SessionID).To(Equal("s-1"))
			Expect(out.Citations).To(BeEmpty())
			Expect(out.Persona).To(Equal(client.PersonaGeneral))
		})

		It("hands every exchange to OnTurn", func() {
			var seen []study.Turn
			s, err := NewServer(Config{
				Backend: backend,
				Logger:  logger.Nop(),
				OnTurn: func(_ context.Context, t study.Turn) {
					seen = append(seen, t)
				},
			})
			Expect(err).NotTo(HaveOccurred())

			backend.stream = "ok"
			_, _, err = s.handleAsk(ctx, nil, AskInput{DocumentID: "d1", Question: "q"})
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).To(HaveLen(1))
			Expect(seen[0].DocumentID).To(Equal("d1"))
			Expect(seen[0].Question).To(Equal("q"))
			Expect(seen[0].Result.DisplayText).To(Equal("ok"))
		})

		It("reports failed exchanges to OnTurn too", func() {
			var seen []study.Turn
			s, err := NewServer(Config{
				Backend: backend,
				Logger:  logger.Nop(),
				OnTurn:  func(_ context.Context, t study.Turn) { seen = append(seen, t) },
			})
			Expect(err).NotTo(HaveOccurred())

			backend.chatErr = errors.New("chat failed: 500")
			res, _, err := s.handleAsk(ctx, nil, AskInput{Question: "q"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(seen).To(HaveLen(1))
			Expect(seen[0].Err).To(MatchError("chat failed: 500"))
		})

		It("rejects blank questions and unknown personas", func() {
			res, _, err := server.handleAsk(ctx, nil, AskInput{Question: "  "})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())

			res, _, err = server.handleAsk(ctx, nil, AskInput{Question: "q", Persona: "pirate"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
			Expect(backend.requests).To(BeEmpty())
		})

		It("reports chat failures as tool errors", func() {
			backend.chatErr = errors.New("chat failed: 500")
			res, _, err := server.handleAsk(ctx, nil, AskInput{Question: "q"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
		})
	})

	Describe("generate_quiz", func() {
		It("returns the questions", func() {
			backend.quiz = &client.Quiz{Questions: []client.QuizQuestion{
				{Question: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: 1, Explanation: "Arithmetic."},
			}}

			res, out, err := server.handleQuiz(ctx, nil, QuizInput{DocumentID: "d1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(out.Count).To(Equal(1))
			Expect(out.Questions[0].CorrectAnswer).To(Equal(1))
		})

		It("requires a document id", func() {
			res, _, err := server.handleQuiz(ctx, nil, QuizInput{})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
		})
	})

	Describe("knowledge_map", func() {
		It("groups relations by concept using node names", func() {
			backend.graph = &client.Graph{
				Nodes: []client.GraphNode{{ID: "n1", Name: "Cell"}, {ID: "n2", Name: "Nucleus"}, {ID: "n3", Name: "DNA"}},
				Links: []client.GraphLink{
					{Source: "n1", Target: "n2", Label: "contains"},
					{Source: "n2", Target: "n3", Label: "stores"},
					{Source: "n1", Target: "n3", Label: "carries"},
				},
			}

			_, out, err := server.handleGraph(ctx, nil, GraphInput{DocumentID: "d1"})
			Expect(err).NotTo(HaveOccurred())

			Expect(out.NodeCount).To(Equal(3))
			Expect(out.LinkCount).To(Equal(3))
			Expect(out.Concepts[0].Name).To(Equal("Cell"))
			Expect(out.Concepts[0].Relations).To(Equal([]Relation{
				{Target: "Nucleus", Label: "contains"},
				{Target: "DNA", Label: "carries"},
			}))
		})
	})

	Describe("search_transcripts", func() {
		It("finds archived turns by keyword", func() {
			archive := inmemory.NewDriver()
			at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
			Expect(archive.Put(ctx, testutils.NewTestTurn("s1", "What is mitosis?", at))).To(Succeed())
			Expect(archive.Put(ctx, testutils.NewTestTurn("s1", "And meiosis?", at.Add(time.Minute)))).To(Succeed())

			s, err := NewServer(Config{Backend: backend, Transcripts: archive, Logger: logger.Nop()})
			Expect(err).NotTo(HaveOccurred())

			res, out, err := s.handleSearch(ctx, nil, apisearch.SearchInput{Query: "Mitosis"})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeFalse())
			Expect(out.Count).To(Equal(1))
			Expect(out.Results[0].Turns).To(Equal(2))
			Expect(out.Results[0].Branch[0].Matched).To(BeTrue())
		})

		It("reports an empty query as a tool error", func() {
			s, err := NewServer(Config{Backend: backend, Transcripts: inmemory.NewDriver(), Logger: logger.Nop()})
			Expect(err).NotTo(HaveOccurred())

			res, _, err := s.handleSearch(ctx, nil, apisearch.SearchInput{Query: "  "})
			Expect(err).NotTo(HaveOccurred())
			Expect(res.IsError).To(BeTrue())
		})
	})
})
