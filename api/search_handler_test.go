package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apisearch "github.com/papercomputeco/studybuddy/api/search"
	"github.com/papercomputeco/studybuddy/pkg/authstore"
	"github.com/papercomputeco/studybuddy/pkg/logger"
	"github.com/papercomputeco/studybuddy/pkg/transcript/inmemory"
	testutils "github.com/papercomputeco/studybuddy/pkg/utils/test"
)

var _ = Describe("handleSearchEndpoint", func() {
	var (
		server *Server
		inMem  *inmemory.Driver
		auth   *authstore.Manager
		tmpDir string
		ctx    context.Context
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "studybuddy-search-test-*")
		Expect(err).NotTo(HaveOccurred())
		auth, err = authstore.NewManager(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		inMem = inmemory.NewDriver()
		ctx = context.Background()

		server, err = NewServer(Config{ListenAddr: ":0", Transcripts: inMem}, auth, &fakeAuthenticator{}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Context("when search is not configured", func() {
		It("returns 503 without a transcript archive", func() {
			noSearchServer, err := NewServer(Config{ListenAddr: ":0"}, auth, &fakeAuthenticator{}, logger.Nop())
			Expect(err).NotTo(HaveOccurred())

			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=test", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := noSearchServer.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusServiceUnavailable))
		})
	})

	Context("when query parameter is missing", func() {
		It("returns 400", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/search", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("query parameter is required"))
		})
	})

	Context("when top_k is invalid", func() {
		It("returns 400 for non-integer top_k", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=test&top_k=abc", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("top_k must be a positive integer"))
		})

		It("returns 400 for zero top_k", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=test&top_k=0", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})
	})

	Context("when search succeeds with no results", func() {
		It("returns 200 with empty results", func() {
			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=hello", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var output apisearch.SearchOutput
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &output)).To(Succeed())

			Expect(output.Query).To(Equal("hello"))
			Expect(output.Count).To(Equal(0))
			Expect(output.Results).To(BeEmpty())
		})
	})

	Context("when search succeeds with results", func() {
		It("returns 200 with search results", func() {
			turn := testutils.NewTestTurn("s1", "How does osmosis work?", time.Now())
			Expect(inMem.Put(ctx, turn)).To(Succeed())

			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=osmosis&top_k=3", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var output apisearch.SearchOutput
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(json.Unmarshal(body, &output)).To(Succeed())

			Expect(output.Count).To(Equal(1))
			Expect(output.Results[0].TurnID).To(Equal(turn.ID))
			Expect(output.Results[0].Branch).To(HaveLen(1))
			Expect(output.Results[0].Branch[0].Matched).To(BeTrue())
		})
	})

	Context("when scoped to a document", func() {
		It("only returns turns about that document", func() {
			other := testutils.NewTestTurn("s2", "osmosis across membranes", time.Now())
			other.DocumentID = "doc-2"
			Expect(inMem.Put(ctx, testutils.NewTestTurn("s1", "osmosis basics", time.Now()))).To(Succeed())
			Expect(inMem.Put(ctx, other)).To(Succeed())

			req, err := http.NewRequest(http.MethodGet, "/v1/search?query=osmosis&document_id=doc-2", nil)
			Expect(err).NotTo(HaveOccurred())

			resp, err := server.app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			var output apisearch.SearchOutput
			Expect(json.NewDecoder(resp.Body).Decode(&output)).To(Succeed())
			Expect(output.Count).To(Equal(1))
			Expect(output.Results[0].DocumentID).To(Equal("doc-2"))
		})
	})
})
