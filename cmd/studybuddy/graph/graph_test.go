package graphcmder_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	graphcmder "github.com/papercomputeco/studybuddy/cmd/studybuddy/graph"
	"github.com/papercomputeco/studybuddy/pkg/authstore"
	"github.com/papercomputeco/studybuddy/pkg/client"
	testutils "github.com/papercomputeco/studybuddy/pkg/utils/test"
)

var _ = Describe("Graph command", func() {
	var (
		tmpDir  string
		origDir string
		backend *testutils.FakeBackend
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "studybuddy-graph-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		Expect(os.MkdirAll(filepath.Join(tmpDir, ".studybuddy"), 0o755)).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		backend = testutils.NewFakeBackend()
		backend.AddDocument(client.Document{ID: "d1", Filename: "biology.pdf", Status: client.StatusReady}, nil)

		mgr, err := authstore.NewManager("")
		Expect(err).NotTo(HaveOccurred())
		Expect(mgr.SetToken("jwt", &authstore.User{Email: "ada@example.com"})).To(Succeed())
	})

	AfterEach(func() {
		backend.Close()
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := graphcmder.NewGraphCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append(args, "--api-url", backend.APIURL()))
		err := cmd.Execute()
		return out.String(), err
	}

	It("lists concepts busiest first with their relations", func() {
		backend.SetGraph(client.Graph{
			Nodes: []client.GraphNode{
				{ID: "cell", Name: "Cell"},
				{ID: "membrane", Name: "Membrane"},
				{ID: "atp", Name: "ATP"},
				{ID: "osmosis", Name: "Osmosis"},
			},
			Links: []client.GraphLink{
				{Source: "cell", Target: "membrane", Label: "enclosed by"},
				{Source: "cell", Target: "atp", Label: "produces"},
				{Source: "membrane", Target: "atp"},
			},
		})

		out, err := run("--document", "d1")
		Expect(err).NotTo(HaveOccurred())

		Expect(out).To(ContainSubstring("(4 concepts, 3 links)"))
		Expect(out).To(ContainSubstring("→ Membrane enclosed by"))
		Expect(out).To(ContainSubstring("→ ATP produces"))
		Expect(out).To(ContainSubstring("Unlinked concepts"))
		Expect(out).To(ContainSubstring("Osmosis"))
		Expect(strings.Index(out, "Cell")).To(BeNumerically("<", strings.Index(out, "Membrane (")))
	})

	It("says when nothing is mapped", func() {
		out, err := run("--document", "d1")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("No concepts mapped for this document yet."))
	})

	It("prints raw JSON", func() {
		backend.SetGraph(client.Graph{
			Nodes: []client.GraphNode{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
			Links: []client.GraphLink{{Source: "a", Target: "b", Label: "is"}},
		})

		out, err := run("--document", "d1", "--json")
		Expect(err).NotTo(HaveOccurred())

		var g client.Graph
		Expect(json.Unmarshal([]byte(out), &g)).To(Succeed())
		Expect(g.Nodes).To(HaveLen(2))
		Expect(g.Links[0].Label).To(Equal("is"))
	})

	It("reports unknown documents", func() {
		_, err := run("--document", "nope")
		Expect(client.IsNotFound(err)).To(BeTrue())
	})
})
