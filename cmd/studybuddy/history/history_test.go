package historycmder_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	historycmder "github.com/papercomputeco/studybuddy/cmd/studybuddy/history"
	"github.com/papercomputeco/studybuddy/pkg/transcript/sqlite"
	testutils "github.com/papercomputeco/studybuddy/pkg/utils/test"
)

var _ = Describe("History command", func() {
	var (
		tmpDir  string
		origDir string
		dbPath  string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "studybuddy-history-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		Expect(os.MkdirAll(filepath.Join(tmpDir, ".studybuddy"), 0o755)).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		dbPath = filepath.Join(tmpDir, "transcripts.db")
		driver, err := sqlite.NewDriver(context.Background(), dbPath)
		Expect(err).NotTo(HaveOccurred())

		base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		photo := testutils.NewTestTurn("s1", "How does photosynthesis use light?", base)
		photo.Reply = "Chlorophyll absorbs light energy."
		Expect(driver.Put(context.Background(), photo)).To(Succeed())
		Expect(driver.Put(context.Background(), testutils.NewTestTurn("s1", "What is chlorophyll?", base.Add(time.Minute)))).To(Succeed())

		other := testutils.NewTestTurn("s2", "Who was Napoleon?", base.Add(time.Hour))
		other.DocumentID = "doc-2"
		Expect(driver.Put(context.Background(), other)).To(Succeed())

		Expect(driver.Close()).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	run := func(args ...string) (string, error) {
		var out bytes.Buffer
		cmd := historycmder.NewHistoryCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append([]string{"--sqlite", dbPath}, args...))
		err := cmd.Execute()
		return out.String(), err
	}

	It("lists archived turns without signing in", func() {
		out, err := run()
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("How does photosynthesis use light?"))
		Expect(out).To(ContainSubstring("Chlorophyll absorbs light energy."))
		Expect(out).To(ContainSubstring("Who was Napoleon?"))
		Expect(out).To(ContainSubstring("Sources: p. 1"))
	})

	It("filters by document and limit", func() {
		out, err := run("--document", "doc-2")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Napoleon"))
		Expect(out).NotTo(ContainSubstring("chlorophyll"))

		out, err = run("--limit", "1")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Napoleon"))
		Expect(out).NotTo(ContainSubstring("photosynthesis"))
	})

	It("filters by session", func() {
		out, err := run("--session", "s1")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("What is chlorophyll?"))
		Expect(out).NotTo(ContainSubstring("Napoleon"))
	})

	It("rejects a negative limit", func() {
		_, err := run("--limit", "-1")
		Expect(err).To(MatchError("--limit must not be negative"))
	})

	It("summarizes sessions", func() {
		out, err := run("--sessions")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("s1"))
		Expect(out).To(ContainSubstring("2 turns"))
		Expect(out).To(ContainSubstring("1 turns"))
	})

	It("searches questions and answers", func() {
		out, err := run("--search", "light")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring(`Search Results for: "light"`))
		Expect(out).To(ContainSubstring(">>> How does photosynthesis use light?"))
		Expect(out).NotTo(ContainSubstring("Napoleon"))
	})

	It("reports an empty search", func() {
		out, err := run("--search", "quantum")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("No results found."))
	})

	It("reports an empty archive", func() {
		empty := filepath.Join(tmpDir, "empty.db")
		var out bytes.Buffer
		cmd := historycmder.NewHistoryCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--sqlite", empty})
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("No archived turns."))
	})

	It("explains how to keep history when no archive is configured", func() {
		var out bytes.Buffer
		cmd := historycmder.NewHistoryCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{})
		Expect(cmd.Execute()).To(Succeed())

		Expect(out.String()).To(ContainSubstring("No archived turns."))
		Expect(out.String()).To(ContainSubstring("turns are not kept between runs"))
		Expect(out.String()).To(ContainSubstring("storage.sqlite_path"))
	})

	It("does not hint when an archive is configured", func() {
		out, err := run("--search", "quantum")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).NotTo(ContainSubstring("not kept between runs"))
	})
})

