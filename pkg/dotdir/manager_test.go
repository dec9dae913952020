package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/studybuddy/pkg/dotdir"
)

var _ = Describe("dotdir", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())

		// Resolve symlinks so paths match filepath.Abs results
		// (e.g. on macOS /var -> /private/var).
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		m = dotdir.NewManager()
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("Target", func() {
		It("creates the directory if it doesn't exist", func() {
			dir := filepath.Join(tmpDir, "newdir")
			result, err := m.Target(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(dir))

			info, err := os.Stat(dir)
			Expect(err).NotTo(HaveOccurred())
			Expect(info.IsDir()).To(BeTrue())
		})

		It("returns the override dir even when a local .studybuddy dir exists", func() {
			Expect(os.Mkdir(filepath.Join(tmpDir, ".studybuddy"), 0o755)).To(Succeed())

			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(tmpDir)).To(Succeed())
			DeferCleanup(func() { os.Chdir(origDir) })

			overrideDir := filepath.Join(tmpDir, "override")
			result, err := m.Target(overrideDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(overrideDir))
		})

		It("returns the local .studybuddy dir when it exists and no override is provided", func() {
			local := filepath.Join(tmpDir, ".studybuddy")
			Expect(os.Mkdir(local, 0o755)).To(Succeed())

			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(tmpDir)).To(Succeed())
			DeferCleanup(func() { os.Chdir(origDir) })

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(local))
		})

		It("falls back to a created ~/.studybuddy dir", func() {
			emptyDir := filepath.Join(tmpDir, "empty")
			Expect(os.Mkdir(emptyDir, 0o755)).To(Succeed())

			origDir, err := os.Getwd()
			Expect(err).NotTo(HaveOccurred())
			Expect(os.Chdir(emptyDir)).To(Succeed())
			DeferCleanup(func() { os.Chdir(origDir) })

			origHome := os.Getenv("HOME")
			Expect(os.Setenv("HOME", emptyDir)).To(Succeed())
			DeferCleanup(func() { os.Setenv("HOME", origHome) })

			result, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal(filepath.Join(emptyDir, ".studybuddy")))
		})
	})

	Describe("active chat", func() {
		It("returns nil when nothing has been saved", func() {
			active, err := m.LoadActiveChat(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(BeNil())
		})

		It("saves and loads the active chat", func() {
			err := m.SaveActiveChat(&dotdir.ActiveChat{SessionID: "s-1", DocumentID: "doc-7", Persona: "socratic"}, tmpDir)
			Expect(err).NotTo(HaveOccurred())

			info, err := os.Stat(filepath.Join(tmpDir, "active.json"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

			active, err := m.LoadActiveChat(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(Equal(&dotdir.ActiveChat{SessionID: "s-1", DocumentID: "doc-7", Persona: "socratic"}))
		})

		It("returns error for nil state", func() {
			Expect(m.SaveActiveChat(nil, tmpDir)).NotTo(Succeed())
		})

		It("returns error for invalid JSON", func() {
			Expect(os.WriteFile(filepath.Join(tmpDir, "active.json"), []byte("{"), 0o600)).To(Succeed())

			active, err := m.LoadActiveChat(tmpDir)
			Expect(err).To(HaveOccurred())
			Expect(active).To(BeNil())
		})

		It("clears the active chat and tolerates a missing file", func() {
			Expect(m.SaveActiveChat(&dotdir.ActiveChat{SessionID: "gone"}, tmpDir)).To(Succeed())
			Expect(m.ClearActiveChat(tmpDir)).To(Succeed())
			Expect(m.ClearActiveChat(tmpDir)).To(Succeed())

			active, err := m.LoadActiveChat(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(BeNil())
		})
	})
})
