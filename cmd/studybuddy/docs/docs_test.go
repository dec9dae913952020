package docscmder_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/studybuddy/cmd/studybuddy/cmdenv"
	docscmder "github.com/papercomputeco/studybuddy/cmd/studybuddy/docs"
	"github.com/papercomputeco/studybuddy/pkg/authstore"
	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/dotdir"
	testutils "github.com/papercomputeco/studybuddy/pkg/utils/test"
)

const pdfBody = "%PDF-1.4\n%study buddy test\n"

var _ = Describe("Docs command", func() {
	var (
		tmpDir  string
		origDir string
		backend *testutils.FakeBackend
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "studybuddy-docs-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		Expect(os.MkdirAll(filepath.Join(tmpDir, ".studybuddy"), 0o755)).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		backend = testutils.NewFakeBackend()

		mgr, err := authstore.NewManager("")
		Expect(err).NotTo(HaveOccurred())
		Expect(mgr.SetToken("jwt", &authstore.User{Email: "ada@example.com", FullName: "Ada"})).To(Succeed())
	})

	AfterEach(func() {
		backend.Close()
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	runWith := func(ctx context.Context, in string, args ...string) (string, error) {
		var out bytes.Buffer
		cmd := docscmder.NewDocsCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetIn(strings.NewReader(in))
		cmd.SetArgs(append(args, "--api-url", backend.APIURL()))
		err := cmd.ExecuteContext(ctx)
		return out.String(), err
	}

	run := func(args ...string) (string, error) {
		return runWith(context.Background(), "", args...)
	}

	writePDF := func(name string) string {
		p := filepath.Join(tmpDir, name)
		Expect(os.WriteFile(p, []byte(pdfBody), 0o644)).To(Succeed())
		return p
	}

	Describe("list", func() {
		It("requires a signed-in user", func() {
			mgr, err := authstore.NewManager("")
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.Logout()).To(Succeed())

			_, err = run("list")
			Expect(err).To(MatchError(cmdenv.ErrNotSignedIn))
		})

		It("prints a hint when there are no documents", func() {
			out, err := run("list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("No documents"))
		})

		It("lists documents and filters by status", func() {
			backend.AddDocument(client.Document{ID: "d1", Filename: "biology.pdf", Status: client.StatusReady, TotalPages: 12}, nil)
			backend.AddDocument(client.Document{ID: "d2", Filename: "history.pdf", Status: client.StatusProcessing}, nil)

			out, err := run("list")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("biology.pdf"))
			Expect(out).To(ContainSubstring("history.pdf"))
			Expect(out).To(ContainSubstring("12 pp"))

			out, err = run("list", "--status", "ready")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("biology.pdf"))
			Expect(out).NotTo(ContainSubstring("history.pdf"))
		})
	})

	Describe("show", func() {
		It("prints the document details", func() {
			backend.AddDocument(client.Document{ID: "d1", Filename: "biology.pdf", Status: client.StatusReady, TotalPages: 12, TotalChunks: 40}, nil)

			out, err := run("show", "d1")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("biology.pdf"))
			Expect(out).To(ContainSubstring("40"))
			Expect(out).To(ContainSubstring("studybuddy chat --document d1"))
		})

		It("fails for an unknown document", func() {
			_, err := run("show", "missing")
			Expect(err).To(HaveOccurred())
			Expect(client.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("upload", func() {
		It("rejects invalid files before uploading anything", func() {
			txt := filepath.Join(tmpDir, "notes.txt")
			Expect(os.WriteFile(txt, []byte("plain text"), 0o644)).To(Succeed())
			fake := filepath.Join(tmpDir, "fake.pdf")
			Expect(os.WriteFile(fake, []byte("not a pdf at all"), 0o644)).To(Succeed())

			out, err := run("upload", txt, fake)
			Expect(err).To(MatchError("2 of 2 uploads failed"))
			Expect(out).To(ContainSubstring("only PDF files are supported"))
			Expect(out).To(ContainSubstring("does not look like a PDF"))
			Expect(backend.Documents()).To(BeEmpty())
		})

		It("uploads valid files and skips invalid ones", func() {
			good := writePDF("lecture.pdf")
			bad := filepath.Join(tmpDir, "slides.pptx")
			Expect(os.WriteFile(bad, []byte("pptx"), 0o644)).To(Succeed())

			out, err := run("upload", "--no-wait", good, bad)
			Expect(err).To(MatchError("1 of 2 uploads failed"))
			Expect(out).To(ContainSubstring("Uploaded lecture.pdf"))

			docs := backend.Documents()
			Expect(docs).To(HaveLen(1))
			Expect(docs[0].Filename).To(Equal("lecture.pdf"))
		})

		It("waits for processing to finish", func() {
			good := writePDF("lecture.pdf")

			go func() {
				defer GinkgoRecover()
				deadline := time.Now().Add(5 * time.Second)
				for time.Now().Before(deadline) {
					if docs := backend.Documents(); len(docs) == 1 {
						backend.SetStatus(docs[0].ID, client.StatusReady)
						return
					}
					time.Sleep(5 * time.Millisecond)
				}
			}()

			out, err := run("upload", "--poll", "10ms", good)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring(`"lecture.pdf" is ready to study!`))
		})

		It("enforces the configured size limit", func() {
			big := filepath.Join(tmpDir, "big.pdf")
			Expect(os.WriteFile(big, append([]byte(pdfBody), make([]byte, 2<<20)...), 0o644)).To(Succeed())

			out, err := run("upload", "--max-upload-mb", "1", big)
			Expect(err).To(HaveOccurred())
			Expect(out).To(ContainSubstring("limit is"))
			Expect(backend.Documents()).To(BeEmpty())
		})
	})

	Describe("delete", func() {
		BeforeEach(func() {
			backend.AddDocument(client.Document{ID: "d1", Filename: "biology.pdf", Status: client.StatusReady}, nil)
		})

		It("keeps the document when not confirmed", func() {
			out, err := runWith(context.Background(), "n\n", "delete", "d1")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Cancelled."))
			Expect(backend.Documents()).To(HaveLen(1))
		})

		It("deletes after confirmation", func() {
			out, err := runWith(context.Background(), "y\n", "delete", "d1")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Document biology.pdf deleted successfully"))
			Expect(backend.Documents()).To(BeEmpty())
		})

		It("forgets the active chat about the deleted document", func() {
			dm := dotdir.NewManager()
			Expect(dm.SaveActiveChat(&dotdir.ActiveChat{SessionID: "s1", DocumentID: "d1"}, "")).To(Succeed())

			_, err := run("delete", "--yes", "d1")
			Expect(err).NotTo(HaveOccurred())

			active, err := dm.LoadActiveChat("")
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(BeNil())
		})

		It("keeps an active chat about another document", func() {
			dm := dotdir.NewManager()
			Expect(dm.SaveActiveChat(&dotdir.ActiveChat{SessionID: "s1", DocumentID: "other"}, "")).To(Succeed())

			_, err := run("delete", "--yes", "d1")
			Expect(err).NotTo(HaveOccurred())

			active, err := dm.LoadActiveChat("")
			Expect(err).NotTo(HaveOccurred())
			Expect(active).NotTo(BeNil())
			Expect(active.DocumentID).To(Equal("other"))
		})
	})

	Describe("reprocess", func() {
		It("resets the document to pending", func() {
			backend.AddDocument(client.Document{ID: "d1", Filename: "biology.pdf", Status: client.StatusFailed}, nil)

			out, err := run("reprocess", "--no-wait", "d1")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Reprocessing biology.pdf"))
			Expect(backend.Documents()[0].Status).To(Equal(client.StatusPending))
		})
	})

	Describe("download", func() {
		BeforeEach(func() {
			backend.AddDocument(client.Document{ID: "d1", Filename: "biology.pdf", Status: client.StatusReady}, []byte(pdfBody))
		})

		It("saves under the uploaded filename", func() {
			out, err := run("download", "d1")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(ContainSubstring("Saved"))

			data, err := os.ReadFile(filepath.Join(tmpDir, "biology.pdf"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal(pdfBody))
		})

		It("refuses to overwrite without --force", func() {
			target := filepath.Join(tmpDir, "copy.pdf")
			Expect(os.WriteFile(target, []byte("keep"), 0o644)).To(Succeed())

			_, err := run("download", "d1", "-o", target)
			Expect(err).To(MatchError(ContainSubstring("already exists")))

			data, err := os.ReadFile(target)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal("keep"))

			_, err = run("download", "d1", "-o", target, "--force")
			Expect(err).NotTo(HaveOccurred())
			data, err = os.ReadFile(target)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(Equal(pdfBody))
		})
	})

	Describe("watch", func() {
		It("rejects a path that is not a directory", func() {
			p := writePDF("single.pdf")

			_, err := run("watch", p)
			Expect(err).To(MatchError(ContainSubstring("is not a directory")))
		})

		It("uploads PDFs that appear in the directory", func() {
			inbox := filepath.Join(tmpDir, "inbox")
			Expect(os.Mkdir(inbox, 0o755)).To(Succeed())

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			type outcome struct {
				out string
				err error
			}
			done := make(chan outcome, 1)
			go func() {
				out, err := runWith(ctx, "", "watch", inbox, "--settle", "20ms", "--poll", "20ms")
				done <- outcome{out, err}
			}()

			time.Sleep(300 * time.Millisecond)
			Expect(os.WriteFile(filepath.Join(inbox, "dropped.pdf"), []byte(pdfBody), 0o644)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(inbox, "ignored.txt"), []byte("x"), 0o644)).To(Succeed())

			Eventually(backend.Documents, 5*time.Second, 20*time.Millisecond).Should(HaveLen(1))
			cancel()

			var res outcome
			Eventually(done, 5*time.Second).Should(Receive(&res))
			Expect(res.err).NotTo(HaveOccurred())
			Expect(res.out).To(ContainSubstring("Uploaded dropped.pdf"))
			Expect(res.out).To(ContainSubstring("Stopped watching."))
			Expect(backend.Documents()[0].Filename).To(Equal("dropped.pdf"))
		})
	})
})
