package authcmder_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	authcmder "github.com/papercomputeco/studybuddy/cmd/studybuddy/auth"
	"github.com/papercomputeco/studybuddy/pkg/authstore"
	"github.com/papercomputeco/studybuddy/pkg/dotdir"
	testutils "github.com/papercomputeco/studybuddy/pkg/utils/test"
)

var _ = Describe("Auth commands", func() {
	var (
		tmpDir  string
		origDir string
		dotDir  string
		backend *testutils.FakeBackend
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "studybuddy-auth-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// Create a local .studybuddy dir so the manager picks it up
		dotDir = filepath.Join(tmpDir, ".studybuddy")
		Expect(os.MkdirAll(dotDir, 0o755)).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		backend = testutils.NewFakeBackend()
	})

	AfterEach(func() {
		backend.Close()
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	loadState := func() authstore.State {
		mgr, err := authstore.NewManager("")
		Expect(err).NotTo(HaveOccurred())
		s, err := mgr.Load()
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	Describe("login", func() {
		It("exchanges a token passed by flag", func() {
			var out bytes.Buffer
			cmd := authcmder.NewLoginCmd()
			cmd.SetOut(&out)
			cmd.SetArgs([]string{"--api-url", backend.APIURL(), "--token", testutils.GoogleIDToken})

			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Ada Lovelace"))

			s := loadState()
			Expect(s.Token).To(Equal(testutils.BackendToken))
			Expect(s.User.Email).To(Equal("ada@example.com"))
			Expect(s.User.ThemePreference).To(Equal("dark"))
		})

		It("reads the token from stdin", func() {
			cmd := authcmder.NewLoginCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetIn(strings.NewReader(testutils.GoogleIDToken + "\n"))
			cmd.SetArgs([]string{"--api-url", backend.APIURL()})

			Expect(cmd.Execute()).To(Succeed())
			Expect(loadState().Authenticated()).To(BeTrue())
		})

		It("fails on a rejected token and stores nothing", func() {
			cmd := authcmder.NewLoginCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs([]string{"--api-url", backend.APIURL(), "--token", "forged"})

			err := cmd.Execute()
			Expect(err).To(MatchError(ContainSubstring("Invalid Google token")))
			Expect(loadState().Authenticated()).To(BeFalse())
		})

		It("requires a client id for browser sign-in", func() {
			cmd := authcmder.NewLoginCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs([]string{"--api-url", backend.APIURL(), "--browser"})

			Expect(cmd.Execute()).To(MatchError(ContainSubstring("auth.google_client_id")))
		})

		It("rejects --token together with --browser", func() {
			cmd := authcmder.NewLoginCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs([]string{"--token", "x", "--browser"})

			Expect(cmd.Execute()).To(HaveOccurred())
		})
	})

	Describe("whoami", func() {
		It("reports a signed out state", func() {
			var out bytes.Buffer
			cmd := authcmder.NewWhoamiCmd()
			cmd.SetOut(&out)
			cmd.SetArgs([]string{})

			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Not signed in"))
		})

		It("prints the stored user", func() {
			mgr, err := authstore.NewManager("")
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetToken("jwt", &authstore.User{Email: "grace@example.com", FullName: "Grace Hopper"})).To(Succeed())

			var out bytes.Buffer
			cmd := authcmder.NewWhoamiCmd()
			cmd.SetOut(&out)
			cmd.SetArgs([]string{})

			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Grace Hopper"))
			Expect(out.String()).To(ContainSubstring("grace@example.com"))
		})
	})

	Describe("logout", func() {
		It("clears the session and the active chat", func() {
			mgr, err := authstore.NewManager("")
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetToken("jwt", nil)).To(Succeed())

			dd := dotdir.NewManager()
			Expect(dd.SaveActiveChat(&dotdir.ActiveChat{SessionID: "s1"}, "")).To(Succeed())

			cmd := authcmder.NewLogoutCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetArgs([]string{})
			Expect(cmd.Execute()).To(Succeed())

			Expect(loadState().Authenticated()).To(BeFalse())
			active, err := dd.LoadActiveChat("")
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(BeNil())
		})
	})
})
