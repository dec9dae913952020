package healthcmder_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	healthcmder "github.com/papercomputeco/studybuddy/cmd/studybuddy/health"
	testutils "github.com/papercomputeco/studybuddy/pkg/utils/test"
)

// lockedBuffer lets the test read output while the command writes it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var _ = Describe("Health command", func() {
	var (
		tmpDir  string
		origDir string
		backend *testutils.FakeBackend
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "studybuddy-health-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		Expect(os.MkdirAll(filepath.Join(tmpDir, ".studybuddy"), 0o755)).To(Succeed())
		Expect(os.Chdir(tmpDir)).To(Succeed())

		backend = testutils.NewFakeBackend()
	})

	AfterEach(func() {
		backend.Close()
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	It("reports a healthy backend without signing in", func() {
		var out bytes.Buffer
		cmd := healthcmder.NewHealthCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--api-url", backend.APIURL()})

		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(ContainSubstring("Backend healthy"))
	})

	It("fails when the backend is down", func() {
		backend.SetDown(true)

		var out bytes.Buffer
		cmd := healthcmder.NewHealthCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--api-url", backend.APIURL()})

		Expect(cmd.Execute()).To(MatchError(healthcmder.ErrBackendDown))
		Expect(out.String()).To(ContainSubstring("Backend unreachable"))
	})

	It("rejects a non-positive interval", func() {
		cmd := healthcmder.NewHealthCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--api-url", backend.APIURL(), "--interval", "0s"})

		Expect(cmd.Execute()).To(MatchError(ContainSubstring("--interval must be positive")))
	})

	It("prints transitions while watching", func() {
		out := &lockedBuffer{}
		cmd := healthcmder.NewHealthCmd()
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"--api-url", backend.APIURL(), "--watch", "--interval", "20ms"})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- cmd.ExecuteContext(ctx) }()

		Eventually(out.String).Should(ContainSubstring("Backend healthy"))
		backend.SetDown(true)
		Eventually(out.String).Should(ContainSubstring("Backend unreachable"))
		backend.SetDown(false)
		Eventually(out.String, 2*time.Second).Should(MatchRegexp(`(?s)unreachable.*Backend healthy`))

		cancel()
		Eventually(done).Should(Receive(BeNil()))
		Expect(out.String()).To(ContainSubstring("Stopped watching."))
	})
})
