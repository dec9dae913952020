package docscmder

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/ingest"
)

const watchLongDesc string = `Watch a directory and upload every PDF that lands in it.

A file is uploaded once it has stopped changing for the settle delay, so
copies in progress are not sent half-written. Uploaded documents are
followed until processing finishes. Runs until interrupted.

Examples:
  studybuddy docs watch ~/Downloads/lectures
  studybuddy docs watch . --settle 5s`

type watchCommander struct {
	clientFlags
	workers uint
	settle  time.Duration
	poll    time.Duration
}

func newWatchCmd() *cobra.Command {
	cmder := &watchCommander{}

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Upload PDFs dropped into a directory",
		Long:  watchLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmder.register(cmd)
	cmd.Flags().UintVar(&cmder.workers, "workers", 2, "Number of parallel uploads")
	cmd.Flags().DurationVar(&cmder.settle, "settle", ingest.DefaultSettleDelay, "How long a file must stay unchanged before upload")
	cmd.Flags().DurationVar(&cmder.poll, "poll", ingest.DefaultPollInterval, "How often to check processing status")

	return cmd
}

func (c *watchCommander) run(cmd *cobra.Command, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	env, err := signedIn(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := &syncWriter{w: cmd.OutOrStdout()}

	rec, _, closeRec, err := env.Recorder(ctx)
	if err != nil {
		return err
	}
	defer closeRec()

	tracker := newTracker(ctx, env, w, rec, c.poll)

	pool, err := ingest.NewPool(&ingest.Config{
		Uploader:   env.Client,
		NumWorkers: c.workers,
		Logger:     env.Logger,
		OnResult: func(r ingest.Result) {
			name := filepath.Base(r.Path)
			if r.Err != nil {
				fmt.Fprintf(w, "  %s %s: %s\n", cliui.FailMark, name, r.Err)
				return
			}
			fmt.Fprintf(w, "  %s Uploaded %s %s\n", cliui.SuccessMark, cliui.NameStyle.Render(name), cliui.IDStyle.Render(r.Document.ID))
			tracker.Track(*r.Document)
		},
	})
	if err != nil {
		return err
	}

	gate := &closingEnqueuer{pool: pool}
	defer gate.Close()

	watcher := ingest.NewWatcher(dir, gate,
		ingest.WithSettleDelay(c.settle),
		ingest.WithWatcherLogger(env.Logger),
	)

	errChan := make(chan error, 1)
	go func() {
		errChan <- watcher.Run(ctx)
	}()

	fmt.Fprintf(w, "  %s Watching %s for PDFs (Ctrl+C to stop)\n", cliui.SuccessMark, cliui.ValueStyle.Render(dir))

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		select {
		case err := <-errChan:
			return err
		case <-ctx.Done():
			<-errChan
			fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("Stopped watching."))
			return nil
		case <-ticker.C:
			if !tracker.Pending() {
				continue
			}
			if _, err := tracker.Poll(ctx); err != nil && ctx.Err() == nil {
				env.Logger.Warn("polling documents failed", "error", err)
			}
		}
	}
}

// closingEnqueuer drops jobs once closed so a late settle timer cannot
// enqueue into a closed pool.
type closingEnqueuer struct {
	mu     sync.Mutex
	pool   *ingest.Pool
	closed bool
}

func (e *closingEnqueuer) Enqueue(job ingest.Job) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	return e.pool.Enqueue(job)
}

// Close stops accepting jobs and drains the pool.
func (e *closingEnqueuer) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.pool.Close()
}

// syncWriter serializes writes from the upload workers and the tracker.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
