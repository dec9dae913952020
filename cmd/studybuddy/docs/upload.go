package docscmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/ingest"
)

const uploadLongDesc string = `Upload one or more PDFs.

Every file is checked locally before anything is sent: it must have a .pdf
extension, look like a PDF and fit within the upload limit. Valid files are
uploaded in parallel and then followed until the backend has processed them.

Examples:
  studybuddy docs upload lecture-1.pdf lecture-2.pdf
  studybuddy docs upload --no-wait notes/*.pdf`

type uploadCommander struct {
	clientFlags
	workers uint
	noWait  bool
	poll    time.Duration
}

func newUploadCmd() *cobra.Command {
	cmder := &uploadCommander{}

	cmd := &cobra.Command{
		Use:   "upload <files...>",
		Short: "Upload PDFs",
		Long:  uploadLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args)
		},
	}

	cmder.register(cmd)
	cmd.Flags().UintVar(&cmder.workers, "workers", 2, "Number of parallel uploads")
	cmd.Flags().BoolVar(&cmder.noWait, "no-wait", false, "Return once uploaded without waiting for processing")
	cmd.Flags().DurationVar(&cmder.poll, "poll", ingest.DefaultPollInterval, "How often to check processing status")

	return cmd
}

func (c *uploadCommander) run(cmd *cobra.Command, paths []string) error {
	env, err := signedIn(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	w := cmd.OutOrStdout()
	maxBytes := int64(env.Config.Upload.MaxMB) << 20

	var valid []string
	failed := 0
	for _, p := range paths {
		if err := client.ValidateUpload(p, maxBytes); err != nil {
			fmt.Fprintf(w, "  %s %s\n", cliui.FailMark, err)
			failed++
			continue
		}
		valid = append(valid, p)
	}

	var (
		mu       sync.Mutex
		uploaded []client.Document
	)
	pool, err := ingest.NewPool(&ingest.Config{
		Uploader:   env.Client,
		NumWorkers: c.workers,
		QueueSize:  uint(len(valid)) + 1,
		Logger:     env.Logger,
		OnResult: func(r ingest.Result) {
			mu.Lock()
			defer mu.Unlock()

			name := filepath.Base(r.Path)
			if r.Err != nil {
				fmt.Fprintf(w, "  %s %s: %s\n", cliui.FailMark, name, r.Err)
				failed++
				return
			}
			fmt.Fprintf(w, "  %s Uploaded %s %s\n", cliui.SuccessMark, cliui.NameStyle.Render(name), cliui.IDStyle.Render(r.Document.ID))
			uploaded = append(uploaded, *r.Document)
		},
	})
	if err != nil {
		return err
	}

	for _, p := range valid {
		pool.Enqueue(ingest.Job{Path: p})
	}
	pool.Close()

	if !c.noWait && len(uploaded) > 0 {
		if err := follow(ctx, env, w, c.poll, uploaded...); err != nil {
			if !errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("Stopped waiting. Check progress with 'studybuddy docs list'."))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(paths))
	}
	return nil
}
