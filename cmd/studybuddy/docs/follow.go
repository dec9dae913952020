package docscmder

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/papercomputeco/studybuddy/cmd/studybuddy/cmdenv"
	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/ingest"
	"github.com/papercomputeco/studybuddy/pkg/study"
)

// newTracker builds a tracker that prints every transition and records it
// through rec.
func newTracker(ctx context.Context, env *cmdenv.Env, w io.Writer, rec *study.Recorder, interval time.Duration) *ingest.Tracker {
	return ingest.NewTracker(env.Client,
		ingest.WithPollInterval(interval),
		ingest.WithTrackerLogger(env.Logger),
		ingest.OnTransition(func(t ingest.Transition) {
			var mark string
			if t.Success() {
				mark = cliui.SuccessMark
			} else {
				mark = cliui.FailMark
			}
			fmt.Fprintf(w, "  %s %s\n", mark, t.Message())

			rec.RecordTransition(ctx, t.Document.ID, t.Document.Filename, string(t.From), t.To())
		}),
	)
}

// follow waits until every document in docs leaves the in-flight states.
func follow(ctx context.Context, env *cmdenv.Env, w io.Writer, interval time.Duration, docs ...client.Document) error {
	rec, _, closeRec, err := env.Recorder(ctx)
	if err != nil {
		return err
	}
	defer closeRec()

	tracker := newTracker(ctx, env, w, rec, interval)
	tracker.Track(docs...)
	if !tracker.Pending() {
		return nil
	}

	fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("Waiting for processing to finish (Ctrl+C to stop waiting)..."))
	return tracker.Run(ctx)
}
