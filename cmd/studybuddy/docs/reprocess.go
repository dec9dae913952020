package docscmder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/ingest"
)

type reprocessCommander struct {
	clientFlags
	noWait bool
	poll   time.Duration
}

func newReprocessCmd() *cobra.Command {
	cmder := &reprocessCommander{}

	cmd := &cobra.Command{
		Use:   "reprocess <id>",
		Short: "Restart processing for a document",
		Long:  "Reset a failed or stuck document to pending and process it again.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmder.register(cmd)
	cmd.Flags().BoolVar(&cmder.noWait, "no-wait", false, "Return without waiting for processing")
	cmd.Flags().DurationVar(&cmder.poll, "poll", ingest.DefaultPollInterval, "How often to check processing status")

	return cmd
}

func (c *reprocessCommander) run(cmd *cobra.Command, id string) error {
	env, err := signedIn(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	w := cmd.OutOrStdout()
	doc, err := env.Client.ReprocessDocument(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  %s Reprocessing %s\n", cliui.SuccessMark, cliui.NameStyle.Render(doc.Filename))

	if c.noWait {
		return nil
	}

	err = follow(ctx, env, w, c.poll, *doc)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
