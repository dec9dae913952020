// Package healthcmder provides the health command for probing the Study Buddy
// backend.
package healthcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/studybuddy/cmd/studybuddy/cmdenv"
	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/config"
	"github.com/papercomputeco/studybuddy/pkg/health"
)

const healthLongDesc string = `Check whether the Study Buddy backend is reachable.

Without --watch the backend is probed once and the command fails when it is
down. With --watch it keeps probing on an interval and prints a line each
time the backend goes down or comes back, until interrupted.

Examples:
  studybuddy health
  studybuddy health --watch --interval 10s`

const healthShortDesc string = "Check the backend is reachable"

// ErrBackendDown is returned by a one-shot check against an unreachable
// backend.
var ErrBackendDown = errors.New("backend is unreachable")

type healthCommander struct {
	apiURL   string
	watch    bool
	interval time.Duration
}

func NewHealthCmd() *cobra.Command {
	cmder := &healthCommander{}

	cmd := &cobra.Command{
		Use:   "health",
		Short: healthShortDesc,
		Long:  healthLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.StudyFlags, config.FlagAPIURL, &cmder.apiURL)
	cmd.Flags().BoolVar(&cmder.watch, "watch", false, "Keep checking until interrupted")
	cmd.Flags().DurationVar(&cmder.interval, "interval", health.DefaultInterval, "Time between checks with --watch")

	return cmd
}

func (c *healthCommander) run(cmd *cobra.Command) error {
	if c.interval <= 0 {
		return fmt.Errorf("--interval must be positive")
	}

	env, err := cmdenv.Load(cmd, config.FlagAPIURL)
	if err != nil {
		return err
	}

	monitor := health.NewMonitor(env.Client,
		health.WithInterval(c.interval),
		health.WithLogger(env.Logger),
	)
	w := cmd.OutOrStdout()
	url := env.Client.BaseURL()

	if !c.watch {
		status := monitor.Check(cmd.Context())
		printStatus(w, url, status)
		if status.Down {
			return ErrBackendDown
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return watch(ctx, w, url, monitor)
}

// watch prints the first status and every change after it until ctx is done.
func watch(ctx context.Context, w io.Writer, url string, monitor *health.Monitor) error {
	var (
		mu      sync.Mutex
		printed bool
		last    bool
	)
	unsubscribe := monitor.Subscribe(func(s health.Status) {
		mu.Lock()
		defer mu.Unlock()
		if printed && s.Down == last {
			return
		}
		printed, last = true, s.Down
		printStatus(w, url, s)
	})
	defer unsubscribe()

	fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("Watching "+url+", press Ctrl+C to stop."))
	monitor.Run(ctx)
	fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("Stopped watching."))
	return nil
}

func printStatus(w io.Writer, url string, s health.Status) {
	at := cliui.DimStyle.Render(s.CheckedAt.Format(time.TimeOnly))
	if s.Down {
		fmt.Fprintf(w, "  %s %s Backend unreachable at %s: %v\n", at, cliui.FailMark, url, s.Err)
		return
	}
	fmt.Fprintf(w, "  %s %s Backend healthy at %s\n", at, cliui.SuccessMark, url)
}
