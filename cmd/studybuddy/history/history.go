// Package historycmder provides the history command for reviewing the local
// transcript archive.
package historycmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/studybuddy/api/search"
	"github.com/papercomputeco/studybuddy/cmd/studybuddy/cmdenv"
	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/config"
	"github.com/papercomputeco/studybuddy/pkg/transcript"
	"github.com/papercomputeco/studybuddy/pkg/transcript/inmemory"
	"github.com/papercomputeco/studybuddy/pkg/utils"
)

const historyLongDesc string = `Review tutor answers archived on this machine.

Every finished chat turn is archived locally, so past answers can be read
without the backend. Without storage.sqlite_path or storage.postgres_dsn
the archive only lives for the run of a single command, so nothing is kept
between runs. 'studybuddy init --preset local' configures a SQLite archive
in the .studybuddy directory.

Examples:
  studybuddy history
  studybuddy history --sessions
  studybuddy history --document 3f2a... --limit 5
  studybuddy history --search "photosynthesis light"`

const historyShortDesc string = "Review archived tutor answers"

type historyCommander struct {
	sqlitePath  string
	postgresDSN string

	sessionID  string
	documentID string
	limit      int
	query      string
	topK       int
	sessions   bool
}

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.StudyFlags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.StudyFlags, config.FlagPostgresDSN, &cmder.postgresDSN)
	cmd.Flags().StringVar(&cmder.sessionID, "session", "", "Only show turns from this chat session")
	cmd.Flags().StringVarP(&cmder.documentID, "document", "D", "", "Only show turns about this document")
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 20, "Maximum number of turns to show (0 for all)")
	cmd.Flags().StringVarP(&cmder.query, "search", "q", "", "Keyword search over questions and answers")
	cmd.Flags().IntVarP(&cmder.topK, "top-k", "k", search.DefaultTopK, "Number of search results")
	cmd.Flags().BoolVar(&cmder.sessions, "sessions", false, "Summarize archived sessions instead of listing turns")

	cmd.MarkFlagsMutuallyExclusive("search", "sessions")

	return cmd
}

func (c *historyCommander) run(cmd *cobra.Command) error {
	if c.limit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}

	env, err := cmdenv.Load(cmd, config.FlagSQLite, config.FlagPostgresDSN)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	archive, err := env.OpenArchive(ctx)
	if err != nil {
		return err
	}
	defer archive.Close()

	w := cmd.OutOrStdout()

	var empty bool
	switch {
	case c.query != "":
		out, err := search.NewSearcher(ctx, archive, env.Logger).InDocument(c.documentID).Search(c.query, c.topK)
		if err != nil {
			return err
		}
		printSearch(w, out)
		empty = out.Count == 0

	case c.sessions:
		summaries, err := archive.Sessions(ctx)
		if err != nil {
			return err
		}
		printSessions(w, summaries)
		empty = len(summaries) == 0

	default:
		turns, err := archive.List(ctx, transcript.Filter{
			SessionID:  c.sessionID,
			DocumentID: c.documentID,
			Limit:      c.limit,
		})
		if err != nil {
			return err
		}
		printTurns(w, turns)
		empty = len(turns) == 0
	}

	if _, ephemeral := archive.(*inmemory.Driver); empty && ephemeral {
		printEphemeralHint(w)
	}
	return nil
}

// printEphemeralHint explains why an unconfigured archive is always empty.
func printEphemeralHint(w io.Writer) {
	fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render(
		"No archive is configured, so turns are not kept between runs."))
	fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render(
		"Run 'studybuddy config set storage.sqlite_path transcripts.db' or 'studybuddy init --preset local' to keep them."))
}

func printTurns(w io.Writer, turns []*transcript.Turn) {
	if len(turns) == 0 {
		fmt.Fprintln(w, "No archived turns.")
		return
	}

	fmt.Fprintf(w, "\n  %s\n\n", cliui.HeaderStyle.Render("History"))
	for _, t := range turns {
		mark := cliui.SuccessMark
		if t.Failed {
			mark = cliui.FailMark
		}
		fmt.Fprintf(w, "  %s %s  %s  %s\n",
			mark,
			cliui.DimStyle.Render(t.CompletedAt.Local().Format("2006-01-02 15:04")),
			cliui.ValueStyle.Render(client.PersonaName(t.Persona)),
			cliui.IDStyle.Render(t.SessionID),
		)
		fmt.Fprintf(w, "    %s %s\n", cliui.RoleStyle.Render("Q:"), oneLine(t.Question, 100))
		fmt.Fprintf(w, "    %s %s\n", cliui.RoleStyle.Render("A:"), cliui.PreviewStyle.Render(oneLine(t.Reply, 100)))
		if pages := cliui.FormatCitations(t.Citations); pages != "" {
			fmt.Fprintf(w, "    %s\n", cliui.DimStyle.Render("Sources: "+pages))
		}
		fmt.Fprintln(w)
	}
}

func printSessions(w io.Writer, summaries []transcript.SessionSummary) {
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No archived sessions.")
		return
	}

	fmt.Fprintf(w, "\n  %s\n\n", cliui.HeaderStyle.Render("Archived sessions"))
	for _, s := range summaries {
		fmt.Fprintf(w, "  %s  %s  %s  %s\n",
			cliui.IDStyle.Render(s.SessionID),
			cliui.DimStyle.Render(s.LastAt.Local().Format("2006-01-02 15:04")),
			cliui.ValueStyle.Render(fmt.Sprintf("%d turns", s.Turns)),
			oneLine(s.FirstQuestion, 60),
		)
	}
	fmt.Fprintln(w)
}

func printSearch(w io.Writer, out *search.SearchOutput) {
	if out.Count == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "\n%s %s\n\n",
		cliui.HeaderStyle.Render("Search Results for:"),
		cliui.IDStyle.Render(fmt.Sprintf("%q", out.Query)),
	)

	for i, r := range out.Results {
		fmt.Fprintf(w, "  %s  %s  %s\n",
			cliui.HeaderStyle.Render(fmt.Sprintf("#%d", i+1)),
			cliui.DimStyle.Render(fmt.Sprintf("score: %d", r.Score)),
			cliui.IDStyle.Render(r.SessionID),
		)
		fmt.Fprintf(w, "  %s\n", cliui.PreviewStyle.Render(oneLine(r.Preview, 80)))
		fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render(fmt.Sprintf("%d turns", r.Turns)))

		for _, t := range r.Branch {
			text := oneLine(t.Question, 60)
			if t.Matched {
				fmt.Fprintf(w, "  %s %s\n", cliui.HeaderStyle.Render(">>>"), cliui.PreviewStyle.Render(text))
			} else {
				fmt.Fprintf(w, "  %s %s\n", cliui.DimStyle.Render(" ├─"), cliui.DimStyle.Render(text))
			}
		}
		fmt.Fprintln(w)
	}
}

func oneLine(s string, n int) string {
	return utils.Truncate(strings.Join(strings.Fields(s), " "), n)
}
