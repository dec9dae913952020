// Package statuscmder provides the status command for displaying the backend,
// sign-in and active chat state of the local .studybuddy directory.
package statuscmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/studybuddy/cmd/studybuddy/cmdenv"
	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/config"
	"github.com/papercomputeco/studybuddy/pkg/dotdir"
	transcriptfactory "github.com/papercomputeco/studybuddy/pkg/transcript/factory"
)

const statusLongDesc string = `Show the current Study Buddy state.

Reports whether the backend is reachable, who is signed in, where transcripts
are archived and which chat 'studybuddy chat' will resume.

Examples:
  studybuddy status`

const statusShortDesc string = "Show backend, sign-in and active chat state"

func NewStatusCmd() *cobra.Command {
	var apiURL string

	cmd := &cobra.Command{
		Use:   "status",
		Short: statusShortDesc,
		Long:  statusLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd)
		},
	}

	config.AddStringFlag(cmd, config.StudyFlags, config.FlagAPIURL, &apiURL)

	return cmd
}

func runStatus(cmd *cobra.Command) error {
	env, err := cmdenv.Load(cmd, config.FlagAPIURL)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)

	backend := cliui.SuccessMark + " " + cliui.ValueStyle.Render(env.Client.BaseURL())
	if _, err := env.Client.Health(ctx); err != nil {
		backend = cliui.FailMark + " " + cliui.ValueStyle.Render(env.Client.BaseURL()) + " " + cliui.DimStyle.Render("(unreachable)")
	}
	row(w, "Backend:", backend)

	auth := env.Auth.Current()
	switch {
	case !auth.Authenticated():
		row(w, "Signed in:", cliui.DimStyle.Render("no, run 'studybuddy login'"))
	case auth.User != nil:
		row(w, "Signed in:", cliui.NameStyle.Render(auth.User.FullName)+" "+cliui.DimStyle.Render("<"+auth.User.Email+">"))
	default:
		row(w, "Signed in:", cliui.SuccessMark)
	}

	row(w, "Config:", cliui.ValueStyle.Render(env.Dir))
	row(w, "Archive:", cliui.ValueStyle.Render(archiveLabel(env.Config.Storage, env.Dir)))
	row(w, "Events:", cliui.ValueStyle.Render(eventsLabel(env.Config.Events)))

	active, err := dotdir.NewManager().LoadActiveChat(env.ConfigDir)
	if err != nil {
		return fmt.Errorf("loading active chat: %w", err)
	}

	fmt.Fprintln(w)
	if active == nil {
		fmt.Fprintf(w, "  %s No active chat. Next chat will start a new conversation.\n\n", cliui.DimStyle.Render("●"))
		return nil
	}

	session := active.SessionID
	if session == "" {
		session = cliui.DimStyle.Render("(not started)")
	} else {
		session = cliui.IDStyle.Render(session)
	}
	row(w, "Active chat:", session)

	document := cliui.DimStyle.Render("general chat")
	if active.DocumentID != "" {
		document = cliui.IDStyle.Render(active.DocumentID)
		if auth.Authenticated() {
			if doc, err := env.Client.GetDocument(ctx, active.DocumentID); err == nil {
				document = cliui.NameStyle.Render(doc.Filename) + " " + cliui.StatusStyle(string(doc.Status)).Render(string(doc.Status))
			} else if client.IsNotFound(err) {
				document += " " + cliui.WarnStyle.Render("(deleted)")
			}
		}
	}
	row(w, "Document:", document)
	row(w, "Persona:", cliui.ValueStyle.Render(client.PersonaName(client.EffectivePersona(active.DocumentID, active.Persona))))

	fmt.Fprintln(w)
	return nil
}

func row(w io.Writer, key, value string) {
	fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render(fmt.Sprintf("%-12s", key)), value)
}

func archiveLabel(s config.StorageConfig, dir string) string {
	switch {
	case s.PostgresDSN != "":
		return "postgres"
	case s.SQLitePath != "":
		return "sqlite " + transcriptfactory.ResolveSQLitePath(s.SQLitePath, dir)
	default:
		return "in-memory"
	}
}

func eventsLabel(e config.EventsConfig) string {
	brokers := e.Brokers()
	if len(brokers) == 0 {
		return "off"
	}
	return "kafka " + strings.Join(brokers, ",") + " topic " + e.KafkaTopic
}
