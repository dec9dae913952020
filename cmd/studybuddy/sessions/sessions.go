// Package sessionscmder provides the sessions command for browsing chat
// sessions stored on the backend.
package sessionscmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/studybuddy/cmd/studybuddy/cmdenv"
	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/config"
	"github.com/papercomputeco/studybuddy/pkg/utils"
)

const sessionsLongDesc string = `List the chat sessions stored on the backend.

Sessions are kept per document. Without --document the general chats are
listed. Continue one with "studybuddy chat --session <id>".

Examples:
  studybuddy sessions --document 3f2a...
  studybuddy sessions show <id>`

const sessionsShortDesc string = "List chat sessions"

type sessionsCommander struct {
	apiURL     string
	documentID string
}

func NewSessionsCmd() *cobra.Command {
	cmder := &sessionsCommander{}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: sessionsShortDesc,
		Long:  sessionsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.list(cmd)
		},
	}

	config.AddStringFlag(cmd, config.StudyFlags, config.FlagAPIURL, &cmder.apiURL)
	cmd.Flags().StringVarP(&cmder.documentID, "document", "D", "", "Document whose sessions to list")

	cmd.AddCommand(newShowCmd())

	return cmd
}

func (c *sessionsCommander) list(cmd *cobra.Command) error {
	env, err := cmdenv.Load(cmd, config.FlagAPIURL)
	if err != nil {
		return err
	}
	if err := env.RequireAuth(); err != nil {
		return err
	}

	sessions, err := env.Client.ListSessions(cmd.Context(), c.documentID)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintf(w, "  %s No chat sessions yet.\n", cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Fprintf(w, "\n  %s\n\n", cliui.HeaderStyle.Render("Sessions"))
	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(w, "  %s  %s  %s  %s\n",
			cliui.IDStyle.Render(s.ID),
			cliui.DimStyle.Render(s.UpdatedAt.Local().Format("2006-01-02 15:04")),
			cliui.ValueStyle.Render(fmt.Sprintf("%-18s", client.PersonaName(s.Persona))),
			cliui.NameStyle.Render(utils.Truncate(title, 50)),
		)
	}
	fmt.Fprintln(w)
	return nil
}
