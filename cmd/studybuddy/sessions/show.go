package sessionscmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/studybuddy/cmd/studybuddy/cmdenv"
	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/config"
)

func newShowCmd() *cobra.Command {
	var apiURL string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the messages of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdenv.Load(cmd, config.FlagAPIURL)
			if err != nil {
				return err
			}
			if err := env.RequireAuth(); err != nil {
				return err
			}

			msgs, err := env.Client.SessionMessages(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "\n  %s %s\n\n", cliui.KeyStyle.Render("Session:"), cliui.IDStyle.Render(args[0]))
			if len(msgs) == 0 {
				fmt.Fprintf(w, "  %s\n\n", cliui.DimStyle.Render("(no messages)"))
				return nil
			}

			for _, m := range msgs {
				role := cliui.RoleStyle.Render("[" + string(m.Role) + "]")
				fmt.Fprintf(w, "  %s %s\n", role, m.Content)
				if m.Role == client.RoleAssistant {
					if pages := cliui.FormatCitations(m.Citations); pages != "" {
						fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("Sources: "+pages))
					}
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}

	config.AddStringFlag(cmd, config.StudyFlags, config.FlagAPIURL, &apiURL)

	return cmd
}
