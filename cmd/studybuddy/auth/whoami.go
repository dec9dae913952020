package authcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/studybuddy/pkg/authstore"
	"github.com/papercomputeco/studybuddy/pkg/cliui"
)

const whoamiShortDesc string = "Show the signed-in user"

func NewWhoamiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: whoamiShortDesc,
		Long:  "Show the user stored by the last sign-in.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			mgr, err := authstore.NewManager(configDir)
			if err != nil {
				return err
			}
			s, err := mgr.Load()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if !s.Authenticated() {
				fmt.Fprintf(w, "  %s Not signed in. Run 'studybuddy login'.\n", cliui.DimStyle.Render("●"))
				return nil
			}

			fmt.Fprintln(w)
			if s.User != nil {
				fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Name: "), cliui.NameStyle.Render(s.User.FullName))
				fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Email:"), cliui.ValueStyle.Render(s.User.Email))
				if s.User.ThemePreference != "" {
					fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Theme:"), cliui.ValueStyle.Render(s.User.ThemePreference))
				}
			} else {
				fmt.Fprintf(w, "  %s Signed in.\n", cliui.SuccessMark)
			}
			fmt.Fprintln(w)
			return nil
		},
	}

	return cmd
}
