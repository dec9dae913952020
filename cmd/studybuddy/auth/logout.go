package authcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/studybuddy/pkg/authstore"
	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/dotdir"
)

const logoutLongDesc string = `Sign out of Study Buddy.

Removes the stored backend session and forgets the active chat so the next
sign-in starts fresh.

Examples:
  studybuddy logout`

const logoutShortDesc string = "Sign out"

func NewLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: logoutShortDesc,
		Long:  logoutLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			mgr, err := authstore.NewManager(configDir)
			if err != nil {
				return err
			}
			if err := mgr.Logout(); err != nil {
				return err
			}
			if err := dotdir.NewManager().ClearActiveChat(configDir); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Signed out.\n\n", cliui.SuccessMark)
			return nil
		},
	}

	return cmd
}
