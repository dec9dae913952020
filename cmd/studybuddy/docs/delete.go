package docscmder

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/dotdir"
)

const deleteLongDesc string = `Delete a document together with its chunks, sessions and quizzes.

You are asked to confirm unless --yes is given. Deleting the document of
the active chat also forgets that chat.`

type deleteCommander struct {
	clientFlags
	yes bool
}

func newDeleteCmd() *cobra.Command {
	cmder := &deleteCommander{}

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a document",
		Long:    deleteLongDesc,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmder.register(cmd)
	cmd.Flags().BoolVarP(&cmder.yes, "yes", "y", false, "Delete without asking")

	return cmd
}

func (c *deleteCommander) run(cmd *cobra.Command, id string) error {
	env, err := signedIn(cmd)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()

	doc, err := env.Client.GetDocument(cmd.Context(), id)
	if err != nil {
		return err
	}

	if !c.yes {
		fmt.Fprintf(w, "  Delete %s and everything studied from it? [y/N] ", cliui.NameStyle.Render(doc.Filename))
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		answer = strings.ToLower(strings.TrimSpace(answer))
		if answer != "y" && answer != "yes" {
			fmt.Fprintf(w, "  %s\n", cliui.DimStyle.Render("Cancelled."))
			return nil
		}
	}

	msg, err := env.Client.DeleteDocument(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "  %s %s\n", cliui.SuccessMark, msg)

	dm := dotdir.NewManager()
	active, err := dm.LoadActiveChat(env.ConfigDir)
	if err != nil {
		env.Logger.Warn("could not read active chat", "error", err)
		return nil
	}
	if active != nil && active.DocumentID == id {
		if err := dm.ClearActiveChat(env.ConfigDir); err != nil {
			env.Logger.Warn("could not clear active chat", "error", err)
		}
	}

	return nil
}
