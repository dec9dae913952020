package docscmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/client"
)

const listLongDesc string = `List your documents, newest first.

Examples:
  studybuddy docs list
  studybuddy docs list --status ready`

type listCommander struct {
	clientFlags
	status string
}

func newListCmd() *cobra.Command {
	cmder := &listCommander{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List documents",
		Long:    listLongDesc,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmder.register(cmd)
	cmd.Flags().StringVar(&cmder.status, "status", "", "Only show documents with this status (pending, processing, ready, failed, needs_ocr)")

	return cmd
}

func (c *listCommander) run(cmd *cobra.Command) error {
	env, err := signedIn(cmd)
	if err != nil {
		return err
	}

	docs, err := env.Client.ListDocuments(cmd.Context())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	shown := 0
	for _, d := range docs {
		if c.status != "" && d.Status != client.DocumentStatus(c.status) {
			continue
		}
		if shown == 0 {
			fmt.Fprintf(w, "\n  %s\n\n", cliui.HeaderStyle.Render("Documents"))
		}
		printDocument(w, d)
		shown++
	}

	if shown == 0 {
		fmt.Fprintf(w, "  %s No documents. Upload one with 'studybuddy docs upload <file.pdf>'.\n", cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Fprintln(w)
	return nil
}
