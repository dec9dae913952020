package docscmder

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/studybuddy/pkg/cliui"
)

func newShowCmd() *cobra.Command {
	flags := &clientFlags{}

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one document",
		Long:  "Show a document's processing status and size.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := signedIn(cmd)
			if err != nil {
				return err
			}

			doc, err := env.Client.GetDocument(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "\n  %s %s\n", cliui.KeyStyle.Render("Document:"), cliui.NameStyle.Render(doc.Filename))
			fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("ID:      "), cliui.IDStyle.Render(doc.ID))
			fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Status:  "), cliui.StatusStyle(string(doc.Status)).Render(string(doc.Status)))
			fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Pages:   "), cliui.ValueStyle.Render(strconv.Itoa(doc.TotalPages)))
			fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Chunks:  "), cliui.ValueStyle.Render(strconv.Itoa(doc.TotalChunks)))
			if !doc.CreatedAt.IsZero() {
				fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Added:   "), cliui.ValueStyle.Render(doc.CreatedAt.Local().Format("2006-01-02 15:04")))
			}
			if doc.Status.Studyable() {
				fmt.Fprintf(w, "\n  %s\n", cliui.DimStyle.Render("Ask about it with 'studybuddy chat --document "+doc.ID+"'."))
			}
			fmt.Fprintln(w)
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}
