// Package docscmder provides the docs command for managing uploaded PDFs.
package docscmder

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/studybuddy/cmd/studybuddy/cmdenv"
	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/config"
	"github.com/papercomputeco/studybuddy/pkg/utils"
)

const docsLongDesc string = `Manage the PDFs you study with.

Uploaded documents are processed by the backend before they can be used
in chat, quizzes and knowledge maps. Upload, reprocess and watch follow
each document until processing finishes.

Use subcommands to manage documents:
  studybuddy docs list                  List documents
  studybuddy docs show <id>             Show one document
  studybuddy docs upload <files...>     Upload PDFs
  studybuddy docs delete <id>           Delete a document
  studybuddy docs reprocess <id>        Restart processing
  studybuddy docs download <id>         Download the original PDF
  studybuddy docs watch <dir>           Upload PDFs dropped into a directory`

const docsShortDesc string = "Manage uploaded documents"

func NewDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "docs",
		Aliases: []string{"documents"},
		Short:   docsShortDesc,
		Long:    docsLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newDeleteCmd())
	cmd.AddCommand(newReprocessCmd())
	cmd.AddCommand(newDownloadCmd())
	cmd.AddCommand(newWatchCmd())

	return cmd
}

// clientFlags are the backend flags every docs subcommand accepts.
type clientFlags struct {
	apiURL      string
	maxUploadMB uint
}

func (f *clientFlags) register(cmd *cobra.Command) {
	config.AddStringFlag(cmd, config.StudyFlags, config.FlagAPIURL, &f.apiURL)
	config.AddUintFlag(cmd, config.StudyFlags, config.FlagMaxUploadMB, &f.maxUploadMB)
}

// signedIn loads the environment and requires a stored session.
func signedIn(cmd *cobra.Command) (*cmdenv.Env, error) {
	env, err := cmdenv.Load(cmd, config.FlagAPIURL, config.FlagMaxUploadMB)
	if err != nil {
		return nil, err
	}
	if err := env.RequireAuth(); err != nil {
		return nil, err
	}
	return env, nil
}

func printDocument(w io.Writer, d client.Document) {
	pages := "-"
	if d.TotalPages > 0 {
		pages = strconv.Itoa(d.TotalPages)
	}

	fmt.Fprintf(w, "  %s  %s  %s  %s\n",
		cliui.IDStyle.Render(d.ID),
		cliui.StatusStyle(string(d.Status)).Render(fmt.Sprintf("%-10s", d.Status)),
		cliui.DimStyle.Render(fmt.Sprintf("%4s pp", pages)),
		cliui.NameStyle.Render(utils.Truncate(d.Filename, 60)),
	)
}
