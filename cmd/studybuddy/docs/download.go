package docscmder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/studybuddy/pkg/cliui"
)

type downloadCommander struct {
	clientFlags
	output string
	force  bool
}

func newDownloadCmd() *cobra.Command {
	cmder := &downloadCommander{}

	cmd := &cobra.Command{
		Use:   "download <id>",
		Short: "Download the original PDF",
		Long:  "Download a document's original PDF. By default it is saved under its uploaded filename in the current directory.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmder.register(cmd)
	cmd.Flags().StringVarP(&cmder.output, "output", "o", "", "File to write the PDF to")
	cmd.Flags().BoolVarP(&cmder.force, "force", "f", false, "Overwrite an existing file")

	return cmd
}

func (c *downloadCommander) run(cmd *cobra.Command, id string) error {
	env, err := signedIn(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	target := c.output
	if target == "" {
		doc, err := env.Client.GetDocument(ctx, id)
		if err != nil {
			return err
		}
		target = filepath.Base(doc.Filename)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !c.force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(target, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s already exists, use --force to overwrite", target)
		}
		return fmt.Errorf("creating %s: %w", target, err)
	}

	var n int64
	err = cliui.Step(w, "Downloading "+filepath.Base(target), func() error {
		var derr error
		n, derr = env.Client.DownloadDocument(ctx, id, f)
		return derr
	})
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		os.Remove(target)
		return err
	}

	fmt.Fprintf(w, "  %s %s\n", cliui.DimStyle.Render("Saved"), cliui.ValueStyle.Render(fmt.Sprintf("%s (%d bytes)", target, n)))
	return nil
}
