// Package initcmder provides the init command for initializing a local
// .studybuddy directory in the current working directory.
package initcmder

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/config"
)

const (
	dirName    = ".studybuddy"
	configFile = "config.toml"
)

const initLongDesc string = `Initialize a new .studybuddy/ directory in the current working directory.

Creates a local .studybuddy/ directory that takes precedence over the default
~/.studybuddy/ directory for sign-in state, the transcript archive, the active
chat and configuration.

With --preset a config.toml is written for a common setup:
  local   archive transcripts to a SQLite file in .studybuddy/
  team    archive to PostgreSQL and publish study events to Kafka

Examples:
  studybuddy init
  studybuddy init --preset local`

const initShortDesc string = "Initialize a local .studybuddy/ directory"

type initCommander struct {
	preset string
	force  bool
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Write config.toml for a preset ("+strings.Join(config.ValidPresetNames(), ", ")+")")
	cmd.Flags().BoolVarP(&cmder.force, "force", "f", false, "Overwrite an existing config.toml")
	_ = cmd.RegisterFlagCompletionFunc("preset", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return config.ValidPresetNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func (c *initCommander) run(w io.Writer) error {
	var cfg *config.Config
	if c.preset != "" {
		var err error
		cfg, err = config.PresetConfig(c.preset)
		if err != nil {
			return err
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		fmt.Fprintf(w, "Already initialized: %s\n", dir)
	} else {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating .studybuddy directory: %w", err)
		}
		fmt.Fprintf(w, "Initialized .studybuddy directory: %s\n", dir)
	}

	if cfg == nil {
		return nil
	}

	path := filepath.Join(dir, configFile)
	if _, err := os.Stat(path); err == nil && !c.force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading config: %w", err)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(w, "  %s Wrote %s preset to %s\n", cliui.SuccessMark, cliui.NameStyle.Render(strings.ToLower(c.preset)), cliui.DimStyle.Render(path))
	return nil
}
