// Package themecmder provides the theme command for switching between light
// and dark terminal rendering.
package themecmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/studybuddy/cmd/studybuddy/cmdenv"
	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/client"
	"github.com/papercomputeco/studybuddy/pkg/config"
	"github.com/papercomputeco/studybuddy/pkg/theme"
)

const themeLongDesc string = `Show or change the theme used to render tutor replies.

The preference is one of light, dark or system. System follows the
terminal background. The choice is saved to config.toml and, when signed
in, to your Study Buddy profile so the web app picks it up too.

Examples:
  studybuddy theme
  studybuddy theme dark`

const themeShortDesc string = "Show or change the theme"

type themeCommander struct {
	apiURL string
}

func NewThemeCmd() *cobra.Command {
	cmder := &themeCommander{}

	cmd := &cobra.Command{
		Use:       "theme [light|dark|system]",
		Short:     themeShortDesc,
		Long:      themeLongDesc,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: client.Themes,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := cmdenv.Load(cmd, config.FlagAPIURL)
			if err != nil {
				return err
			}

			cfger, err := config.NewConfiger(env.ConfigDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			mgr := theme.NewManager(env.Auth, env.Client, func(p theme.Preference) error {
				return cfger.SetConfigValue("ui.theme", string(p))
			}, env.Logger)

			if len(args) == 0 {
				return cmder.show(cmd, mgr, theme.Preference(env.Config.UI.Theme))
			}
			return cmder.apply(cmd, mgr, args[0])
		},
	}

	config.AddStringFlag(cmd, config.StudyFlags, config.FlagAPIURL, &cmder.apiURL)

	return cmd
}

func (c *themeCommander) show(cmd *cobra.Command, mgr *theme.Manager, fallback theme.Preference) error {
	current := mgr.Current(fallback)
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "\n  %s %s\n", cliui.KeyStyle.Render("Theme:    "), cliui.NameStyle.Render(string(current)))
	if current == theme.System {
		fmt.Fprintf(w, "  %s %s\n", cliui.KeyStyle.Render("Effective:"), cliui.ValueStyle.Render(string(theme.Effective(current))))
	}
	fmt.Fprintln(w)
	return nil
}

func (c *themeCommander) apply(cmd *cobra.Command, mgr *theme.Manager, value string) error {
	p, err := theme.Parse(value)
	if err != nil {
		return err
	}
	if err := mgr.Apply(cmd.Context(), p); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n  %s Theme set to %s\n\n", cliui.SuccessMark, cliui.NameStyle.Render(string(p)))
	return nil
}
