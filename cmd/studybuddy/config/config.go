// Package configcmder provides the config command for managing persistent
// studybuddy configuration stored in the .studybuddy/ directory.
package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/studybuddy/pkg/cliui"
	"github.com/papercomputeco/studybuddy/pkg/config"
)

const configLongDesc string = `Manage persistent studybuddy configuration.

Configuration is stored as config.toml in the .studybuddy/ directory and
provides default values for command flags. CLI flags and STUDYBUDDY_*
environment variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  client.api_url, client.timeout_seconds,
  chat.persona, chat.web_search, upload.max_mb,
  storage.sqlite_path, storage.postgres_dsn,
  events.kafka_brokers, events.kafka_topic,
  serve.listen, auth.google_client_id, ui.theme

Use subcommands to get, set, or list configuration values:
  studybuddy config set <key> <value>    Set a configuration value
  studybuddy config get <key>            Get a configuration value
  studybuddy config list                 List all configuration values

Examples:
  studybuddy config set client.api_url https://study.example.com/api
  studybuddy config set chat.persona socratic
  studybuddy config get chat.persona
  studybuddy config list`

const configShortDesc string = "Manage persistent studybuddy configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

func completeKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func checkKey(key string) error {
	if !config.IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
			key, strings.Join(config.ValidConfigKeys(), ", "))
	}
	return nil
}

func printTarget(w io.Writer, cfger *config.Configer) {
	if target := cfger.GetTarget(); target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
		return
	}
	fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
}
