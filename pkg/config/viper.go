package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/studybuddy/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the STUDYBUDDY_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (STUDYBUDDY_CLIENT_API_URL, STUDYBUDDY_CHAT_PERSONA, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: STUDYBUDDY_CLIENT_API_URL, STUDYBUDDY_STORAGE_SQLITE_PATH, etc.
	v.SetEnvPrefix("STUDYBUDDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("client.api_url", d.Client.APIURL)
	v.SetDefault("client.timeout_seconds", d.Client.TimeoutSeconds)

	v.SetDefault("chat.persona", d.Chat.Persona)
	v.SetDefault("chat.web_search", d.Chat.WebSearch)

	v.SetDefault("upload.max_mb", d.Upload.MaxMB)

	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	v.SetDefault("events.kafka_brokers", d.Events.KafkaBrokers)
	v.SetDefault("events.kafka_topic", d.Events.KafkaTopic)

	v.SetDefault("serve.listen", d.Serve.Listen)

	v.SetDefault("auth.google_client_id", d.Auth.GoogleClientID)

	v.SetDefault("ui.theme", d.UI.Theme)
}

// FromViper materializes the resolved settings held by v into a Config so
// callers can work with typed fields after flags, env, and file are merged.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Client: ClientConfig{
			APIURL:         v.GetString("client.api_url"),
			TimeoutSeconds: v.GetUint("client.timeout_seconds"),
		},
		Chat: ChatConfig{
			Persona:   v.GetString("chat.persona"),
			WebSearch: v.GetBool("chat.web_search"),
		},
		Upload: UploadConfig{
			MaxMB: v.GetUint("upload.max_mb"),
		},
		Storage: StorageConfig{
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		Events: EventsConfig{
			KafkaBrokers: v.GetString("events.kafka_brokers"),
			KafkaTopic:   v.GetString("events.kafka_topic"),
		},
		Serve: ServeConfig{
			Listen: v.GetString("serve.listen"),
		},
		Auth: AuthConfig{
			GoogleClientID: v.GetString("auth.google_client_id"),
		},
		UI: UIConfig{
			Theme: v.GetString("ui.theme"),
		},
	}
}
