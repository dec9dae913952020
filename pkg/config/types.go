package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent studybuddy configuration stored as
// config.toml in the .studybuddy/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version int           `toml:"version"`
	Client  ClientConfig  `toml:"client"`
	Chat    ChatConfig    `toml:"chat"`
	Upload  UploadConfig  `toml:"upload"`
	Storage StorageConfig `toml:"storage"`
	Events  EventsConfig  `toml:"events"`
	Serve   ServeConfig   `toml:"serve"`
	Auth    AuthConfig    `toml:"auth"`
	UI      UIConfig      `toml:"ui"`
}

// ClientConfig holds settings for reaching the Study Buddy backend.
type ClientConfig struct {
	APIURL         string `toml:"api_url,omitempty"`
	TimeoutSeconds uint   `toml:"timeout_seconds,omitempty"`
}

// ChatConfig holds chat defaults.
type ChatConfig struct {
	Persona   string `toml:"persona,omitempty"`
	WebSearch bool   `toml:"web_search,omitempty"`
}

// UploadConfig holds upload validation limits.
type UploadConfig struct {
	MaxMB uint `toml:"max_mb,omitempty"`
}

// StorageConfig selects the local transcript archive. Postgres wins over
// SQLite when both are set; with neither, transcripts live in memory.
type StorageConfig struct {
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// EventsConfig configures study telemetry publishing.
type EventsConfig struct {
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string `toml:"kafka_topic,omitempty"`
}

// Brokers splits the comma separated broker list.
func (e EventsConfig) Brokers() []string {
	var out []string
	for _, b := range strings.Split(e.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// ServeConfig holds the companion server settings.
type ServeConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// AuthConfig holds sign-in settings.
type AuthConfig struct {
	GoogleClientID string `toml:"google_client_id,omitempty"`
}

// UIConfig holds terminal presentation settings.
type UIConfig struct {
	Theme string `toml:"theme,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func oneOfKey(name string, allowed []string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			for _, a := range allowed {
				if v == a {
					*field(c) = v
					return nil
				}
			}
			return fmt.Errorf("invalid value for %s: %q (must be one of %s)", name, v, strings.Join(allowed, ", "))
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.api_url": {
		get: func(c *Config) string { return c.Client.APIURL },
		set: func(c *Config, v string) error { c.Client.APIURL = v; return nil },
	},
	"client.timeout_seconds": uintKey("client.timeout_seconds", func(c *Config) *uint { return &c.Client.TimeoutSeconds }),
	"chat.persona": oneOfKey("chat.persona", personaKeys, func(c *Config) *string { return &c.Chat.Persona }),
	"chat.web_search": boolKey("chat.web_search", func(c *Config) *bool { return &c.Chat.WebSearch }),
	"upload.max_mb": uintKey("upload.max_mb", func(c *Config) *uint { return &c.Upload.MaxMB }),
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"events.kafka_brokers": {
		get: func(c *Config) string { return c.Events.KafkaBrokers },
		set: func(c *Config, v string) error { c.Events.KafkaBrokers = v; return nil },
	},
	"events.kafka_topic": {
		get: func(c *Config) string { return c.Events.KafkaTopic },
		set: func(c *Config, v string) error { c.Events.KafkaTopic = v; return nil },
	},
	"serve.listen": {
		get: func(c *Config) string { return c.Serve.Listen },
		set: func(c *Config, v string) error { c.Serve.Listen = v; return nil },
	},
	"auth.google_client_id": {
		get: func(c *Config) string { return c.Auth.GoogleClientID },
		set: func(c *Config, v string) error { c.Auth.GoogleClientID = v; return nil },
	},
	"ui.theme": oneOfKey("ui.theme", themeKeys, func(c *Config) *string { return &c.UI.Theme }),
}

// personaKeys mirrors the backend persona engine.
var personaKeys = []string{"default", "general", "eli5", "star_wars", "professor", "socratic"}

var themeKeys = []string{"light", "dark", "system"}
