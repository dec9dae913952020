package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --persona
// on both "studybuddy chat" and "studybuddy mcp").
type Flag struct {
	// Name is the long flag name (e.g. "api-url").
	Name string

	// Shorthand is the one-letter short flag (e.g. "u"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.api_url").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag, AddBoolFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagAPIURL       = "api-url"
	FlagTimeout      = "timeout"
	FlagPersona      = "persona"
	FlagWebSearch    = "web-search"
	FlagMaxUploadMB  = "max-upload-mb"
	FlagSQLite       = "sqlite"
	FlagPostgresDSN  = "postgres-dsn"
	FlagKafkaBrokers = "kafka-brokers"
	FlagKafkaTopic   = "kafka-topic"
	FlagListen       = "listen"
	FlagGoogleClient = "google-client-id"
)

// StudyFlags is the registry shared by every studybuddy command.
var StudyFlags = FlagSet{
	FlagAPIURL:       {Name: "api-url", Shorthand: "u", ViperKey: "client.api_url", Description: "Study Buddy backend API URL"},
	FlagTimeout:      {Name: "timeout", ViperKey: "client.timeout_seconds", Description: "Request timeout in seconds for non-streaming calls"},
	FlagPersona:      {Name: "persona", Shorthand: "p", ViperKey: "chat.persona", Description: "Tutor persona (default, general, eli5, star_wars, professor, socratic)"},
	FlagWebSearch:    {Name: "web-search", Shorthand: "w", ViperKey: "chat.web_search", Description: "Let the tutor search the web when answering"},
	FlagMaxUploadMB:  {Name: "max-upload-mb", ViperKey: "upload.max_mb", Description: "Largest PDF accepted for upload, in megabytes"},
	FlagSQLite:       {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite transcript archive (default: in-memory)"},
	FlagPostgresDSN:  {Name: "postgres-dsn", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string for the transcript archive"},
	FlagKafkaBrokers: {Name: "kafka-brokers", ViperKey: "events.kafka_brokers", Description: "Comma separated Kafka brokers for study events"},
	FlagKafkaTopic:   {Name: "kafka-topic", ViperKey: "events.kafka_topic", Description: "Kafka topic for study events"},
	FlagListen:       {Name: "listen", Shorthand: "l", ViperKey: "serve.listen", Description: "Address for the companion server to listen on"},
	FlagGoogleClient: {Name: "google-client-id", ViperKey: "auth.google_client_id", Description: "Google OAuth client id used for sign-in"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}
