package config

const (
	defaultAPIURL         = "http://localhost:8000/api"
	defaultTimeoutSeconds = 30

	defaultPersona = "default"

	defaultUploadMaxMB = 10

	defaultKafkaTopic = "studybuddy.events"

	defaultServeListen = "127.0.0.1:8765"

	defaultTheme = "system"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			APIURL:         defaultAPIURL,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Chat: ChatConfig{
			Persona: defaultPersona,
		},
		Upload: UploadConfig{
			MaxMB: defaultUploadMaxMB,
		},
		Events: EventsConfig{
			KafkaTopic: defaultKafkaTopic,
		},
		Serve: ServeConfig{
			Listen: defaultServeListen,
		},
		UI: UIConfig{
			Theme: defaultTheme,
		},
	}
}
