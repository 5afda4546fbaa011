package config

const (
	defaultWindowTitle = "relay"
	defaultWidth       = 1024
	defaultHeight      = 768

	// LocalBackendURL is the fixed localhost endpoint used in Local mode.
	LocalBackendURL = "http://localhost:11434"

	defaultTimeoutSeconds = 120

	defaultFontSize       = 14
	defaultMaxChatHistory = 200
	defaultTheme          = "dark"

	// v0 is the only config schema version relay currently supports.
	v0 = 0

	// CurrentV is the currently supported version.
	CurrentV = v0
)

// NewDefaultConfig returns a Config with sane defaults for every field.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		App: AppConfig{
			WindowTitle: defaultWindowTitle,
			Width:       defaultWidth,
			Height:      defaultHeight,
		},
		Backend: BackendConfig{
			URL:            LocalBackendURL,
			OllamaURL:      LocalBackendURL,
			TimeoutSeconds: defaultTimeoutSeconds,
			SavedURLs:      []string{},
			ConnectionMode: ModeLocal,
		},
		UI: UIConfig{
			FontSize:       defaultFontSize,
			MaxChatHistory: defaultMaxChatHistory,
			Theme:          defaultTheme,
		},
	}
}
