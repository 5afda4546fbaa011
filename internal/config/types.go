package config

import "github.com/fieldnotes/relay/internal/model"

// Config represents the persistent relay configuration stored as
// config.toml in the .relay/ directory. The TOML layout uses sections for
// logical grouping: app, backend, ui.
type Config struct {
	Version int          `toml:"version"           mapstructure:"version"`
	App     AppConfig    `toml:"app"                mapstructure:"app"`
	Backend BackendConfig `toml:"backend"            mapstructure:"backend"`
	UI      UIConfig     `toml:"ui"                 mapstructure:"ui"`
}

// AppConfig holds window/shell presentation settings.
type AppConfig struct {
	WindowTitle string `toml:"window_title,omitempty" mapstructure:"window_title"`
	Width       int    `toml:"width,omitempty"         mapstructure:"width"`
	Height      int    `toml:"height,omitempty"        mapstructure:"height"`
}

// ConnectionMode selects between the fixed local endpoint and a named
// remote endpoint.
type ConnectionMode string

const (
	ModeLocal  ConnectionMode = "local"
	ModeRemote ConnectionMode = "remote"
)

// BackendConfig holds everything the connection manager and backend client
// need: the primary/ollama URLs, timeout, saved URL history, the remote
// endpoint set, and which mode/endpoint is active.
type BackendConfig struct {
	URL                     string                  `toml:"url,omitempty"                       mapstructure:"url"`
	OllamaURL               string                  `toml:"ollama_url,omitempty"                 mapstructure:"ollama_url"`
	TimeoutSeconds          int                     `toml:"timeout_seconds,omitempty"            mapstructure:"timeout_seconds"`
	SavedURLs               []string                `toml:"saved_urls"                           mapstructure:"saved_urls"`
	RemoteEndpoints         []model.RemoteEndpoint  `toml:"remote_endpoints"                     mapstructure:"remote_endpoints"`
	ConnectionMode          ConnectionMode          `toml:"connection_mode,omitempty"            mapstructure:"connection_mode"`
	ActiveRemoteEndpointID  string                  `toml:"active_remote_endpoint_id,omitempty"  mapstructure:"active_remote_endpoint_id"`
}

// UIConfig holds cosmetic settings that the shells read but the core does
// not interpret.
type UIConfig struct {
	FontSize       int    `toml:"font_size,omitempty"        mapstructure:"font_size"`
	MaxChatHistory int    `toml:"max_chat_history,omitempty" mapstructure:"max_chat_history"`
	Theme          string `toml:"theme,omitempty"            mapstructure:"theme"`
}

// SavedURLCapacity bounds how many entries backend.saved_urls retains; the
// oldest entry is dropped once a new one would exceed the cap.
const SavedURLCapacity = 10

// validConfigKeys is the authoritative set of all supported dotted config
// keys, used by `relay config get/set/list`.
var validConfigKeys = map[string]bool{
	"app.window_title":              true,
	"app.width":                     true,
	"app.height":                    true,
	"backend.url":                   true,
	"backend.ollama_url":            true,
	"backend.timeout_seconds":       true,
	"backend.connection_mode":       true,
	"backend.active_remote_endpoint_id": true,
	"ui.font_size":                  true,
	"ui.max_chat_history":           true,
	"ui.theme":                      true,
}

// IsValidConfigKey returns true if key is a supported, settable config key.
// Slice-valued fields (saved_urls, remote_endpoints) are managed through
// their own operations, not generic get/set.
func IsValidConfigKey(key string) bool {
	return validConfigKeys[key]
}

// ValidConfigKeys returns the list of all supported configuration key
// names in TOML-section order (not alphabetical).
func ValidConfigKeys() []string {
	ordered := []string{
		"app.window_title", "app.width", "app.height",
		"backend.url", "backend.ollama_url", "backend.timeout_seconds",
		"backend.connection_mode", "backend.active_remote_endpoint_id",
		"ui.font_size", "ui.max_chat_history", "ui.theme",
	}
	result := make([]string, 0, len(ordered))
	for _, k := range ordered {
		if validConfigKeys[k] {
			result = append(result, k)
		}
	}
	return result
}
