package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/fieldnotes/relay/internal/appdir"
)

// InitViper creates and returns a configured *viper.Viper. It sets defaults
// from NewDefaultConfig(), reads config.toml (if found via appdir
// resolution), and binds environment variables with the RELAY_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound by the caller)
//  2. Environment variables (RELAY_BACKEND_URL, RELAY_UI_THEME, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	adm := appdir.NewManager()
	target, err := adm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}
	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation, keeping defaults.go the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	v.SetDefault("app.window_title", d.App.WindowTitle)
	v.SetDefault("app.width", d.App.Width)
	v.SetDefault("app.height", d.App.Height)

	v.SetDefault("backend.url", d.Backend.URL)
	v.SetDefault("backend.ollama_url", d.Backend.OllamaURL)
	v.SetDefault("backend.timeout_seconds", d.Backend.TimeoutSeconds)
	v.SetDefault("backend.saved_urls", d.Backend.SavedURLs)
	v.SetDefault("backend.remote_endpoints", d.Backend.RemoteEndpoints)
	v.SetDefault("backend.connection_mode", d.Backend.ConnectionMode)
	v.SetDefault("backend.active_remote_endpoint_id", d.Backend.ActiveRemoteEndpointID)

	v.SetDefault("ui.font_size", d.UI.FontSize)
	v.SetDefault("ui.max_chat_history", d.UI.MaxChatHistory)
	v.SetDefault("ui.theme", d.UI.Theme)
}
