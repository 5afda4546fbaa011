package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"

	"github.com/fieldnotes/relay/internal/appdir"
	"github.com/fieldnotes/relay/internal/model"
	"github.com/fieldnotes/relay/internal/validate"
)

const configFile = "config.toml"

// Configer loads and saves config.toml in a resolved .relay/ directory.
type Configer struct {
	adm        *appdir.Manager
	targetPath string
}

// NewConfiger resolves the .relay/ directory (honoring override) and
// prepares to read/write config.toml inside it.
func NewConfiger(override string) (*Configer, error) {
	c := &Configer{adm: appdir.NewManager()}

	target, err := c.adm.Target(override)
	if err != nil {
		return nil, err
	}
	c.targetPath = filepath.Join(target, configFile)

	return c, nil
}

// GetTarget returns the resolved path to config.toml.
func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig reads config.toml, merges it over NewDefaultConfig()'s values,
// and returns the result. A missing file yields the defaults untouched.
func (c *Configer) LoadConfig() (*Config, error) {
	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setViperDefaults(v)
	v.SetConfigType("toml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("reading config into viper: %w", err)
	}

	merged := &Config{}
	if err := v.Unmarshal(merged); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	merged.Version = cfg.Version

	return merged, nil
}

// SaveConfig persists cfg to config.toml with owner-only permissions.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	// os.WriteFile only applies the mode argument when creating a new file;
	// an existing config.toml keeps whatever mode it already had.
	if err := os.Chmod(c.targetPath, 0o600); err != nil {
		return fmt.Errorf("restricting config permissions: %w", err)
	}
	if err := c.VerifyPermissions(); err != nil {
		return err
	}

	return nil
}

// ParseConfigTOML parses raw TOML bytes into a Config, rejecting an
// unsupported schema version.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}

// SetConfigValue loads the config, sets key to value (with type coercion
// via viper), and saves it back. Rejects unknown keys up front.
func (c *Configer) SetConfigValue(key, value string) error {
	if !IsValidConfigKey(key) {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	v := viper.New()
	setViperDefaults(v)
	v.SetConfigType("toml")
	if data, err := os.ReadFile(c.targetPath); err == nil {
		_ = v.ReadConfig(bytes.NewReader(data))
	}
	v.Set(key, value)

	updated := &Config{}
	if err := v.Unmarshal(updated); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	updated.Version = cfg.Version
	updated.Backend.SavedURLs = cfg.Backend.SavedURLs
	updated.Backend.RemoteEndpoints = cfg.Backend.RemoteEndpoints

	return c.SaveConfig(updated)
}

// GetConfigValue returns the string representation of key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	if !IsValidConfigKey(key) {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	v := viper.New()
	setViperDefaults(v)
	v.SetConfigType("toml")
	if data, err := os.ReadFile(c.targetPath); err == nil {
		_ = v.ReadConfig(bytes.NewReader(data))
	}

	return v.GetString(key), nil
}

// AddSavedURL records url at the front of the saved-URL history, removing
// any existing occurrence first, and trimming the list to SavedURLCapacity
// by dropping the oldest entries. Invalid URLs are rejected; localhost URLs
// are accepted but not stored, since LocalBackendURL always covers them.
func AddSavedURL(saved []string, url string) ([]string, error) {
	u, verr := validate.ValidateBackendURL(url)
	if verr != nil {
		return saved, verr
	}
	if validate.ClassifyLocalhost(u.Hostname()) {
		return saved, nil
	}

	deduped := make([]string, 0, len(saved)+1)
	deduped = append(deduped, url)
	for _, existing := range saved {
		if existing != url {
			deduped = append(deduped, existing)
		}
	}

	if len(deduped) > SavedURLCapacity {
		deduped = deduped[:SavedURLCapacity]
	}
	return deduped, nil
}

// MigrationReport summarizes what a migration pass changed.
type MigrationReport struct {
	BackupPath       string
	RewrittenURL     bool
	RewrittenOllama  bool
	DroppedSavedURLs []string
	SynthesizedEndpoint *model.RemoteEndpoint
}

// MigrateConfig rewrites insecure http:// remote URLs to https://, drops
// saved URLs that no longer validate, and synthesizes a RemoteEndpoint from
// a pre-existing non-localhost ollama_url when the remote endpoint set is
// still empty (first run against a config predating endpoint support). It
// writes a timestamped backup of the pre-migration file before saving.
func (c *Configer) MigrateConfig(now time.Time) (*MigrationReport, error) {
	cfg, err := c.LoadConfig()
	if err != nil {
		return nil, err
	}

	report := &MigrationReport{}

	if rewritten := maybeRewriteToHTTPS(cfg.Backend.URL); rewritten != cfg.Backend.URL {
		cfg.Backend.URL = rewritten
		report.RewrittenURL = true
	}
	if rewritten := maybeRewriteToHTTPS(cfg.Backend.OllamaURL); rewritten != cfg.Backend.OllamaURL {
		cfg.Backend.OllamaURL = rewritten
		report.RewrittenOllama = true
	}

	var kept []string
	for _, u := range cfg.Backend.SavedURLs {
		rewritten := maybeRewriteToHTTPS(u)
		if _, verr := validate.ValidateBackendURL(rewritten); verr != nil {
			report.DroppedSavedURLs = append(report.DroppedSavedURLs, u)
			continue
		}
		kept = append(kept, rewritten)
	}
	cfg.Backend.SavedURLs = kept

	if len(cfg.Backend.RemoteEndpoints) == 0 && cfg.Backend.OllamaURL != "" {
		if u, verr := validate.ValidateBackendURL(cfg.Backend.OllamaURL); verr == nil && !validate.ClassifyLocalhost(u.Hostname()) {
			port := 80
			useHTTPS := u.Scheme == "https"
			if useHTTPS {
				port = 443
			}
			if p := u.Port(); p != "" {
				fmt.Sscanf(p, "%d", &port)
			}
			endpoint := model.NewRemoteEndpoint("Migrated Endpoint", u.Hostname(), port, useHTTPS)
			cfg.Backend.RemoteEndpoints = append(cfg.Backend.RemoteEndpoints, endpoint)
			report.SynthesizedEndpoint = &endpoint
		}
	}

	if report.RewrittenURL || report.RewrittenOllama || len(report.DroppedSavedURLs) > 0 || report.SynthesizedEndpoint != nil {
		if data, err := os.ReadFile(c.targetPath); err == nil {
			backupPath := fmt.Sprintf("%s.%s.bak", c.targetPath, now.UTC().Format("20060102T150405Z"))
			if err := os.WriteFile(backupPath, data, 0o600); err != nil {
				return nil, fmt.Errorf("writing migration backup: %w", err)
			}
			report.BackupPath = backupPath
		}

		if err := c.SaveConfig(cfg); err != nil {
			return nil, fmt.Errorf("saving migrated config: %w", err)
		}
	}

	return report, nil
}

func maybeRewriteToHTTPS(u string) string {
	if u == "" {
		return u
	}
	_, verr := validate.ValidateBackendURL(u)
	if verr == nil || verr.Kind != validate.RemoteRequiresHTTPS {
		return u
	}
	return validate.SuggestHTTPSURL(u)
}
