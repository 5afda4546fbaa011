// Package connection resolves which backend endpoint is active right now
// and caches liveness probe results behind a reader/writer lock: reads
// never block reads, writes are exclusive.
package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fieldnotes/relay/internal/backend"
	"github.com/fieldnotes/relay/internal/config"
)

const cacheTTL = 5 * time.Minute

// ErrNoActiveEndpoint is returned by ActiveEndpoint when Remote mode is
// selected but active_remote_endpoint_id does not resolve.
var ErrNoActiveEndpoint = errors.New("no active remote endpoint configured")

type cacheEntry struct {
	result  *backend.ConnectionTestResult
	fetched time.Time
}

// Manager resolves the active endpoint URL and caches probe results.
type Manager struct {
	configer *config.Configer
	client   *backend.Client

	mu    sync.RWMutex
	cfg   *config.Config
	cache map[string]cacheEntry
}

// New loads the current configuration through configer and returns a ready
// Manager. client performs the actual liveness probes.
func New(configer *config.Configer, client *backend.Client) (*Manager, error) {
	cfg, err := configer.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &Manager{
		configer: configer,
		client:   client,
		cfg:      cfg,
		cache:    make(map[string]cacheEntry),
	}, nil
}

// ActiveEndpoint returns the URL and API key of the currently active
// backend: the fixed localhost URL in Local mode, or the resolved remote
// endpoint in Remote mode.
func (m *Manager) ActiveEndpoint() (url, apiKey string, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.cfg.Backend.ConnectionMode == config.ModeLocal {
		return config.LocalBackendURL, "", nil
	}

	for _, ep := range m.cfg.Backend.RemoteEndpoints {
		if ep.ID == m.cfg.Backend.ActiveRemoteEndpointID {
			return ep.URL(), ep.APIKey, nil
		}
	}
	return "", "", ErrNoActiveEndpoint
}

// TestConnection returns a cached result for url if it is younger than the
// cache TTL, otherwise probes it through the backend client and caches the
// fresh result.
func (m *Manager) TestConnection(ctx context.Context, url, apiKey string) *backend.ConnectionTestResult {
	m.mu.RLock()
	entry, ok := m.cache[url]
	m.mu.RUnlock()

	if ok && time.Since(entry.fetched) < cacheTTL {
		return entry.result
	}

	result := m.client.TestConnection(ctx, url, apiKey)

	m.mu.Lock()
	m.cache[url] = cacheEntry{result: result, fetched: time.Now()}
	m.mu.Unlock()

	return result
}

// SwitchMode updates and persists the connection mode.
func (m *Manager) SwitchMode(mode config.ConnectionMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cfg.Backend.ConnectionMode = mode
	return m.configer.SaveConfig(m.cfg)
}

// SetActiveRemoteEndpoint verifies id exists among the configured remote
// endpoints, then updates and persists it as active.
func (m *Manager) SetActiveRemoteEndpoint(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	found := false
	for _, ep := range m.cfg.Backend.RemoteEndpoints {
		if ep.ID == id {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("no remote endpoint with id %q", id)
	}

	m.cfg.Backend.ActiveRemoteEndpointID = id
	return m.configer.SaveConfig(m.cfg)
}

// Reload re-reads configer's backing config.toml and replaces the
// in-memory config the rest of Manager's methods operate on. It exists for
// long-running callers (the interactive shell) that want to pick up edits
// made by a concurrent `relay config`/`relay endpoint` invocation without
// restarting; one-shot commands construct a fresh Manager per run instead.
func (m *Manager) Reload() error {
	cfg, err := m.configer.LoadConfig()
	if err != nil {
		return fmt.Errorf("reloading config: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cfg = cfg
	m.cache = make(map[string]cacheEntry)
	return nil
}

// ClearCache invalidates the cache entry for url, or every entry if url is
// empty.
func (m *Manager) ClearCache(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if url == "" {
		m.cache = make(map[string]cacheEntry)
		return
	}
	delete(m.cache, url)
}
