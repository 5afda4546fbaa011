package model

import (
	"fmt"

	"github.com/google/uuid"
)

// RemoteEndpoint is a named, typed address of an Ollama-compatible server.
// The (Host, Port) pair must be unique across the endpoint set the caller
// holds; uniqueness is checked by "relay endpoint add", not by this type.
type RemoteEndpoint struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	UseHTTPS        bool   `json:"use_https"`
	APIKey          string `json:"api_key,omitempty"`
	LastTested      string `json:"last_tested,omitempty"`
	LastTestSuccess *bool  `json:"last_test_success,omitempty"`
}

// NewRemoteEndpoint creates a RemoteEndpoint with a fresh identifier.
func NewRemoteEndpoint(name, host string, port int, useHTTPS bool) RemoteEndpoint {
	return RemoteEndpoint{
		ID:       uuid.NewString(),
		Name:     name,
		Host:     host,
		Port:     port,
		UseHTTPS: useHTTPS,
	}
}

// URL composes the derived URL for this endpoint: scheme://host:port.
func (e RemoteEndpoint) URL() string {
	scheme := "http"
	if e.UseHTTPS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, e.Host, e.Port)
}

// Key returns the (host, port) identity used to enforce endpoint-set
// uniqueness.
func (e RemoteEndpoint) Key() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}
