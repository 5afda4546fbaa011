// Package validate implements pure host/port/URL validation and transport
// security policy for backend endpoints: localhost may speak plain HTTP,
// remote hosts must speak HTTPS.
package validate

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Kind identifies the category of a validation failure.
type Kind int

const (
	InvalidScheme Kind = iota
	MissingHost
	InvalidPort
	RemoteRequiresHTTPS
	Unparseable
)

func (k Kind) String() string {
	switch k {
	case InvalidScheme:
		return "InvalidScheme"
	case MissingHost:
		return "MissingHost"
	case InvalidPort:
		return "InvalidPort"
	case RemoteRequiresHTTPS:
		return "RemoteRequiresHttps"
	case Unparseable:
		return "Unparseable"
	default:
		return "Unknown"
	}
}

// Error is a structured validation failure; Kind lets callers branch on the
// failure category without parsing the message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newError(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...)}
}

// ValidateIP reports whether s is a valid IPv4 or IPv6 literal.
func ValidateIP(s string) bool {
	s = strings.TrimPrefix(strings.TrimSuffix(s, "]"), "[")
	return net.ParseIP(s) != nil
}

// ValidatePort reports whether p is in the valid TCP port range 1..=65535.
func ValidatePort(p int) bool {
	return p >= 1 && p <= 65535
}

// ValidateIPAndPort reports whether host is a valid IP literal and port is
// in range.
func ValidateIPAndPort(host string, port int) bool {
	return ValidateIP(host) && ValidatePort(port)
}

// localHostNames are the host literals that classify as localhost regardless
// of surrounding brackets.
var localHostNames = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

// ClassifyLocalhost reports whether host refers to the local machine.
// Accepts bracketed IPv6 forms (e.g. "[::1]").
func ClassifyLocalhost(host string) bool {
	trimmed := strings.TrimPrefix(strings.TrimSuffix(host, "]"), "[")
	return localHostNames[strings.ToLower(trimmed)]
}

// ValidateBackendURL parses u as a URL and enforces transport-security
// policy: remote hosts must use HTTPS, localhost may use HTTP or HTTPS.
func ValidateBackendURL(u string) (*url.URL, *Error) {
	parsed, err := url.Parse(u)
	if err != nil {
		return nil, newError(Unparseable, "%v", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, newError(InvalidScheme, "scheme %q is not http or https", parsed.Scheme)
	}

	if parsed.Hostname() == "" {
		return nil, newError(MissingHost, "URL has no host")
	}

	if portStr := parsed.Port(); portStr != "" {
		var port int
		if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil || !ValidatePort(port) {
			return nil, newError(InvalidPort, "port %q is out of range", portStr)
		}
	}

	if parsed.Scheme == "http" && !ClassifyLocalhost(parsed.Hostname()) {
		return nil, newError(RemoteRequiresHTTPS, "remote host %q must use https", parsed.Hostname())
	}

	return parsed, nil
}

// SuggestHTTPSURL rewrites an http:// scheme to https://, leaving the rest
// of the URL untouched. Used by config migration and by the CLI when
// offering a fix for RemoteRequiresHttps errors.
func SuggestHTTPSURL(u string) string {
	if strings.HasPrefix(u, "http://") {
		return "https://" + strings.TrimPrefix(u, "http://")
	}
	return u
}
