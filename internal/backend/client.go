// Package backend wraps an HTTP client against an Ollama-compatible server:
// model listing, cancellable streaming generation, and liveness probing.
package backend

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fieldnotes/relay/internal/cancel"
	"github.com/fieldnotes/relay/internal/shell"
)

// Client drives requests against a single Ollama-compatible base URL at a
// time; base URLs are passed per-call so one Client can serve every
// configured endpoint.
type Client struct {
	httpClient *http.Client
	logger     *zap.SugaredLogger
}

// NewClient returns a Client with the given total-request timeout.
func NewClient(timeout time.Duration, logger *zap.SugaredLogger) *Client {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) newRequest(ctx context.Context, method, url string, body io.Reader, apiKey string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	return req, nil
}

// FetchModels retrieves the list of model names from {baseURL}/api/tags.
// It accepts three documented response shapes: a flat array of strings, a
// wrapper {data: [{id}]}, or a wrapper {models: [{name}|{id}|string]}.
func (c *Client) FetchModels(ctx context.Context, baseURL, apiKey string) ([]string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, baseURL+"/api/tags", nil, apiKey)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(Other, "reading response body: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newError(InvalidResponse, "status %d: %s", resp.StatusCode, string(data))
	}

	models, err := parseModelsResponse(data)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, newError(InvalidResponse, "NoModels")
	}
	return models, nil
}

func parseModelsResponse(data []byte) ([]string, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, newError(InvalidResponse, "UnexpectedShape: %v", err)
	}

	switch v := raw.(type) {
	case []any:
		return namesFromEntries(v)
	case map[string]any:
		if d, ok := v["data"]; ok {
			list, ok := d.([]any)
			if !ok {
				return nil, newError(InvalidResponse, "UnexpectedShape: data is not a list")
			}
			return namesFromEntries(list)
		}
		if m, ok := v["models"]; ok {
			list, ok := m.([]any)
			if !ok {
				return nil, newError(InvalidResponse, "UnexpectedShape: models is not a list")
			}
			return namesFromEntries(list)
		}
		return nil, newError(InvalidResponse, "UnexpectedShape: no data or models key")
	default:
		return nil, newError(InvalidResponse, "UnexpectedShape: unrecognized top-level type")
	}
}

// namesFromEntries extracts a model name from each entry, which may be a
// bare string, {"name": ...}, or {"id": ...}.
func namesFromEntries(entries []any) ([]string, error) {
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		switch v := e.(type) {
		case string:
			names = append(names, v)
		case map[string]any:
			if name, ok := v["name"].(string); ok {
				names = append(names, name)
				continue
			}
			if id, ok := v["id"].(string); ok {
				names = append(names, id)
				continue
			}
			return nil, newError(InvalidResponse, "UnexpectedShape: entry has neither name nor id")
		default:
			return nil, newError(InvalidResponse, "UnexpectedShape: unrecognized entry type")
		}
	}
	return names, nil
}

// SendPromptStreaming posts prompt to {baseURL}/api/generate with
// stream=true, and invokes onChunk for every decoded response fragment in
// delivery order. If system is non-empty, the final prompt sent is
// system + "\n\n" + prompt. Returns the concatenation of every response
// fragment delivered, in order.
//
// Cancellation is cooperative: onChunk may return false to stop, and the
// shared flag is checked at every chunk boundary regardless of onChunk's
// return value.
func (c *Client) SendPromptStreaming(ctx context.Context, baseURL, apiKey, model, system, prompt string, flag *cancel.Flag, onChunk shell.ChunkFunc) (string, error) {
	finalPrompt := prompt
	if system != "" {
		finalPrompt = system + "\n\n" + prompt
	}

	body, err := json.Marshal(generateRequest{Model: model, Prompt: finalPrompt, Stream: true})
	if err != nil {
		return "", newError(Other, "marshaling request: %v", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, baseURL+"/api/generate", bytes.NewReader(body), apiKey)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return "", newError(InvalidResponse, "status %d: %s", resp.StatusCode, string(data))
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		if flag != nil && flag.Cancelled() {
			return full.String(), nil
		}

		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var chunk generateChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			c.logger.Debugw("discarding malformed stream line", "error", err, "line", string(line))
			continue
		}

		if chunk.Response != "" {
			full.WriteString(chunk.Response)
			if onChunk != nil && !onChunk(chunk.Response) {
				return full.String(), nil
			}
		}

		if chunk.Done {
			break
		}
	}

	if err := scanner.Err(); err != nil {
		return full.String(), classifyTransportError(err)
	}

	return full.String(), nil
}

// TestConnection probes {baseURL}/api/tags with the client's configured
// timeout and reports success, latency, and any error message.
func (c *Client) TestConnection(ctx context.Context, baseURL, apiKey string) *ConnectionTestResult {
	start := time.Now()

	req, err := c.newRequest(ctx, http.MethodGet, baseURL+"/api/tags", nil, apiKey)
	if err != nil {
		return &ConnectionTestResult{Success: false, ErrorMessage: err.Error()}
	}

	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return &ConnectionTestResult{Success: false, ResponseTimeMS: elapsed, ErrorMessage: classifyTransportError(err).Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ConnectionTestResult{Success: false, ResponseTimeMS: elapsed, ErrorMessage: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ConnectionTestResult{Success: false, ResponseTimeMS: elapsed, ErrorMessage: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return &ConnectionTestResult{Success: false, ResponseTimeMS: elapsed, ErrorMessage: "unparseable response body"}
	}

	return &ConnectionTestResult{Success: true, ResponseTimeMS: elapsed}
}

func classifyTransportError(err error) *Error {
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(Timeout, "%v", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(Timeout, "%v", err)
	}

	var tlsErr *tls.CertificateVerificationError
	if errors.As(err, &tlsErr) {
		return newError(Tls, "%v", err)
	}
	if strings.Contains(err.Error(), "tls:") || strings.Contains(err.Error(), "x509:") {
		return newError(Tls, "%v", err)
	}

	if strings.Contains(err.Error(), "connection refused") {
		return newError(ConnectionRefused, "%v", err)
	}

	return newError(Other, "%v", err)
}
