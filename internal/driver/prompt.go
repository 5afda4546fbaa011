// Package driver implements the non-interactive execution path: prompt
// composition from multiple input sources, parameter validation, a single
// turn against the backend, and signal-to-exit-code mapping.
package driver

import (
	"fmt"
	"math"
	"os"
	"strings"
	"unicode/utf8"
)

const (
	fileSizeWarnBytes  = 1 << 20  // 1 MiB
	fileSizeErrorBytes = 10 << 20 // 10 MiB

	promptSizeErrorBytes = 1 << 20 // 1 MiB
	promptWarnChars      = 100_000
	maxTokensWarn        = 100_000
)

// FileInclusion is one file whose contents are folded into the composed
// prompt, in the order given.
type FileInclusion struct {
	Path    string
	Content string
}

// PromptWarning is a non-fatal observation surfaced to stderr in verbose
// mode; it never prevents execution.
type PromptWarning string

// LoadFileInclusion reads path, enforcing the size and encoding rules: a
// warning above 1 MiB, a hard error above 10 MiB, and a hard requirement
// that the content decodes as UTF-8 without replacement characters and
// contains no control characters other than \t, \n, \r.
func LoadFileInclusion(path string) (FileInclusion, []PromptWarning, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileInclusion{}, nil, fmt.Errorf("file %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return FileInclusion{}, nil, fmt.Errorf("file %s: not a regular file", path)
	}

	var warnings []PromptWarning
	if info.Size() > fileSizeErrorBytes {
		return FileInclusion{}, nil, fmt.Errorf("file %s: %d bytes exceeds the 10 MiB hard limit", path, info.Size())
	}
	if info.Size() > fileSizeWarnBytes {
		warnings = append(warnings, PromptWarning(fmt.Sprintf("file %s is larger than 1 MiB", path)))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return FileInclusion{}, nil, fmt.Errorf("reading file %s: %w", path, err)
	}

	content := string(data)
	if !utf8.ValidString(content) || strings.ContainsRune(content, utf8.RuneError) {
		return FileInclusion{}, nil, fmt.Errorf("file %s: content is not valid UTF-8", path)
	}
	if hasDisallowedControlChar(content) {
		return FileInclusion{}, nil, fmt.Errorf("file %s: content contains a disallowed control character", path)
	}

	return FileInclusion{Path: path, Content: content}, warnings, nil
}

func hasDisallowedControlChar(s string) bool {
	for _, r := range s {
		if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			return true
		}
	}
	return false
}

// ComposePrompt builds the final prompt text from an optional system
// prompt, ordered file inclusions, and the user prompt body:
//
//	[System: <system>\n\n]
//	[File: <path>\n```\n<content>\n```\n\n]*
//	<user-prompt>
func ComposePrompt(system string, files []FileInclusion, userPrompt string) string {
	var b strings.Builder

	if system != "" {
		fmt.Fprintf(&b, "System: %s\n\n", system)
	}
	for _, f := range files {
		fmt.Fprintf(&b, "File: %s\n```\n%s\n```\n\n", f.Path, f.Content)
	}
	b.WriteString(userPrompt)

	return b.String()
}

// Params holds the parameters of a single non-interactive turn, subject to
// ValidateParams before execution.
type Params struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// ValidateParams enforces: temperature in [0.0, 2.0] and finite; max_tokens
// > 0; prompt non-empty after trim and free of control characters (except
// \t\n\r); prompt <= 1 MiB. Returns warnings for values above the advisory
// thresholds (100,000 chars prompt, 100,000 max_tokens).
func ValidateParams(p Params) ([]PromptWarning, error) {
	if math.IsNaN(p.Temperature) || math.IsInf(p.Temperature, 0) {
		return nil, fmt.Errorf("temperature must be finite")
	}
	if p.Temperature < 0.0 || p.Temperature > 2.0 {
		return nil, fmt.Errorf("temperature %.2f out of range [0.0, 2.0]", p.Temperature)
	}
	if p.MaxTokens <= 0 {
		return nil, fmt.Errorf("max_tokens must be > 0")
	}

	trimmed := strings.TrimSpace(p.Prompt)
	if trimmed == "" {
		return nil, fmt.Errorf("prompt must not be empty")
	}
	if hasDisallowedControlChar(trimmed) {
		return nil, fmt.Errorf("prompt contains a disallowed control character")
	}
	if len(trimmed) > promptSizeErrorBytes {
		return nil, fmt.Errorf("prompt exceeds the 1 MiB hard limit")
	}

	var warnings []PromptWarning
	if utf8.RuneCountInString(trimmed) > promptWarnChars {
		warnings = append(warnings, PromptWarning(fmt.Sprintf("prompt is longer than %d characters", promptWarnChars)))
	}
	if p.MaxTokens > maxTokensWarn {
		warnings = append(warnings, PromptWarning(fmt.Sprintf("max_tokens is larger than %d", maxTokensWarn)))
	}

	return warnings, nil
}
