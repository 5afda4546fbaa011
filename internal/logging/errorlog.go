package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewFileLogger opens (creating if necessary) <appdirRoot>/logs/error.log
// for append and returns a logger writing one line per event to it,
// prefixed with a local ISO-8601 timestamp, with the same secret
// redaction applied as every other logger in this package. The returned
// io.Closer must be closed once the logger is no longer needed.
func NewFileLogger(appdirRoot string) (*zap.SugaredLogger, io.Closer, error) {
	dir := filepath.Join(appdirRoot, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating logs directory: %w", err)
	}

	path := filepath.Join(dir, "error.log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening error log: %w", err)
	}

	core := newTextCore(zapcore.AddSync(f), zapcore.DebugLevel)
	return zap.New(core).Sugar(), f, nil
}
