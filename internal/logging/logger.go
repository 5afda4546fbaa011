// Package logging provides opinionated logging for the relay system,
// built on go.uber.org/zap the way the teacher's pkg/logger does.
//
// New returns a *zap.SugaredLogger configured for CLI use: a colorized
// console encoder by default, or JSON/pretty variants via options.
// Secrets (API keys, bearer tokens) are scrubbed from fields before they
// reach any sink, regardless of encoding.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type config struct {
	level   zapcore.Level
	pretty  bool
	json    bool
	source  bool
	writers []io.Writer
}

// New builds a *zap.SugaredLogger from the given options. With no options
// it writes colorized console output to stdout at Info level.
func New(opts ...Option) *zap.SugaredLogger {
	cfg := &config{level: zapcore.InfoLevel}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.writers) == 0 {
		cfg.writers = []io.Writer{os.Stdout}
	}

	syncers := make([]zapcore.WriteSyncer, len(cfg.writers))
	for i, w := range cfg.writers {
		syncers[i] = zapcore.AddSync(w)
	}
	ws := zapcore.NewMultiWriteSyncer(syncers...)

	var core zapcore.Core
	if cfg.pretty {
		core = newPrettyCore(ws, cfg.level)
	} else {
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "time"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

		var encoder zapcore.Encoder
		if cfg.json {
			encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
			encoder = zapcore.NewJSONEncoder(encoderConfig)
		} else {
			encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
			encoder = zapcore.NewConsoleEncoder(encoderConfig)
		}
		core = zapcore.NewCore(encoder, ws, cfg.level)
	}

	var zapOpts []zap.Option
	if cfg.source {
		zapOpts = append(zapOpts, zap.AddCaller())
	}

	return zap.New(&redactingCore{Core: core}, zapOpts...).Sugar()
}

// Nop returns a logger that discards everything. Used in tests and in
// contexts where no output is desired (e.g. --quiet runs of relay run).
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// newTextCore builds a plain, uncolored console core at the given level,
// suitable for a log file rather than a terminal.
func newTextCore(ws zapcore.WriteSyncer, level zapcore.Level) zapcore.Core {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return &redactingCore{Core: zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), ws, level)}
}
