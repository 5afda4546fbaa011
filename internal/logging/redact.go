package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var redactedKeys = map[string]bool{
	"api_key":       true,
	"apikey":        true,
	"bearer":        true,
	"authorization": true,
	"token":         true,
}

const redactedPlaceholder = "[REDACTED]"

// redactingCore rewrites sensitive field values before they reach the
// wrapped core, so a secret never reaches a sink regardless of encoding.
type redactingCore struct {
	zapcore.Core
}

func (c *redactingCore) With(fields []zapcore.Field) zapcore.Core {
	return &redactingCore{Core: c.Core.With(redactFields(fields))}
}

func (c *redactingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Core.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *redactingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(ent, redactFields(fields))
}

func redactFields(fields []zapcore.Field) []zapcore.Field {
	out := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		if redactedKeys[strings.ToLower(f.Key)] {
			out[i] = zap.String(f.Key, redactedPlaceholder)
		} else {
			out[i] = f
		}
	}
	return out
}
