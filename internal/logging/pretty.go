package logging

import (
	"io"

	charmlog "github.com/charmbracelet/log"
	"go.uber.org/zap/zapcore"
)

// prettyCore renders log entries through charmbracelet/log's colorized
// console writer instead of zap's own encoders, for interactive shell use.
type prettyCore struct {
	logger *charmlog.Logger
	level  zapcore.Level
}

func newPrettyCore(w io.Writer, level zapcore.Level) zapcore.Core {
	return &prettyCore{
		logger: charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmLevel(level),
			ReportTimestamp: true,
		}),
		level: level,
	}
}

func charmLevel(level zapcore.Level) charmlog.Level {
	switch level {
	case zapcore.DebugLevel:
		return charmlog.DebugLevel
	case zapcore.WarnLevel:
		return charmlog.WarnLevel
	case zapcore.ErrorLevel:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

func (c *prettyCore) Enabled(lvl zapcore.Level) bool { return lvl >= c.level }

func (c *prettyCore) With(fields []zapcore.Field) zapcore.Core {
	return &prettyCore{logger: c.logger.With(fieldsToKV(fields)...), level: c.level}
}

func (c *prettyCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *prettyCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	kvs := fieldsToKV(fields)
	switch ent.Level {
	case zapcore.DebugLevel:
		c.logger.Debug(ent.Message, kvs...)
	case zapcore.WarnLevel:
		c.logger.Warn(ent.Message, kvs...)
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		c.logger.Error(ent.Message, kvs...)
	default:
		c.logger.Info(ent.Message, kvs...)
	}
	return nil
}

func (c *prettyCore) Sync() error { return nil }

// fieldsToKV flattens zap fields into the key-value pairs charmbracelet/log
// expects. Field order is not preserved; console output doesn't need it.
func fieldsToKV(fields []zapcore.Field) []interface{} {
	enc := zapcore.NewMapObjectEncoder()
	for _, f := range fields {
		f.AddTo(enc)
	}
	kvs := make([]interface{}, 0, len(enc.Fields)*2)
	for k, v := range enc.Fields {
		kvs = append(kvs, k, v)
	}
	return kvs
}
