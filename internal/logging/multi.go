package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Multi creates a *zap.SugaredLogger that dispatches every record to all
// given loggers' underlying cores at once, e.g. a colorized console
// logger and the append-only logs/error.log file logger.
func Multi(loggers ...*zap.SugaredLogger) *zap.SugaredLogger {
	cores := make([]zapcore.Core, len(loggers))
	for i, l := range loggers {
		cores[i] = l.Desugar().Core()
	}
	return zap.New(zapcore.NewTee(cores...)).Sugar()
}
