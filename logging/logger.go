// Package logging builds the zap loggers used by the detector commands.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger with datetime and caller information that splits
// output to stdout and stderr based on error level. Debug entries are
// dropped unless debug is set.
func New(debug bool) *zap.Logger {
	return NewTo(zapcore.Lock(os.Stdout), zapcore.Lock(os.Stderr), debug)
}

// NewTo is New writing to the given streams.
func NewTo(stdout, stderr io.Writer, debug bool) *zap.Logger {
	minLevel := zapcore.InfoLevel
	if debug {
		minLevel = zapcore.DebugLevel
	}
	isErrorLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})
	isInfoLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= minLevel && lvl < zapcore.ErrorLevel
	})

	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = zapcore.RFC3339TimeEncoder
	encoder := zapcore.NewJSONEncoder(config)

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(stderr), isErrorLevel),
		zapcore.NewCore(encoder, zapcore.AddSync(stdout), isInfoLevel),
	)
	return zap.New(core, zap.AddCaller())
}
