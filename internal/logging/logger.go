// Package logging provides the module's two *zap.Logger constructors: a
// console logger for interactive runs and a rotating-file logger for
// long-lived bridge processes. Callers inject the resulting *zap.Logger
// directly into record.go, play.go, internal/device, and internal/transport
// rather than depending on a logging interface of our own.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewConsole returns a *zap.Logger suitable for an interactive foreground
// run.
func NewConsole() *zap.Logger {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return logger
}

// NewFile returns a *zap.Logger that writes JSON-encoded entries to
// filename, rotating it via lumberjack once it exceeds maxSizeMB.
func NewFile(filename string, maxSizeMB, maxBackups, maxAgeDays int, compress bool) *zap.Logger {
	hook := lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   compress,
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(&hook),
		zapcore.DebugLevel,
	)

	return zap.New(core)
}
