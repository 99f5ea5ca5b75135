// Copyright (c) Microsoft Corporation.
// Licensed under the MIT license.

// Package logger provides the leveled logger used across the B2C client. It wraps a
// *slog.Logger so applications keep control of handlers and formatting.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

type Level string

const (
	Info  Level = "info"
	Err   Level = "error"
	Warn  Level = "warn"
	Debug Level = "debug"
)

// slogLevel maps a Level onto slog. Unknown levels log at Info.
func (l Level) slogLevel() slog.Level {
	switch l {
	case Err:
		return slog.LevelError
	case Warn:
		return slog.LevelWarn
	case Debug:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Logger is a leveled structured logger. A nil *Logger discards everything.
type Logger struct {
	logging *slog.Logger
}

// New creates a new logger instance
func New(slogLogger *slog.Logger) (*Logger, error) {
	if slogLogger == nil {
		return nil, fmt.Errorf("invalid input; expected *slog.Logger")
	}
	return &Logger{logging: slogLogger}, nil
}

// Discard returns a Logger that drops every record.
func Discard() *Logger {
	return &Logger{logging: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// Log writes message at level with the given key/value fields.
func (a *Logger) Log(ctx context.Context, level Level, message string, fields ...any) {
	if a == nil || a.logging == nil {
		return
	}
	a.logging.Log(ctx, level.slogLevel(), message, fields...)
}

// With returns a Logger that adds fields to every record.
func (a *Logger) With(fields ...any) *Logger {
	if a == nil || a.logging == nil {
		return a
	}
	return &Logger{logging: a.logging.With(fields...)}
}
