package utils

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

var logger = newLogger(os.Stdout, slog.LevelInfo)

func newLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
	}))
}

// SetupLogger replaces the package logger. level is one of debug, info, warn, error.
func SetupLogger(w io.Writer, level string) {
	if w == nil {
		w = os.Stdout
	}
	logger = newLogger(w, ParseLevel(level))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Debug(format string, a ...interface{}) {
	logger.Debug(fmt.Sprintf(format, a...))
}

func Info(format string, a ...interface{}) {
	logger.Info(fmt.Sprintf(format, a...))
}

func Success(format string, a ...interface{}) {
	logger.Info(fmt.Sprintf(format, a...), "status", "ok")
}

func Warn(format string, a ...interface{}) {
	logger.Warn(fmt.Sprintf(format, a...))
}

func Error(format string, a ...interface{}) {
	logger.Error(fmt.Sprintf(format, a...))
}

func Section(title string) {
	logger.Info(fmt.Sprintf("══════════ %s ══════════", title))
}
