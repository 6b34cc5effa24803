// Package logger configures the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

const timeFormat = "2006-01-02 15:04:05.000"

var currentLevel = new(slog.LevelVar)

// Setup installs and returns the default logger. logFile "stdout" (or empty)
// writes to the terminal, anything else is opened for appending.
func Setup(logLevel string, logFile string) *slog.Logger {
	currentLevel.Set(getLogLevel(logLevel))

	var handler slog.Handler
	if logFile == "" || logFile == "stdout" {
		handler = consoleHandler(os.Stdout, currentLevel)
	} else {
		file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) // #nosec G304 -- path is provided via config.
		if err != nil {
			slog.Error("failed to open log file, falling back to stdout", "file", logFile, "error", err)
			handler = consoleHandler(os.Stdout, currentLevel)
		} else {
			handler = slog.NewTextHandler(file, &slog.HandlerOptions{Level: currentLevel})
		}
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// SetLevel changes the level of the logger installed by Setup.
func SetLevel(logLevel string) {
	currentLevel.Set(getLogLevel(logLevel))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func consoleHandler(out *os.File, level slog.Leveler) slog.Handler {
	return tint.NewHandler(out, &tint.Options{
		Level:      level,
		TimeFormat: timeFormat,
		NoColor:    !isatty.IsTerminal(out.Fd()),
	})
}

func getLogLevel(logLevel string) slog.Level {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return level
}
