// Package slogutil configures the process-wide slog logger.
package slogutil

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/javi11/archivelist/internal/config"
)

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogRotation configures slog from logConfig. With no file configured
// it logs to stderr only; otherwise to both stderr and a rotated file.
// The returned logger is also installed as slog's default.
func SetupLogRotation(logConfig config.LogConfig) *slog.Logger {
	var writer io.Writer = os.Stderr

	if logConfig.File != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   logConfig.File,
			MaxSize:    logConfig.MaxSizeMB,
			MaxAge:     logConfig.MaxAgeDays,
			MaxBackups: logConfig.MaxBackups,
		}
		writer = io.MultiWriter(os.Stderr, fileWriter)
	}

	leveler := &DynamicLeveler{}
	leveler.SetLevel(parseLevel(logConfig.Level))

	logger := slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{
		Level: leveler,
	}))
	slog.SetDefault(logger)
	return logger
}
