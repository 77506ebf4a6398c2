package logger

import (
	"log/slog"
	"os"
	"strings"

	"chefshelf/internal/config"
)

var Logger *slog.Logger

// InitLogger installs the JSON logger shared by the API, the worker and the
// migrate tool. LOG_LEVEL wins over the level implied by GIN_MODE.
func InitLogger(cfg *config.Config) {
	level := levelFor(cfg)

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	})
	Logger = slog.New(handler).With(
		"service", cfg.ServiceName,
		"ai_provider", cfg.AIProvider,
	)

	Logger.Debug("logger.initialized", "level", level.String())
}

func levelFor(cfg *config.Config) slog.Level {
	var level slog.Level
	if cfg.LogLevel != "" {
		if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err == nil {
			return level
		}
	}
	if cfg.GinMode == "debug" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// The helpers below do nothing until InitLogger runs, so packages log freely
// from tests.

func Info(msg string, args ...any) {
	if Logger != nil {
		Logger.Info(msg, args...)
	}
}

func Error(msg string, args ...any) {
	if Logger != nil {
		Logger.Error(msg, args...)
	}
}

func Debug(msg string, args ...any) {
	if Logger != nil {
		Logger.Debug(msg, args...)
	}
}

func Warn(msg string, args ...any) {
	if Logger != nil {
		Logger.Warn(msg, args...)
	}
}
