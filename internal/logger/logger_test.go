package logger

import (
	"log/slog"
	"testing"

	"chefshelf/internal/config"
)

func TestLevelFor(t *testing.T) {
	cases := []struct {
		name     string
		ginMode  string
		logLevel string
		want     slog.Level
	}{
		{"debug mode", "debug", "", slog.LevelDebug},
		{"release mode", "release", "", slog.LevelInfo},
		{"explicit level wins", "debug", "warn", slog.LevelWarn},
		{"unknown level falls back", "release", "chatty", slog.LevelInfo},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := levelFor(&config.Config{GinMode: tc.ginMode, LogLevel: tc.logLevel})
			if got != tc.want {
				t.Fatalf("levelFor = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHelpersBeforeInit(t *testing.T) {
	Logger = nil
	Info("logger.test", "k", "v")
	Warn("logger.test")
	Error("logger.test")
	Debug("logger.test")
}
