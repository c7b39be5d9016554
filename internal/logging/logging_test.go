package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{" debug ", slog.LevelDebug},

		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},

		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},

		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},

		{"invalid", slog.LevelInfo},
		{"trace", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := levelFromEnv(tt.input)
			if got != tt.expected {
				t.Errorf("levelFromEnv(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewRespectsFormatEnv(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	if logger := New(); logger == nil {
		t.Fatal("New() returned nil for json format")
	}

	t.Setenv("LOG_FORMAT", "text")
	if logger := New(); logger == nil {
		t.Fatal("New() returned nil for text format")
	}
}

func TestNewRespectsLevelEnv(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "error")

	logger := New()
	ctx := context.Background()
	if logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("info should be disabled when LOG_LEVEL=error")
	}
	if !logger.Enabled(ctx, slog.LevelError) {
		t.Error("error should be enabled when LOG_LEVEL=error")
	}
}

func TestSetDefault(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")

	prev := slog.Default()
	defer slog.SetDefault(prev)

	logger := SetDefault()
	if logger == nil {
		t.Fatal("SetDefault() returned nil")
	}
	if slog.Default() != logger {
		t.Error("SetDefault() did not install the returned logger as default")
	}
}
