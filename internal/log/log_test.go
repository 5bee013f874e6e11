package log

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/exp1azy/ether-net/internal/config"
)

func TestInitRejectsBadLevel(t *testing.T) {
	err := Init(config.LogConfig{Level: "loud", Format: "text"})
	if err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestInitRejectsBadFormat(t *testing.T) {
	err := Init(config.LogConfig{Level: "info", Format: "xml"})
	if err == nil {
		t.Error("Expected error for unknown format")
	}
}

func TestInitSetsDefaultLogger(t *testing.T) {
	cfg := config.LogConfig{
		Level:  "debug",
		Format: "json",
		File: config.FileOutputConfig{
			Enabled: true,
			Path:    filepath.Join(t.TempDir(), "test.log"),
		},
	}
	if err := Init(cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected debug level to be enabled")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"Error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		if err != nil {
			t.Errorf("parseLevel(%q) failed: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
