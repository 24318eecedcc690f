package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"property_recommend/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	cfg := config.Default()
	cfg.Log = config.LogConfig{Level: "debug", Format: "json", Output: "file", FilePath: path}

	prev := Logger
	t.Cleanup(func() {
		Logger = prev
		slog.SetDefault(prev)
	})

	if err := Init(cfg); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Info("profile updated", "cid", "u-1")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"cid":"u-1"`) {
		t.Fatalf("log line missing field: %s", data)
	}
}
