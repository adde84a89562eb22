package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupWritesToFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		format string
		want   string
	}{
		{"text", "msg=hello"},
		{"json", `"msg":"hello"`},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			file := filepath.Join(t.TempDir(), "logs", "recital.log")
			closer, err := Setup("debug", tt.format, file)
			if err != nil {
				t.Fatalf("Setup() error = %v", err)
			}

			WithComponent("test").Debug("hello")
			closer.Close()

			data, err := os.ReadFile(file)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(data), tt.want) || !strings.Contains(string(data), "test") {
				t.Errorf("log output = %q, want it to contain %q", data, tt.want)
			}
		})
	}
}

func TestSetupLevelFilters(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	file := filepath.Join(t.TempDir(), "recital.log")
	closer, err := Setup("warn", "text", file)
	if err != nil {
		t.Fatal(err)
	}
	slog.Info("dropped")
	slog.Warn("kept")
	closer.Close()

	data, _ := os.ReadFile(file)
	if strings.Contains(string(data), "dropped") || !strings.Contains(string(data), "kept") {
		t.Errorf("log output = %q", data)
	}
}
