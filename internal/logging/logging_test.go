package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/tessro/nocturne/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"":      zapcore.InfoLevel,
		"loud":  zapcore.InfoLevel,
	}
	for name, want := range tests {
		if got := ParseLevel(name); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Level: "warn"}, Options{Console: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("dropped")
	logger.Warn("kept")
	_ = logger.Sync()

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("info line written at warn level")
	}
	var line map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &line); err != nil {
		t.Fatalf("console output is not JSON: %v (%q)", err, out)
	}
	if line["msg"] != "kept" || line["level"] != "warn" {
		t.Errorf("line = %v", line)
	}
}

func TestNewVerbose(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Level: "error"}, Options{Console: &buf, Verbose: true})
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("detail")
	_ = logger.Sync()
	if !strings.Contains(buf.String(), "detail") {
		t.Error("verbose logger dropped debug line")
	}
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "nocturne.log")
	logger, err := New(config.LogConfig{Level: "info", File: path, MaxSizeMB: 1}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("to file")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "to file") {
		t.Errorf("log file = %q", data)
	}
}

func TestNewNoOutputs(t *testing.T) {
	logger, err := New(config.LogConfig{}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("nowhere")
}
