package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestNewLogger_RoutesLevelsToFiles(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	l, err := NewLogger(&console, dir, "info")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer l.Close()

	l.Info("watching %d labels", 2)
	l.Warning("cooldown active")
	l.Error("dispatch failed: %s", "boom")
	l.Debug("should be filtered")

	info := readFile(t, filepath.Join(dir, "info.log"))
	warning := readFile(t, filepath.Join(dir, "warning.log"))
	errLog := readFile(t, filepath.Join(dir, "error.log"))

	if !strings.Contains(info, "watching 2 labels") {
		t.Errorf("info.log missing entry: %q", info)
	}
	if strings.Contains(info, "cooldown active") || strings.Contains(info, "should be filtered") {
		t.Errorf("info.log contains foreign entries: %q", info)
	}
	if !strings.Contains(warning, "cooldown active") {
		t.Errorf("warning.log missing entry: %q", warning)
	}
	if !strings.Contains(errLog, "dispatch failed: boom") {
		t.Errorf("error.log missing entry: %q", errLog)
	}
	if !strings.Contains(console.String(), "dispatch failed: boom") {
		t.Errorf("console missing entry: %q", console.String())
	}
}

func TestComponent_TagsEntries(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(&bytes.Buffer{}, dir, "debug")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer l.Close()

	l.Component("dispatcher").Info("sent")

	info := readFile(t, filepath.Join(dir, "info.log"))
	if !strings.Contains(info, `"component":"dispatcher"`) {
		t.Errorf("expected component field, got %q", info)
	}
}

func TestCleanLogs(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(&bytes.Buffer{}, dir, "info")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer l.Close()

	l.Warning("first")
	if err := l.CleanLogs("warning.log"); err != nil {
		t.Fatalf("CleanLogs failed: %v", err)
	}
	if got := readFile(t, filepath.Join(dir, "warning.log")); got != "" {
		t.Errorf("expected empty warning.log, got %q", got)
	}

	if err := l.CleanLogs("../etc/passwd"); err == nil {
		t.Error("expected error for unknown file")
	}
}

func TestNop_DisablesFiles(t *testing.T) {
	l := Nop()
	l.Info("nothing")
	if err := l.CleanLogs("info.log"); err == nil {
		t.Error("expected error when file logging is disabled")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{"WARNING", zerolog.WarnLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"silent", zerolog.Disabled, false},
		{"loud", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		level, err := ParseLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
		if level != tt.expected {
			t.Errorf("ParseLevel(%q) = %s, expected %s", tt.input, level, tt.expected)
		}
	}
}
