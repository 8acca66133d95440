package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"DEBUG", zapcore.DebugLevel},
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"WARN", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"INVALID", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, test := range tests {
		if got := ParseLevel(test.input); got != test.expected {
			t.Errorf("ParseLevel(%q) = %v, want %v", test.input, got, test.expected)
		}
	}
}

func TestEnabled(t *testing.T) {
	if Enabled("off") || Enabled(" OFF ") {
		t.Error("off should disable logging")
	}
	if !Enabled("info") || !Enabled("") {
		t.Error("non-off levels should enable logging")
	}
}

func TestNewWritesToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "infowatch.log")

	l, err := New(Config{Level: "info", File: logPath})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message")
	_ = l.Sync()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	out := string(content)

	if strings.Contains(out, "debug message") {
		t.Error("debug message should be filtered at info level")
	}
	if !strings.Contains(out, "info message") {
		t.Error("info message should appear")
	}
	if !strings.Contains(out, "warn message") {
		t.Error("warn message should appear")
	}
}

func TestNewOffIsNop(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "never.log")

	l, err := New(Config{Level: "off", File: logPath})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	l.Error("dropped")

	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Error("off level should not create a log file")
	}
}

func TestCronLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "cron.log")
	l, err := New(Config{Level: "debug", File: logPath})
	if err != nil {
		t.Fatal(err)
	}

	cl := CronLogger(l)
	cl.Info("schedule", "entry", 1)
	cl.Error(errors.New("boom"), "panic", "entry", 1)
	_ = l.Sync()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	out := string(content)
	if !strings.Contains(out, "boom") || !strings.Contains(out, "cron") {
		t.Errorf("cron error not logged: %s", out)
	}
}
