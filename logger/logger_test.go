package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "WARN")
	defer SetOutput(os.Stderr, "INFO")

	Info("hidden %d", 1)
	Debug("hidden %d", 2)
	Warn("shown %s", "warn")
	Error("shown %s", "error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info/debug lines should be filtered at WARN, got %q", out)
	}
	if !strings.Contains(out, "shown warn") || !strings.Contains(out, "shown error") {
		t.Errorf("warn/error lines missing: %q", out)
	}
	if Level() != "WARN" {
		t.Errorf("Level() = %q, want WARN", Level())
	}
}

func TestRequestLogIsStructured(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "DEBUG")
	defer SetOutput(os.Stderr, "INFO")

	Request("GET", "/api/items", 200, 5*time.Millisecond)

	out := buf.String()
	for _, want := range []string{`"method":"GET"`, `"route":"/api/items"`, `"status":200`} {
		if !strings.Contains(out, want) {
			t.Errorf("request log missing %s: %q", want, out)
		}
	}
}

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	if err := Init(path, "info", "json"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Info("written to %s", "file")
	CloseLogFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file content = %q", data)
	}
}
