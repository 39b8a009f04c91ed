package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		check  func(t *testing.T, buf *bytes.Buffer)
	}{
		{
			name: "text format",
			config: Config{
				Level:  LevelInfo,
				Format: FormatText,
			},
			check: func(t *testing.T, buf *bytes.Buffer) {
				if !strings.Contains(buf.String(), "level=INFO") {
					t.Error("expected text format with level=INFO")
				}
			},
		},
		{
			name: "json format",
			config: Config{
				Level:  LevelInfo,
				Format: FormatJSON,
			},
			check: func(t *testing.T, buf *bytes.Buffer) {
				var m map[string]interface{}
				if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
					t.Errorf("expected valid JSON output: %v", err)
				}
				if m["level"] != "INFO" {
					t.Errorf("expected level INFO, got %v", m["level"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.config.Output = buf

			logger := New(tt.config)
			logger.Info("test message")

			tt.check(t, buf)
		})
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name      string
		level     Level
		logMethod func(l *Logger)
		expected  bool
	}{
		{"debug at debug level", LevelDebug, func(l *Logger) { l.Debug("test") }, true},
		{"debug at info level", LevelInfo, func(l *Logger) { l.Debug("test") }, false},
		{"info at warn level", LevelWarn, func(l *Logger) { l.Info("test") }, false},
		{"warn at warn level", LevelWarn, func(l *Logger) { l.Warn("test") }, true},
		{"error at error level", LevelError, func(l *Logger) { l.Error("test") }, true},
		{"unknown level falls back to info", Level("verbose"), func(l *Logger) { l.Info("test") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := New(Config{Level: tt.level, Format: FormatText, Output: buf})

			tt.logMethod(logger)

			hasOutput := buf.Len() > 0
			if hasOutput != tt.expected {
				t.Errorf("expected output=%v, got output=%v (content: %s)", tt.expected, hasOutput, buf.String())
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{Level: LevelInfo, Format: FormatText, Output: buf})

	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatal("debug should be suppressed at info level")
	}

	logger.SetLevel(LevelDebug)
	logger.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("debug should be emitted after SetLevel(LevelDebug)")
	}
}

func TestContextEnrichment(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{Level: LevelDebug, Format: FormatJSON, Output: buf})

	ctx := context.Background()
	ctx = WithCorrelationID(ctx, "corr-123")
	ctx = WithSessionID(ctx, "sess-456")
	ctx = WithEncoding(ctx, "p50k_base")
	ctx = WithHost(ctx, "serve")

	logger.InfoContext(ctx, "test message", "extra", "value")

	var m map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	checks := map[string]string{
		"correlation_id": "corr-123",
		"session_id":     "sess-456",
		"encoding":       "p50k_base",
		"host":           "serve",
		"extra":          "value",
	}
	for key, want := range checks {
		if m[key] != want {
			t.Errorf("expected %s=%s, got %v", key, want, m[key])
		}
	}
}

func TestWith(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{Level: LevelInfo, Format: FormatJSON, Output: buf})

	logger.With("component", "tokenizer").Info("test")

	var m map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if m["component"] != "tokenizer" {
		t.Errorf("expected component=tokenizer, got %v", m["component"])
	}
}

func TestWithGroup(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{Level: LevelInfo, Format: FormatJSON, Output: buf})

	logger.WithGroup("pdf").Info("test", "pages", 3)

	var m map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	group, ok := m["pdf"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected pdf group, got %v", m)
	}
	if group["pages"] != float64(3) {
		t.Errorf("expected pages=3 in group, got %v", group["pages"])
	}
}

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()
	if CorrelationID(ctx) != "" || SessionID(ctx) != "" {
		t.Error("expected empty ids from bare context")
	}

	ctx = WithCorrelationID(ctx, "abc")
	ctx = WithSessionID(ctx, "def")
	if got := CorrelationID(ctx); got != "abc" {
		t.Errorf("CorrelationID() = %q, want abc", got)
	}
	if got := SessionID(ctx); got != "def" {
		t.Errorf("SessionID() = %q, want def", got)
	}
}

func TestDomainLogHelpers(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(Config{Level: LevelDebug, Format: FormatText, Output: buf})
	ctx := context.Background()

	tests := []struct {
		name     string
		logFunc  func()
		contains []string
	}{
		{
			name:     "LogTokensCounted",
			logFunc:  func() { LogTokensCounted(ctx, logger, "cl100k_base", 28, 6, 2*time.Millisecond) },
			contains: []string{"tokens counted", "encoding=cl100k_base", "tokens=6", "chars=28"},
		},
		{
			name:     "LogTokenizationFailed",
			logFunc:  func() { LogTokenizationFailed(ctx, logger, "r50k_base", errors.New("boom")) },
			contains: []string{"tokenization failed", "error=boom"},
		},
		{
			name:     "LogDocumentExtracted",
			logFunc:  func() { LogDocumentExtracted(ctx, logger, 4, 1, 120, time.Second) },
			contains: []string{"document extracted", "pages=4", "skipped_pages=1"},
		},
		{
			name:     "LogExtractionFailed",
			logFunc:  func() { LogExtractionFailed(ctx, logger, 10, errors.New("not a pdf")) },
			contains: []string{"document extraction failed", "bytes=10"},
		},
		{
			name:     "LogSubmission",
			logFunc:  func() { LogSubmission(ctx, logger, "p50k_base", 5, true) },
			contains: []string{"submission handled", "accepted=true"},
		},
		{
			name:     "LogSessionsExpired",
			logFunc:  func() { LogSessionsExpired(ctx, logger, 2) },
			contains: []string{"expired sessions removed", "removed=2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc()

			out := buf.String()
			for _, s := range tt.contains {
				if !strings.Contains(out, s) {
					t.Errorf("expected output to contain %q, got: %s", s, out)
				}
			}
		})
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "tokencalc.log")
	logger := New(Config{Level: LevelInfo, Format: FormatText, File: path, MaxSizeMB: 1})

	logger.Info("written to file")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file missing message: %s", data)
	}
}

func TestCloseWithoutFile(t *testing.T) {
	if err := Nop().Close(); err != nil {
		t.Errorf("Close() on stream logger = %v, want nil", err)
	}
}

func TestDefaultLogger(t *testing.T) {
	global = nil
	globalOnce = sync.Once{}

	logger := Default()
	if logger == nil {
		t.Fatal("expected default logger")
	}
	if Default() != logger {
		t.Error("expected Default() to return the same instance")
	}
}
