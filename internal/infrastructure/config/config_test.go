package config

import (
	"strings"
	"testing"
	"time"

	"github.com/jbctechsolutions/tokencalc/internal/domain/encoding"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg == nil {
		t.Fatal("NewDefaultConfig returned nil")
	}

	// Tokenizer defaults
	if cfg.Tokenizer.DefaultEncoding != "cl100k_base" {
		t.Errorf("expected default encoding cl100k_base, got %q", cfg.Tokenizer.DefaultEncoding)
	}
	if !cfg.Tokenizer.Offline {
		t.Error("expected offline vocabularies by default")
	}

	// Server defaults
	if cfg.Server.Port != DefaultPort {
		t.Errorf("expected port %d, got %d", DefaultPort, cfg.Server.Port)
	}
	if cfg.Server.MaxUploadBytes != DefaultMaxUploadBytes {
		t.Errorf("expected max upload %d, got %d", DefaultMaxUploadBytes, cfg.Server.MaxUploadBytes)
	}

	// Session defaults
	if cfg.Session.Store != StoreMemory {
		t.Errorf("expected memory store, got %q", cfg.Session.Store)
	}
	if cfg.Session.TTL != DefaultSessionTTL {
		t.Errorf("expected ttl %v, got %v", DefaultSessionTTL, cfg.Session.TTL)
	}

	// Logging defaults
	if cfg.Logging.Level != DefaultLogLevel {
		t.Errorf("expected log level %q, got %q", DefaultLogLevel, cfg.Logging.Level)
	}
	if cfg.Logging.Format != DefaultLogFormat {
		t.Errorf("expected log format %q, got %q", DefaultLogFormat, cfg.Logging.Format)
	}

	if cfg.Observability.Tracing.Enabled {
		t.Error("expected tracing to be disabled by default")
	}
}

func TestConfig_Validate_DefaultIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid, got error: %v", err)
	}
}

func TestConfig_DefaultEncoding(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Tokenizer.DefaultEncoding = "p50k_base"
	if got := cfg.DefaultEncoding(); got != encoding.P50KBase {
		t.Errorf("DefaultEncoding() = %q, want p50k_base", got)
	}

	cfg.Tokenizer.DefaultEncoding = "o200k_base"
	if got := cfg.DefaultEncoding(); got != encoding.Default {
		t.Errorf("DefaultEncoding() with invalid value = %q, want %q", got, encoding.Default)
	}
}

func TestServerConfig_Addr(t *testing.T) {
	s := ServerConfig{Host: "0.0.0.0", Port: 9000}
	if got := s.Addr(); got != "0.0.0.0:9000" {
		t.Errorf("Addr() = %q", got)
	}
}

func TestTokenizerConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  TokenizerConfig
		wantErr bool
	}{
		{"cl100k_base", TokenizerConfig{DefaultEncoding: "cl100k_base"}, false},
		{"p50k_base", TokenizerConfig{DefaultEncoding: "p50k_base"}, false},
		{"r50k_base", TokenizerConfig{DefaultEncoding: "r50k_base"}, false},
		{"unsupported", TokenizerConfig{DefaultEncoding: "o200k_base"}, true},
		{"empty", TokenizerConfig{}, true},
		{"cache disabled", TokenizerConfig{DefaultEncoding: "cl100k_base", CountCacheSize: 0}, false},
		{"negative cache size", TokenizerConfig{DefaultEncoding: "cl100k_base", CountCacheSize: -1}, true},
		{"negative cache ttl", TokenizerConfig{DefaultEncoding: "cl100k_base", CountCacheTTL: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerConfig_Validate(t *testing.T) {
	valid := NewDefaultConfig().Server

	tests := []struct {
		name    string
		mutate  func(s *ServerConfig)
		wantErr bool
	}{
		{"defaults", func(s *ServerConfig) {}, false},
		{"zero port", func(s *ServerConfig) { s.Port = 0 }, true},
		{"port too large", func(s *ServerConfig) { s.Port = 70000 }, true},
		{"zero upload limit", func(s *ServerConfig) { s.MaxUploadBytes = 0 }, true},
		{"negative timeout", func(s *ServerConfig) { s.ReadTimeout = -time.Second }, true},
		{"zero timeouts allowed", func(s *ServerConfig) { s.ReadTimeout, s.WriteTimeout = 0, 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSessionConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  SessionConfig
		wantErr bool
	}{
		{"memory", SessionConfig{Store: StoreMemory, TTL: time.Hour}, false},
		{"sqlite", SessionConfig{Store: StoreSQLite, DatabasePath: "/tmp/x.db"}, false},
		{"unknown store", SessionConfig{Store: "redis"}, true},
		{"negative ttl", SessionConfig{Store: StoreMemory, TTL: -time.Minute}, true},
		{"negative cleanup", SessionConfig{Store: StoreMemory, CleanupPeriod: -time.Minute}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoggingConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  LoggingConfig
		wantErr bool
	}{
		{
			name:    "valid debug level",
			config:  LoggingConfig{Level: "debug", Format: "json"},
			wantErr: false,
		},
		{
			name:    "valid error level",
			config:  LoggingConfig{Level: "error", Format: "text"},
			wantErr: false,
		},
		{
			name:    "empty values use defaults",
			config:  LoggingConfig{},
			wantErr: false,
		},
		{
			name:    "invalid level",
			config:  LoggingConfig{Level: "trace", Format: "text"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			config:  LoggingConfig{Level: "info", Format: "xml"},
			wantErr: true,
		},
		{
			name:    "negative rotation",
			config:  LoggingConfig{Level: "info", MaxBackups: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTracingConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  TracingConfig
		wantErr bool
	}{
		{
			name:    "disabled ignores fields",
			config:  TracingConfig{Enabled: false, ExporterType: "bogus"},
			wantErr: false,
		},
		{
			name:    "stdout",
			config:  TracingConfig{Enabled: true, ExporterType: "stdout", SampleRate: 1, ServiceName: "tokencalc"},
			wantErr: false,
		},
		{
			name:    "otlp without endpoint",
			config:  TracingConfig{Enabled: true, ExporterType: "otlp", SampleRate: 1, ServiceName: "tokencalc"},
			wantErr: true,
		},
		{
			name:    "sample rate out of range",
			config:  TracingConfig{Enabled: true, ExporterType: "stdout", SampleRate: 1.5, ServiceName: "tokencalc"},
			wantErr: true,
		},
		{
			name:    "missing service name",
			config:  TracingConfig{Enabled: true, ExporterType: "stdout", SampleRate: 1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Tokenizer.DefaultEncoding = "gpt2"
	cfg.PDF.MaxPages = -1
	cfg.Server.Port = -5
	cfg.Logging.Level = "invalid"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	for _, section := range []string{"tokenizer:", "pdf:", "server:", "logging:"} {
		if !strings.Contains(err.Error(), section) {
			t.Errorf("expected error to mention %q, got: %v", section, err)
		}
	}
}
