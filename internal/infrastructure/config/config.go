// Package config provides configuration structs and utilities for the tokencalc application.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/jbctechsolutions/tokencalc/internal/domain/encoding"
)

// Config represents the root configuration for the tokencalc application.
type Config struct {
	Tokenizer     TokenizerConfig     `yaml:"tokenizer"`
	PDF           PDFConfig           `yaml:"pdf"`
	Server        ServerConfig        `yaml:"server"`
	Session       SessionConfig       `yaml:"session"`
	Watch         WatchConfig         `yaml:"watch"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// TokenizerConfig holds configuration for token counting.
type TokenizerConfig struct {
	DefaultEncoding string `yaml:"default_encoding"`
	Offline         bool   `yaml:"offline"`   // use vocabularies embedded in the binary
	CacheDir        string `yaml:"cache_dir"` // download cache when offline is false

	// CountCacheSize bounds the number of memoized counts; 0 disables the cache.
	CountCacheSize int           `yaml:"count_cache_size"`
	CountCacheTTL  time.Duration `yaml:"count_cache_ttl"`
}

// PDFConfig holds configuration for PDF text extraction.
type PDFConfig struct {
	MaxPages int `yaml:"max_pages"` // 0 reads every page
}

// ServerConfig holds configuration for the web form server.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SessionConfig holds configuration for session storage.
type SessionConfig struct {
	Store         string        `yaml:"store"`         // memory, sqlite
	DatabasePath  string        `yaml:"database_path"` // sqlite only
	TTL           time.Duration `yaml:"ttl"`
	CleanupPeriod time.Duration `yaml:"cleanup_period"`
}

// WatchConfig holds configuration for the file watcher.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// LoggingConfig holds configuration for application logging.
type LoggingConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // json, text
	File       string `yaml:"file"`   // empty logs to stderr
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// ObservabilityConfig holds configuration for observability features.
type ObservabilityConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig holds configuration for distributed tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`       // Whether tracing is enabled
	ExporterType string  `yaml:"exporter_type"` // none, stdout, otlp
	OTLPEndpoint string  `yaml:"otlp_endpoint"` // OTLP collector endpoint
	SampleRate   float64 `yaml:"sample_rate"`   // Sampling rate (0.0 to 1.0)
	ServiceName  string  `yaml:"service_name"`  // Service name for traces
}

// Session store kinds.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Default configuration values.
const (
	DefaultHost            = "127.0.0.1"
	DefaultPort            = 8501
	DefaultMaxUploadBytes  = 200 * 1024 * 1024 // 200 MB
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	DefaultCountCacheSize = 1024
	DefaultCountCacheTTL  = time.Hour

	DefaultSessionStore         = StoreMemory
	DefaultSessionTTL           = 24 * time.Hour
	DefaultSessionCleanupPeriod = 10 * time.Minute

	DefaultWatchDebounce = 100 * time.Millisecond

	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultLogMaxSizeMB  = 10
	DefaultLogMaxBackups = 3
	DefaultLogMaxAgeDays = 28

	DefaultTracingEnabled      = false
	DefaultTracingExporterType = "none"
	DefaultTracingSampleRate   = 1.0
	DefaultTracingServiceName  = "tokencalc"
)

// Valid log levels.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Valid log formats.
var validLogFormats = map[string]bool{
	"json": true,
	"text": true,
}

// Valid tracing exporter types.
var validTracingExporterTypes = map[string]bool{
	"none":   true,
	"stdout": true,
	"otlp":   true,
}

var validSessionStores = map[string]bool{
	StoreMemory: true,
	StoreSQLite: true,
}

// NewDefaultConfig creates a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		Tokenizer: TokenizerConfig{
			DefaultEncoding: encoding.Default.String(),
			Offline:         true,
			CountCacheSize:  DefaultCountCacheSize,
			CountCacheTTL:   DefaultCountCacheTTL,
		},
		PDF: PDFConfig{
			MaxPages: 0,
		},
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			MaxUploadBytes:  DefaultMaxUploadBytes,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Session: SessionConfig{
			Store:         DefaultSessionStore,
			TTL:           DefaultSessionTTL,
			CleanupPeriod: DefaultSessionCleanupPeriod,
		},
		Watch: WatchConfig{
			Debounce: DefaultWatchDebounce,
		},
		Logging: LoggingConfig{
			Level:      DefaultLogLevel,
			Format:     DefaultLogFormat,
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
		},
		Observability: ObservabilityConfig{
			Tracing: TracingConfig{
				Enabled:      DefaultTracingEnabled,
				ExporterType: DefaultTracingExporterType,
				SampleRate:   DefaultTracingSampleRate,
				ServiceName:  DefaultTracingServiceName,
			},
		},
	}
}

// DefaultEncoding returns the configured default encoding, falling back to
// the built-in default when the configured value is invalid.
func (c *Config) DefaultEncoding() encoding.ID {
	id, err := encoding.Parse(c.Tokenizer.DefaultEncoding)
	if err != nil {
		return encoding.Default
	}
	return id
}

// Validate checks if the configuration is valid and returns an error if not.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Tokenizer.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tokenizer: %w", err))
	}

	if err := c.PDF.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pdf: %w", err))
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}

	if err := c.Session.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("session: %w", err))
	}

	if err := c.Watch.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("watch: %w", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("observability: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks if the TokenizerConfig is valid.
func (t *TokenizerConfig) Validate() error {
	var errs []error
	if _, err := encoding.Parse(t.DefaultEncoding); err != nil {
		errs = append(errs, fmt.Errorf("invalid default_encoding %q: must be one of %v", t.DefaultEncoding, encoding.Names()))
	}
	if t.CountCacheSize < 0 {
		errs = append(errs, errors.New("count_cache_size must be non-negative"))
	}
	if t.CountCacheTTL < 0 {
		errs = append(errs, errors.New("count_cache_ttl must be non-negative"))
	}
	return errors.Join(errs...)
}

// Validate checks if the PDFConfig is valid.
func (p *PDFConfig) Validate() error {
	if p.MaxPages < 0 {
		return errors.New("max_pages must be non-negative")
	}
	return nil
}

// Validate checks if the ServerConfig is valid.
func (s *ServerConfig) Validate() error {
	var errs []error

	if s.Port <= 0 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d: must be between 1 and 65535", s.Port))
	}
	if s.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("max_upload_bytes must be positive"))
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 || s.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("timeouts must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks if the SessionConfig is valid.
func (s *SessionConfig) Validate() error {
	var errs []error

	if !validSessionStores[s.Store] {
		errs = append(errs, fmt.Errorf("invalid store %q: must be one of memory, sqlite", s.Store))
	}
	if s.TTL < 0 {
		errs = append(errs, errors.New("ttl must be non-negative"))
	}
	if s.CleanupPeriod < 0 {
		errs = append(errs, errors.New("cleanup_period must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks if the WatchConfig is valid.
func (w *WatchConfig) Validate() error {
	if w.Debounce < 0 {
		return errors.New("debounce must be non-negative")
	}
	return nil
}

// Validate checks if the LoggingConfig is valid.
func (l *LoggingConfig) Validate() error {
	var errs []error

	if l.Level != "" && !validLogLevels[l.Level] {
		errs = append(errs, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", l.Level))
	}

	if l.Format != "" && !validLogFormats[l.Format] {
		errs = append(errs, fmt.Errorf("invalid log format %q: must be one of json, text", l.Format))
	}

	if l.MaxSizeMB < 0 || l.MaxBackups < 0 || l.MaxAgeDays < 0 {
		errs = append(errs, errors.New("rotation settings must be non-negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Validate checks if the ObservabilityConfig is valid.
func (o *ObservabilityConfig) Validate() error {
	if err := o.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return nil
}

// Validate checks if the TracingConfig is valid.
func (t *TracingConfig) Validate() error {
	var errs []error

	if t.Enabled {
		if t.ExporterType != "" && !validTracingExporterTypes[t.ExporterType] {
			errs = append(errs, fmt.Errorf("invalid exporter_type %q: must be one of none, stdout, otlp", t.ExporterType))
		}
		if t.ExporterType == "otlp" && t.OTLPEndpoint == "" {
			errs = append(errs, errors.New("otlp_endpoint is required when exporter_type is 'otlp'"))
		}
		if t.SampleRate < 0 || t.SampleRate > 1 {
			errs = append(errs, errors.New("sample_rate must be between 0.0 and 1.0"))
		}
		if t.ServiceName == "" {
			errs = append(errs, errors.New("service_name is required when tracing is enabled"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
