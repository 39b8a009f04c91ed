package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable the overlay reads.
const EnvPrefix = "TOKENCALC_"

// LookupFunc looks up one environment variable.
type LookupFunc func(key string) (string, bool)

// Environment returns a lookup over the process environment backed by the
// given .env files. Process variables win over file values and earlier
// files win over later ones. Missing files are skipped.
func Environment(files ...string) (LookupFunc, error) {
	fileVals := make(map[string]string)
	for _, f := range files {
		vals, err := godotenv.Read(f)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read env file %s: %w", f, err)
		}
		for k, v := range vals {
			if _, seen := fileVals[k]; !seen {
				fileVals[k] = v
			}
		}
	}

	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVals[key]
		return v, ok
	}, nil
}

// ApplyEnv overlays TOKENCALC_* variables onto cfg. Every malformed value
// is reported; well-formed values are applied regardless.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	o := envOverlay{lookup: lookup}

	o.str("ENCODING", &cfg.Tokenizer.DefaultEncoding)
	o.boolean("OFFLINE", &cfg.Tokenizer.Offline)
	o.str("CACHE_DIR", &cfg.Tokenizer.CacheDir)
	o.integer("COUNT_CACHE_SIZE", &cfg.Tokenizer.CountCacheSize)

	o.integer("PDF_MAX_PAGES", &cfg.PDF.MaxPages)

	o.str("HOST", &cfg.Server.Host)
	o.integer("PORT", &cfg.Server.Port)
	o.int64("MAX_UPLOAD_BYTES", &cfg.Server.MaxUploadBytes)

	o.str("SESSION_STORE", &cfg.Session.Store)
	o.str("DATABASE_PATH", &cfg.Session.DatabasePath)
	o.duration("SESSION_TTL", &cfg.Session.TTL)

	o.duration("WATCH_DEBOUNCE", &cfg.Watch.Debounce)

	o.str("LOG_LEVEL", &cfg.Logging.Level)
	o.str("LOG_FORMAT", &cfg.Logging.Format)
	o.str("LOG_FILE", &cfg.Logging.File)

	var exporter string
	if o.str("TRACING_EXPORTER", &exporter) {
		cfg.Observability.Tracing.ExporterType = exporter
		cfg.Observability.Tracing.Enabled = exporter != "none"
	}
	o.str("OTLP_ENDPOINT", &cfg.Observability.Tracing.OTLPEndpoint)

	return errors.Join(o.errs...)
}

type envOverlay struct {
	lookup LookupFunc
	errs   []error
}

func (o *envOverlay) get(name string) (string, bool) {
	v, ok := o.lookup(EnvPrefix + name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (o *envOverlay) str(name string, dst *string) bool {
	v, ok := o.get(name)
	if ok {
		*dst = v
	}
	return ok
}

func (o *envOverlay) boolean(name string, dst *bool) {
	if v, ok := o.get(name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			o.errs = append(o.errs, fmt.Errorf("%s%s: invalid boolean %q", EnvPrefix, name, v))
			return
		}
		*dst = b
	}
}

func (o *envOverlay) integer(name string, dst *int) {
	if v, ok := o.get(name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			o.errs = append(o.errs, fmt.Errorf("%s%s: invalid integer %q", EnvPrefix, name, v))
			return
		}
		*dst = n
	}
}

func (o *envOverlay) int64(name string, dst *int64) {
	if v, ok := o.get(name); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			o.errs = append(o.errs, fmt.Errorf("%s%s: invalid integer %q", EnvPrefix, name, v))
			return
		}
		*dst = n
	}
}

func (o *envOverlay) duration(name string, dst *time.Duration) {
	if v, ok := o.get(name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			o.errs = append(o.errs, fmt.Errorf("%s%s: invalid duration %q", EnvPrefix, name, v))
			return
		}
		*dst = d
	}
}
