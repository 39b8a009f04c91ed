// Package application provides application-level services and dependency injection.
package application

import (
	"context"
	"fmt"
	"os"

	"github.com/jbctechsolutions/tokencalc/internal/adapters/cache"
	"github.com/jbctechsolutions/tokencalc/internal/adapters/sqlite"
	"github.com/jbctechsolutions/tokencalc/internal/application/controller"
	"github.com/jbctechsolutions/tokencalc/internal/application/ports"
	"github.com/jbctechsolutions/tokencalc/internal/infrastructure/config"
	"github.com/jbctechsolutions/tokencalc/internal/infrastructure/logging"
	"github.com/jbctechsolutions/tokencalc/internal/infrastructure/pdf"
	"github.com/jbctechsolutions/tokencalc/internal/infrastructure/storage"
	"github.com/jbctechsolutions/tokencalc/internal/infrastructure/tokenizer"
	"github.com/jbctechsolutions/tokencalc/internal/infrastructure/tracing"
)

// Container holds all application dependencies and provides a central
// point for dependency injection. It manages the lifecycle of services
// and ensures proper initialization order.
type Container struct {
	config  *config.Config
	verbose bool // raises the log level to debug

	// Observability
	logger *logging.Logger
	tracer *tracing.Tracer

	// Adapters; counter memoizes engine's counts
	engine    *tokenizer.Counter
	counter   *cache.CountCache
	extractor *pdf.Extractor

	// Session storage; dbConn is nil for the in-memory store
	dbConn       *sqlite.Connection
	sessionStore ports.SessionStore

	controller *controller.Controller
}

// NewContainer creates a new dependency injection container with all services
// initialized based on the provided configuration.
func NewContainer(cfg *config.Config, verbose bool) (*Container, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	c := &Container{
		config:  cfg,
		verbose: verbose,
	}

	if err := c.initObservability(); err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	if err := c.initTokenizer(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize tokenizer: %w", err)
	}

	c.extractor = pdf.NewExtractor(
		pdf.Config{MaxPages: cfg.PDF.MaxPages},
		pdf.WithLogger(c.logger),
		pdf.WithTracer(c.tracer),
	)

	if err := c.initSessionStore(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}

	c.controller = controller.New(c.counter, c.extractor,
		controller.WithLogger(c.logger),
		controller.WithTracer(c.tracer),
	)

	return c, nil
}

// initObservability sets up the logger and tracer.
func (c *Container) initObservability() error {
	logLevel := logging.Level(c.config.Logging.Level)
	if c.verbose {
		logLevel = logging.LevelDebug
	}

	logFormat := logging.FormatText
	if c.config.Logging.Format == "json" {
		logFormat = logging.FormatJSON
	}

	c.logger = logging.New(logging.Config{
		Level:      logLevel,
		Format:     logFormat,
		Output:     os.Stderr,
		File:       c.config.Logging.File,
		MaxSizeMB:  c.config.Logging.MaxSizeMB,
		MaxBackups: c.config.Logging.MaxBackups,
		MaxAgeDays: c.config.Logging.MaxAgeDays,
		Compress:   c.config.Logging.Compress,
	})

	if !c.config.Observability.Tracing.Enabled {
		c.tracer = tracing.Default()
		return nil
	}

	tracer, err := tracing.New(context.Background(), tracing.Config{
		Enabled:      true,
		ExporterType: tracing.ExporterType(c.config.Observability.Tracing.ExporterType),
		OTLPEndpoint: c.config.Observability.Tracing.OTLPEndpoint,
		ServiceName:  c.config.Observability.Tracing.ServiceName,
		Environment:  "production",
		SampleRate:   c.config.Observability.Tracing.SampleRate,
		Output:       os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to create tracer: %w", err)
	}
	c.tracer = tracer
	return nil
}

// initTokenizer chooses where vocabularies come from and builds the counter.
func (c *Container) initTokenizer() error {
	if c.config.Tokenizer.Offline {
		tokenizer.UseOfflineVocabulary()
	} else if dir := c.config.Tokenizer.CacheDir; dir != "" {
		if err := tokenizer.UseCacheDir(dir); err != nil {
			return err
		}
	}

	c.engine = tokenizer.NewCounter(
		tokenizer.WithLogger(c.logger),
		tokenizer.WithTracer(c.tracer),
	)
	c.counter = cache.NewCountCache(c.engine, c.config.Tokenizer.CountCacheSize, c.config.Tokenizer.CountCacheTTL)
	return nil
}

// initSessionStore opens the configured session store.
func (c *Container) initSessionStore() error {
	ttl := c.config.Session.TTL

	if c.config.Session.Store != config.StoreSQLite {
		c.sessionStore = storage.NewMemoryStore(ttl)
		return nil
	}

	conn, err := sqlite.NewConnection(c.config.Session.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	if err := conn.Open(); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db, err := conn.DB()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to get database handle: %w", err)
	}

	c.dbConn = conn
	c.sessionStore = storage.NewSessionRepository(db, ttl)
	return nil
}

// StartSessionCleanup removes expired sessions periodically until ctx ends.
func (c *Container) StartSessionCleanup(ctx context.Context) {
	storage.StartCleanupTicker(ctx, c.sessionStore, c.config.Session.CleanupPeriod, c.logger)
}

// Close releases all resources held by the container.
func (c *Container) Close() error {
	ctx := context.Background()

	if c.tracer != nil {
		_ = c.tracer.Shutdown(ctx)
	}
	if c.logger != nil {
		_ = c.logger.Close()
	}

	if c.dbConn != nil {
		return c.dbConn.Close()
	}
	return nil
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the application logger.
func (c *Container) Logger() *logging.Logger {
	return c.logger
}

// Tracer returns the application tracer.
func (c *Container) Tracer() *tracing.Tracer {
	return c.tracer
}

// Counter returns the token counter shared by every host.
func (c *Container) Counter() *cache.CountCache {
	return c.counter
}

// Engine returns the uncached tokenizer behind Counter.
func (c *Container) Engine() *tokenizer.Counter {
	return c.engine
}

// Extractor returns the PDF text extractor.
func (c *Container) Extractor() *pdf.Extractor {
	return c.extractor
}

// SessionStore returns the configured session store.
func (c *Container) SessionStore() ports.SessionStore {
	return c.sessionStore
}

// Controller returns the interaction controller.
func (c *Container) Controller() *controller.Controller {
	return c.controller
}
