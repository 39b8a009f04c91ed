// Package web serves the token calculator as an HTML form and a small JSON API.
package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jbctechsolutions/tokencalc/internal/application/controller"
	"github.com/jbctechsolutions/tokencalc/internal/application/ports"
	"github.com/jbctechsolutions/tokencalc/internal/domain/encoding"
	"github.com/jbctechsolutions/tokencalc/internal/domain/session"
	"github.com/jbctechsolutions/tokencalc/internal/domain/tokencount"
	"github.com/jbctechsolutions/tokencalc/internal/infrastructure/logging"
)

// Controller is the interaction state machine the form pages drive.
type Controller interface {
	Apply(ctx context.Context, st *session.State, events ...controller.Event) (*session.State, controller.Render)
}

// Counter counts tokens for the JSON API.
type Counter interface {
	ports.TokenCounter
	CountAll(ctx context.Context, text string) ([]tokencount.Result, error)
}

// Config configures the Server.
type Config struct {
	Addr            string
	MaxUploadBytes  int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	DefaultEncoding encoding.ID

	// SecureCookie marks the session cookie Secure; enable behind HTTPS.
	SecureCookie bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            "127.0.0.1:8501",
		MaxUploadBytes:  200 << 20,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		DefaultEncoding: encoding.Default,
	}
}

// Server is the HTTP host for the controller.
type Server struct {
	config     Config
	controller Controller
	counter    Counter
	store      ports.SessionStore
	logger     *logging.Logger
	page       *template.Template
	locks      *sessionLocks
	mux        *http.ServeMux
	httpServer *http.Server
}

// NewServer creates a Server. The controller drives the form pages, the
// counter serves the JSON API and store keeps per-browser session state.
func NewServer(cfg Config, ctrl Controller, counter Counter, store ports.SessionStore, logger *logging.Logger) (*Server, error) {
	if ctrl == nil || counter == nil || store == nil {
		return nil, errors.New("web: controller, counter and store are required")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultConfig().MaxUploadBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}
	if !cfg.DefaultEncoding.IsValid() {
		cfg.DefaultEncoding = encoding.Default
	}

	page, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("web: parse templates: %w", err)
	}

	s := &Server{
		config:     cfg,
		controller: ctrl,
		counter:    counter,
		store:      store,
		logger:     logger,
		page:       page,
		locks:      newSessionLocks(),
		mux:        http.NewServeMux(),
	}
	s.routes()

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Underlying().Handler(), slog.LevelWarn),
	}
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /preview", s.handlePreview)
	s.mux.HandleFunc("POST /count", s.handleCount)
	s.mux.HandleFunc("GET /api/encodings", s.handleEncodings)
	s.mux.HandleFunc("POST /api/count", s.handleAPICount)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return newRequestLogger(s.logger, "/healthz").Handler(s.mux)
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe listens on the configured address and serves until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("web server listening", "addr", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down web server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown error: %w", err)
	}
	return nil
}
