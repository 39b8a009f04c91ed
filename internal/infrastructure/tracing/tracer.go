// Package tracing provides OpenTelemetry-based distributed tracing infrastructure.
// It supports stdout and OTLP exporters and provides span helpers for
// submissions, token counts and PDF extraction.
package tracing

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// TracerName is the name used for the tokencalc tracer.
	TracerName = "github.com/jbctechsolutions/tokencalc"

	// Version is the semantic version of the tracer.
	Version = "1.0.0"
)

// ExporterType defines the type of trace exporter.
type ExporterType string

const (
	ExporterNone   ExporterType = "none"
	ExporterStdout ExporterType = "stdout"
	ExporterOTLP   ExporterType = "otlp"
)

// Config holds tracing configuration.
type Config struct {
	Enabled      bool         // Whether tracing is enabled
	ExporterType ExporterType // Type of exporter to use
	OTLPEndpoint string       // OTLP collector endpoint (for OTLP exporter)
	ServiceName  string       // Service name for traces
	Environment  string       // Deployment environment (development, production)
	SampleRate   float64      // Sampling rate (0.0 to 1.0)
	Output       io.Writer    // Output for stdout exporter (defaults to os.Stdout)
}

// DefaultConfig returns sensible default tracing configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		ExporterType: ExporterNone,
		ServiceName:  "tokencalc",
		Environment:  "development",
		SampleRate:   1.0,
	}
}

// Tracer wraps an OpenTelemetry tracer with domain-specific functionality.
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	config   Config
}

// global is the package-level default tracer.
var (
	global     *Tracer
	globalOnce sync.Once
)

// Init initializes the global tracer with the provided configuration.
func Init(ctx context.Context, cfg Config) (*Tracer, error) {
	var err error
	globalOnce.Do(func() {
		global, err = New(ctx, cfg)
	})
	return global, err
}

// Default returns the global tracer, or a no-op tracer if not initialized.
func Default() *Tracer {
	if global == nil {
		return &Tracer{
			tracer: otel.Tracer(TracerName),
			config: DefaultConfig(),
		}
	}
	return global
}

// New creates a new Tracer with the provided configuration.
func New(ctx context.Context, cfg Config) (*Tracer, error) {
	if !cfg.Enabled || cfg.ExporterType == ExporterNone {
		return &Tracer{
			tracer: noop.NewTracerProvider().Tracer(TracerName),
			config: cfg,
		}, nil
	}

	// Create exporter
	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	// Create resource without merging with Default() to avoid schema URL conflicts.
	// The default resource's schema URL may conflict with our semconv version.
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(Version),
			attribute.String("deployment.environment", cfg.Environment),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Create sampler
	var sampler sdktrace.Sampler
	if cfg.SampleRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else if cfg.SampleRate <= 0.0 {
		sampler = sdktrace.NeverSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	// Create tracer provider
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	// Set global propagator
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Set global tracer provider
	otel.SetTracerProvider(provider)

	return &Tracer{
		tracer:   provider.Tracer(TracerName, trace.WithInstrumentationVersion(Version)),
		provider: provider,
		config:   cfg,
	}, nil
}

// createExporter creates the appropriate exporter based on configuration.
func createExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.ExporterType {
	case ExporterStdout:
		opts := []stdouttrace.Option{
			stdouttrace.WithPrettyPrint(),
		}
		if cfg.Output != nil {
			opts = append(opts, stdouttrace.WithWriter(cfg.Output))
		}
		return stdouttrace.New(opts...)

	case ExporterOTLP:
		opts := []otlptracehttp.Option{
			otlptracehttp.WithInsecure(),
		}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		return otlptracehttp.New(ctx, opts...)

	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.ExporterType)
	}
}

// Shutdown gracefully shuts down the tracer provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

// Start starts a new span with the given name.
func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// SpanFromContext returns the current span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// --- Domain-specific span helpers ---

// SubmitSpan covers one submission handled by the interaction controller.
type SubmitSpan struct {
	span trace.Span
}

// StartSubmitSpan starts a span for a controller submission.
func (t *Tracer) StartSubmitSpan(ctx context.Context, mode, enc string) (context.Context, *SubmitSpan) {
	ctx, span := t.tracer.Start(ctx, "controller.submit",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("submit.mode", mode),
			attribute.String("submit.encoding", enc),
		),
	)
	return ctx, &SubmitSpan{span: span}
}

// SetOutcome records the phase the submission ended in and the resulting count.
func (s *SubmitSpan) SetOutcome(phase string, tokens int) {
	s.span.SetAttributes(
		attribute.String("submit.phase", phase),
		attribute.Int("submit.tokens", tokens),
	)
}

// SetRejected marks a submission turned away before counting.
func (s *SubmitSpan) SetRejected(reason string) {
	s.span.SetAttributes(attribute.String("submit.rejected", reason))
}

// End ends the submit span with success status.
func (s *SubmitSpan) End() {
	s.span.SetStatus(codes.Ok, "submission handled")
	s.span.End()
}

// EndWithError ends the submit span with error status.
func (s *SubmitSpan) EndWithError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
	s.span.End()
}

// CountSpan covers one call into the tokenization engine.
type CountSpan struct {
	span trace.Span
}

// StartCountSpan starts a span for a token count.
func (t *Tracer) StartCountSpan(ctx context.Context, enc string, chars int) (context.Context, *CountSpan) {
	ctx, span := t.tracer.Start(ctx, "tokenizer.count",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("tokenizer.encoding", enc),
			attribute.Int("tokenizer.chars", chars),
		),
	)
	return ctx, &CountSpan{span: span}
}

// SetTokens records the number of tokens produced.
func (c *CountSpan) SetTokens(tokens int) {
	c.span.SetAttributes(attribute.Int("tokenizer.tokens", tokens))
}

// End ends the count span with success status.
func (c *CountSpan) End() {
	c.span.SetStatus(codes.Ok, "count completed")
	c.span.End()
}

// EndWithError ends the count span with error status.
func (c *CountSpan) EndWithError(err error) {
	c.span.RecordError(err)
	c.span.SetStatus(codes.Error, err.Error())
	c.span.End()
}

// ExtractSpan covers text extraction from one PDF document.
type ExtractSpan struct {
	span trace.Span
}

// StartExtractSpan starts a span for PDF text extraction.
func (t *Tracer) StartExtractSpan(ctx context.Context, size int) (context.Context, *ExtractSpan) {
	ctx, span := t.tracer.Start(ctx, "pdf.extract",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.Int("pdf.bytes", size)),
	)
	return ctx, &ExtractSpan{span: span}
}

// SetPages records the page count and how many pages yielded no text.
func (e *ExtractSpan) SetPages(pages, skipped int) {
	e.span.SetAttributes(
		attribute.Int("pdf.pages", pages),
		attribute.Int("pdf.skipped_pages", skipped),
	)
}

// End ends the extract span with success status.
func (e *ExtractSpan) End() {
	e.span.SetStatus(codes.Ok, "extraction completed")
	e.span.End()
}

// EndWithError ends the extract span with error status.
func (e *ExtractSpan) EndWithError(err error) {
	e.span.RecordError(err)
	e.span.SetStatus(codes.Error, err.Error())
	e.span.End()
}

// AddEvent adds an event to the current span.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span.
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
}

// SetAttribute sets an attribute on the current span.
func SetAttribute(ctx context.Context, key string, value any) {
	span := trace.SpanFromContext(ctx)
	switch v := value.(type) {
	case string:
		span.SetAttributes(attribute.String(key, v))
	case int:
		span.SetAttributes(attribute.Int(key, v))
	case int64:
		span.SetAttributes(attribute.Int64(key, v))
	case float64:
		span.SetAttributes(attribute.Float64(key, v))
	case bool:
		span.SetAttributes(attribute.Bool(key, v))
	}
}
