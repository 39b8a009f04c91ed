// Package pdf provides best-effort plain-text extraction from PDF documents.
//
// It wraps github.com/ledongthuc/pdf and implements the application
// TextExtractor port. Page texts are concatenated in page order with
// nothing inserted between them; a page that fails contributes no text
// and is reported as a warning instead.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/jbctechsolutions/tokencalc/internal/application/ports"
	domainErrors "github.com/jbctechsolutions/tokencalc/internal/domain/errors"
	"github.com/jbctechsolutions/tokencalc/internal/domain/session"
	"github.com/jbctechsolutions/tokencalc/internal/infrastructure/logging"
	"github.com/jbctechsolutions/tokencalc/internal/infrastructure/tracing"
)

// Config holds configuration for PDF text extraction.
type Config struct {
	// MaxPages limits extraction to the first N pages (0 for all pages).
	MaxPages int
}

// DefaultConfig returns the default extraction configuration.
func DefaultConfig() Config {
	return Config{MaxPages: 0}
}

// pageSource is the view of a parsed document the page fold works on.
// Pages are 1-indexed.
type pageSource interface {
	NumPage() int
	PageText(n int) (text string, null bool, err error)
}

// readerSource adapts a ledongthuc reader to pageSource.
type readerSource struct {
	r *pdflib.Reader
}

func (s readerSource) NumPage() int {
	return s.r.NumPage()
}

func (s readerSource) PageText(n int) (string, bool, error) {
	p := s.r.Page(n)
	if p.V.IsNull() {
		return "", true, nil
	}
	text, err := p.GetPlainText(nil)
	return text, false, err
}

// Extractor extracts text from PDF byte streams.
type Extractor struct {
	config Config
	logger *logging.Logger
	tracer *tracing.Tracer
}

// Ensure Extractor implements ports.TextExtractor.
var _ ports.TextExtractor = (*Extractor)(nil)

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for extraction diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTracer sets the tracer used for extraction spans.
func WithTracer(t *tracing.Tracer) Option {
	return func(e *Extractor) {
		if t != nil {
			e.tracer = t
		}
	}
}

// NewExtractor creates a new Extractor with the given configuration.
func NewExtractor(cfg Config, opts ...Option) *Extractor {
	if cfg.MaxPages < 0 {
		cfg.MaxPages = 0
	}
	e := &Extractor{
		config: cfg,
		logger: logging.Nop(),
		tracer: tracing.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the plain text of the PDF in data.
//
// Only a document that cannot be opened yields an error (an EXTRACTION
// domain error). Failures on individual pages are collected in
// Extraction.Warnings and never abort the call.
func (e *Extractor) Extract(ctx context.Context, data []byte) (*ports.Extraction, error) {
	ctx, span := e.tracer.StartExtractSpan(ctx, len(data))
	start := time.Now()

	src, err := open(data)
	if err != nil {
		span.EndWithError(err)
		logging.LogExtractionFailed(ctx, e.logger, len(data), err)
		return nil, err
	}

	result := e.fold(src)

	span.SetPages(result.Pages, len(result.Warnings))
	span.End()
	logging.LogDocumentExtracted(ctx, e.logger, result.Pages, len(result.Warnings), len(result.Text), time.Since(start))
	return result, nil
}

// ExtractFile reads the PDF at path and extracts its text.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (*ports.Extraction, error) {
	if path == "" {
		return nil, domainErrors.NewExtractionError("empty PDF path provided", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domainErrors.WithContext(
			domainErrors.NewExtractionError("failed to read PDF", err),
			"path", path,
		)
	}
	return e.Extract(ctx, data)
}

// open parses the document container. The parser panics on some malformed
// input, so panics are converted to extraction errors.
func open(data []byte) (src pageSource, err error) {
	if len(data) == 0 {
		return nil, domainErrors.NewExtractionError("empty document", nil)
	}

	defer func() {
		if r := recover(); r != nil {
			src = nil
			err = domainErrors.NewExtractionError(fmt.Sprintf("failed to open PDF: %v", r), nil)
		}
	}()

	r, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, domainErrors.NewExtractionError("failed to open PDF", err)
	}
	// NumPage walks the catalog, which is where most malformed documents fail.
	_ = r.NumPage()
	return readerSource{r: r}, nil
}

// fold concatenates page texts in order. It never fails.
func (e *Extractor) fold(src pageSource) *ports.Extraction {
	total := src.NumPage()
	result := &ports.Extraction{Pages: total}

	limit := total
	if e.config.MaxPages > 0 && e.config.MaxPages < total {
		limit = e.config.MaxPages
	}

	var text strings.Builder
	for n := 1; n <= limit; n++ {
		pageText, err := pageTextSafe(src, n)
		if err != nil {
			result.Warnings = append(result.Warnings, session.PageWarning{
				Page:    n,
				Message: err.Error(),
			})
			continue
		}
		text.WriteString(pageText)
	}

	if limit < total {
		result.Warnings = append(result.Warnings, session.PageWarning{
			Page:    limit + 1,
			Message: fmt.Sprintf("page limit reached: %d of %d pages read", limit, total),
		})
	}

	result.Text = text.String()
	return result
}

// pageTextSafe reads one page, converting a panic into an error.
func pageTextSafe(src pageSource, n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("page %d: %v", n, r)
		}
	}()

	text, _, err = src.PageText(n)
	if err != nil {
		return "", fmt.Errorf("page %d: %w", n, err)
	}
	return text, nil
}
