// Package ports defines the application layer port interfaces following hexagonal architecture.
// Ports are abstractions that allow the application core to interact with external systems
// (adapters) without knowing their implementation details.
package ports

import (
	"context"

	"github.com/jbctechsolutions/tokencalc/internal/domain/encoding"
	"github.com/jbctechsolutions/tokencalc/internal/domain/session"
)

// -----------------------------------------------------------------------------
// Token Counting Port
// -----------------------------------------------------------------------------

// TokenCounter maps text to the number of tokens it occupies under a scheme.
//
// Implementations must be deterministic: the same text and encoding always
// yield the same count. Empty text counts as zero for every supported
// encoding. Unsupported encodings and engine failures are reported as
// TOKENIZATION domain errors, never by falling back to another scheme.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string, enc encoding.ID) (int, error)
}

// -----------------------------------------------------------------------------
// Document Text Extraction Port
// -----------------------------------------------------------------------------

// Extraction is the best-effort plain text of a document.
type Extraction struct {
	// Text is the concatenation of every page's text in page order,
	// with nothing inserted between pages.
	Text string

	// Pages is the number of pages the document declares.
	Pages int

	// Warnings lists pages that contributed no text because extraction failed.
	Warnings []session.PageWarning
}

// TextExtractor turns a PDF byte stream into plain text.
//
// Page-level failures are reported in Extraction.Warnings and never abort
// the call. Only a document that cannot be opened at all yields an
// EXTRACTION domain error.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (*Extraction, error)
}
