// Package encoding defines the closed set of tokenization schemes tokencalc
// can count against.
package encoding

import (
	"fmt"
	"strings"

	domainErrors "github.com/jbctechsolutions/tokencalc/internal/domain/errors"
)

// ID names a BPE tokenization scheme.
type ID string

const (
	// CL100KBase is the modern general-purpose scheme (GPT-3.5/GPT-4 family).
	CL100KBase ID = "cl100k_base"
	// P50KBase is the legacy Codex/text-davinci scheme.
	P50KBase ID = "p50k_base"
	// R50KBase is the legacy GPT-3 scheme.
	R50KBase ID = "r50k_base"
)

// Default is the scheme selected when the user makes no choice.
const Default = CL100KBase

// supported lists every scheme in display order.
var supported = []ID{CL100KBase, P50KBase, R50KBase}

var descriptions = map[ID]string{
	CL100KBase: "modern general-purpose scheme (gpt-4, gpt-3.5-turbo, text-embedding-ada-002)",
	P50KBase:   "legacy scheme (codex, text-davinci-002/003)",
	R50KBase:   "legacy scheme (gpt-3 davinci, curie, babbage, ada)",
}

// Supported returns every supported scheme in display order.
func Supported() []ID {
	out := make([]ID, len(supported))
	copy(out, supported)
	return out
}

// String returns the string representation of the encoding.
func (id ID) String() string {
	return string(id)
}

// IsValid returns true if the id is one of the supported schemes.
func (id ID) IsValid() bool {
	switch id {
	case CL100KBase, P50KBase, R50KBase:
		return true
	default:
		return false
	}
}

// IsDefault reports whether id is the default scheme.
func (id ID) IsDefault() bool {
	return id == Default
}

// Description returns a short human-readable summary of the scheme.
func (id ID) Description() string {
	return descriptions[id]
}

// Parse converts user input into an ID. Matching ignores case and
// surrounding whitespace. Unknown values are rejected with a TOKENIZATION
// error wrapping ErrUnsupportedEncoding; there is no fallback to Default.
func Parse(s string) (ID, error) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	if !id.IsValid() {
		return "", domainErrors.WithContext(
			domainErrors.NewTokenizationError(
				fmt.Sprintf("unknown encoding %q (supported: %s)", s, strings.Join(Names(), ", ")),
				domainErrors.ErrUnsupportedEncoding,
			),
			"encoding", s,
		)
	}
	return id, nil
}

// Names returns the supported scheme names in display order.
func Names() []string {
	names := make([]string, len(supported))
	for i, id := range supported {
		names[i] = string(id)
	}
	return names
}
