// Package tokencount defines the outcome of a token count.
package tokencount

import (
	"fmt"

	"github.com/jbctechsolutions/tokencalc/internal/domain/encoding"
	domainErrors "github.com/jbctechsolutions/tokencalc/internal/domain/errors"
)

// Result pairs a token count with the scheme that produced it.
// A Result is always written as a whole.
type Result struct {
	Count    int         `json:"count"`
	Encoding encoding.ID `json:"encoding"`
}

// NewResult validates and builds a Result.
func NewResult(count int, enc encoding.ID) (Result, error) {
	r := Result{Count: count, Encoding: enc}
	if err := r.Validate(); err != nil {
		return Result{}, err
	}
	return r, nil
}

// Validate checks that the count is non-negative and the encoding supported.
func (r Result) Validate() error {
	if r.Count < 0 {
		return domainErrors.NewError(domainErrors.CodeValidation,
			fmt.Sprintf("token count must be non-negative, got %d", r.Count), nil)
	}
	if !r.Encoding.IsValid() {
		return domainErrors.NewError(domainErrors.CodeValidation,
			fmt.Sprintf("unsupported encoding %q", r.Encoding), domainErrors.ErrUnsupportedEncoding)
	}
	return nil
}

// Label returns the heading shown next to the count.
func (r Result) Label() string {
	return fmt.Sprintf("Total tokens for %s encoding", r.Encoding)
}

// String renders the result the way it is shown to users.
func (r Result) String() string {
	return fmt.Sprintf("%s: %d", r.Label(), r.Count)
}
