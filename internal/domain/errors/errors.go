// Package errors provides domain-specific errors for the tokencalc application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common domain error conditions.
var (
	ErrMissingInput        = errors.New("no input text provided")
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
	ErrTokenizationFailed  = errors.New("tokenization failed")
	ErrExtractionFailed    = errors.New("pdf text extraction failed")
	ErrSessionNotFound     = errors.New("session not found")
)

// ErrorCode categorizes errors for handling and reporting.
type ErrorCode string

const (
	CodeMissingInput  ErrorCode = "MISSING_INPUT"
	CodeExtraction    ErrorCode = "EXTRACTION"
	CodeTokenization  ErrorCode = "TOKENIZATION"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeConfiguration ErrorCode = "CONFIG"
)

// CalcError wraps errors with additional context for debugging and handling.
type CalcError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error returns a formatted error string including the code, message, and cause if present.
func (e *CalcError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for use with errors.Is and errors.As.
func (e *CalcError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for e's category, so a
// TOKENIZATION or EXTRACTION error matches its sentinel whatever its cause.
func (e *CalcError) Is(target error) bool {
	switch e.Code {
	case CodeTokenization:
		return target == ErrTokenizationFailed
	case CodeExtraction:
		return target == ErrExtractionFailed
	case CodeMissingInput:
		return target == ErrMissingInput
	}
	return false
}

// NewError creates a new CalcError with the given code, message, and optional cause.
func NewError(code ErrorCode, message string, cause error) *CalcError {
	return &CalcError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds a key-value pair to the error's context and returns the error.
func WithContext(err *CalcError, key string, value interface{}) *CalcError {
	if err.Context == nil {
		err.Context = make(map[string]interface{})
	}
	err.Context[key] = value
	return err
}

// NewMissingInputWarning reports a submission without any text to count.
func NewMissingInputWarning() *CalcError {
	return NewError(CodeMissingInput, "please provide text or upload a PDF file", ErrMissingInput)
}

// NewTokenizationError wraps a failure of the tokenization engine.
// A nil cause is recorded as ErrTokenizationFailed.
func NewTokenizationError(message string, cause error) *CalcError {
	if cause == nil {
		cause = ErrTokenizationFailed
	}
	return NewError(CodeTokenization, message, cause)
}

// NewExtractionError wraps a document-level PDF failure.
// A nil cause is recorded as ErrExtractionFailed.
func NewExtractionError(message string, cause error) *CalcError {
	if cause == nil {
		cause = ErrExtractionFailed
	}
	return NewError(CodeExtraction, message, cause)
}

// CodeOf returns the code of the first CalcError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ce *CalcError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsTokenizationError reports whether err is a TOKENIZATION error.
func IsTokenizationError(err error) bool {
	return CodeOf(err) == CodeTokenization
}

// IsExtractionError reports whether err is an EXTRACTION error.
func IsExtractionError(err error) bool {
	return CodeOf(err) == CodeExtraction
}

// IsMissingInput reports whether err is a MISSING_INPUT warning.
func IsMissingInput(err error) bool {
	return CodeOf(err) == CodeMissingInput
}

// Is reports whether err matches target using errors.Is semantics.
// This is a convenience wrapper around the standard library's errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target and sets target to that error value.
// This is a convenience wrapper around the standard library's errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
