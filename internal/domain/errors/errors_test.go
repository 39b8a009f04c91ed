package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrMissingInput", ErrMissingInput, "no input text provided"},
		{"ErrUnsupportedEncoding", ErrUnsupportedEncoding, "unsupported encoding"},
		{"ErrTokenizationFailed", ErrTokenizationFailed, "tokenization failed"},
		{"ErrExtractionFailed", ErrExtractionFailed, "pdf text extraction failed"},
		{"ErrSessionNotFound", ErrSessionNotFound, "session not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCalcError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *CalcError
		want string
	}{
		{
			name: "with cause",
			err:  NewError(CodeTokenization, "encoding p99k_base", ErrUnsupportedEncoding),
			want: "[TOKENIZATION] encoding p99k_base: unsupported encoding",
		},
		{
			name: "without cause",
			err:  NewError(CodeNotFound, "resource not found", nil),
			want: "[NOT_FOUND] resource not found",
		},
		{
			name: "missing input",
			err:  NewMissingInputWarning(),
			want: "[MISSING_INPUT] please provide text or upload a PDF file: no input text provided",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCalcError_Unwrap(t *testing.T) {
	cause := ErrExtractionFailed
	err := NewError(CodeExtraction, "open failed", cause)

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if unwrapped := NewError(CodeValidation, "bad", nil).Unwrap(); unwrapped != nil {
		t.Errorf("Unwrap() = %v, want nil", unwrapped)
	}
}

func TestNewError(t *testing.T) {
	err := NewError(CodeConfiguration, "config invalid", ErrUnsupportedEncoding)

	if err.Code != CodeConfiguration {
		t.Errorf("Code = %v, want %v", err.Code, CodeConfiguration)
	}
	if err.Message != "config invalid" {
		t.Errorf("Message = %v, want %v", err.Message, "config invalid")
	}
	if err.Cause != ErrUnsupportedEncoding {
		t.Errorf("Cause = %v, want %v", err.Cause, ErrUnsupportedEncoding)
	}
	if err.Context == nil {
		t.Error("Context should be initialized, got nil")
	}
}

func TestWithContext(t *testing.T) {
	err := &CalcError{Code: CodeValidation, Message: "test"}

	err = WithContext(err, "encoding", "r50k_base")
	err = WithContext(err, "page", 3)

	if err.Context["encoding"] != "r50k_base" {
		t.Errorf("Context[encoding] = %v, want r50k_base", err.Context["encoding"])
	}
	if err.Context["page"] != 3 {
		t.Errorf("Context[page] = %v, want 3", err.Context["page"])
	}
}

func TestTypedConstructors_DefaultCause(t *testing.T) {
	tokErr := NewTokenizationError("engine crashed", nil)
	if !errors.Is(tokErr, ErrTokenizationFailed) {
		t.Error("tokenization error without cause should wrap ErrTokenizationFailed")
	}

	extErr := NewExtractionError("bad header", nil)
	if !errors.Is(extErr, ErrExtractionFailed) {
		t.Error("extraction error without cause should wrap ErrExtractionFailed")
	}
}

func TestTypedConstructors_CauseKeepsSentinel(t *testing.T) {
	cause := errors.New("net down")

	tokErr := NewTokenizationError("failed to load encoding", cause)
	if !errors.Is(tokErr, ErrTokenizationFailed) {
		t.Error("tokenization error with a cause should still match ErrTokenizationFailed")
	}
	if !errors.Is(tokErr, cause) {
		t.Error("tokenization error should keep its cause in the chain")
	}

	extErr := fmt.Errorf("preview: %w", NewExtractionError("failed to open PDF", cause))
	if !errors.Is(extErr, ErrExtractionFailed) {
		t.Error("wrapped extraction error should match ErrExtractionFailed")
	}
	if errors.Is(extErr, ErrTokenizationFailed) {
		t.Error("extraction error must not match ErrTokenizationFailed")
	}

	unsupported := NewTokenizationError("unknown encoding", ErrUnsupportedEncoding)
	if !errors.Is(unsupported, ErrUnsupportedEncoding) || !errors.Is(unsupported, ErrTokenizationFailed) {
		t.Error("unsupported encoding should match both its cause and ErrTokenizationFailed")
	}

	validation := NewError(CodeValidation, "bad", cause)
	if errors.Is(validation, ErrTokenizationFailed) || errors.Is(validation, ErrExtractionFailed) {
		t.Error("validation errors carry no category sentinel")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), ""},
		{"direct", NewTokenizationError("x", ErrUnsupportedEncoding), CodeTokenization},
		{"wrapped", fmt.Errorf("count: %w", NewExtractionError("x", nil)), CodeExtraction},
		{"missing input", NewMissingInputWarning(), CodeMissingInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCategoryPredicates(t *testing.T) {
	tok := fmt.Errorf("wrapped: %w", NewTokenizationError("x", nil))
	ext := NewExtractionError("x", nil)
	miss := NewMissingInputWarning()

	if !IsTokenizationError(tok) || IsTokenizationError(ext) {
		t.Error("IsTokenizationError mismatch")
	}
	if !IsExtractionError(ext) || IsExtractionError(miss) {
		t.Error("IsExtractionError mismatch")
	}
	if !IsMissingInput(miss) || IsMissingInput(tok) {
		t.Error("IsMissingInput mismatch")
	}
}

func TestIsAs_Wrappers(t *testing.T) {
	err := NewError(CodeNotFound, "not found", ErrSessionNotFound)

	if !Is(err, ErrSessionNotFound) {
		t.Error("Is should return true for wrapped error")
	}
	if Is(err, ErrMissingInput) {
		t.Error("Is should return false for non-matching error")
	}

	var target *CalcError
	if !As(err, &target) {
		t.Fatal("As should return true and set target")
	}
	if target.Code != CodeNotFound {
		t.Errorf("target.Code = %v, want %v", target.Code, CodeNotFound)
	}
}
