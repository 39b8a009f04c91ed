package controller

import (
	"fmt"

	"github.com/jbctechsolutions/tokencalc/internal/domain/encoding"
	domainErrors "github.com/jbctechsolutions/tokencalc/internal/domain/errors"
	"github.com/jbctechsolutions/tokencalc/internal/domain/session"
	"github.com/jbctechsolutions/tokencalc/internal/domain/tokencount"
)

// User-facing messages.
const (
	MessageCompleted    = "Token calculation completed."
	MessageMissingInput = "Please provide text or upload a PDF file."
)

// NoticeKind is the severity of a Notice.
type NoticeKind string

const (
	NoticeInfo    NoticeKind = "info"
	NoticeWarning NoticeKind = "warning"
	NoticeError   NoticeKind = "error"
)

// Notice is a message a host shows the user for the current render.
type Notice struct {
	Kind    NoticeKind             `json:"kind"`
	Code    domainErrors.ErrorCode `json:"code,omitempty"`
	Message string                 `json:"message"`
}

// Render is what a host must display after a transition.
type Render struct {
	Phase    session.Phase     `json:"phase"`
	Mode     session.InputMode `json:"mode"`
	Encoding encoding.ID       `json:"encoding"`

	// Result is shown ahead of the input form whenever it is set.
	Result *tokencount.Result `json:"result,omitempty"`

	// Preview is the text extracted from the selected PDF.
	Preview  string                `json:"preview,omitempty"`
	Warnings []session.PageWarning `json:"warnings,omitempty"`

	// ClearInput tells the host to present an empty input field.
	ClearInput bool `json:"clear_input"`

	Notices []Notice `json:"notices,omitempty"`
}

// HasResult reports whether a result should be displayed.
func (r Render) HasResult() bool {
	return r.Result != nil
}

// HasProblems reports whether any warning or error notice is present.
func (r Render) HasProblems() bool {
	for _, n := range r.Notices {
		if n.Kind != NoticeInfo {
			return true
		}
	}
	return false
}

// FirstProblem returns the first warning or error notice.
func (r Render) FirstProblem() (Notice, bool) {
	for _, n := range r.Notices {
		if n.Kind != NoticeInfo {
			return n, true
		}
	}
	return Notice{}, false
}

func (r *Render) info(msg string) {
	r.Notices = append(r.Notices, Notice{Kind: NoticeInfo, Message: msg})
}

func (r *Render) warn(code domainErrors.ErrorCode, msg string) {
	r.Notices = append(r.Notices, Notice{Kind: NoticeWarning, Code: code, Message: msg})
}

func (r *Render) fail(prefix string, err error) {
	r.Notices = append(r.Notices, Notice{
		Kind:    NoticeError,
		Code:    domainErrors.CodeOf(err),
		Message: fmt.Sprintf("%s: %s", prefix, describe(err)),
	})
}

// describe returns the user-facing part of err.
func describe(err error) string {
	var ce *domainErrors.CalcError
	if !domainErrors.As(err, &ce) {
		return err.Error()
	}
	switch ce.Cause {
	case nil, domainErrors.ErrUnsupportedEncoding, domainErrors.ErrTokenizationFailed,
		domainErrors.ErrExtractionFailed, domainErrors.ErrMissingInput:
		return ce.Message
	}
	return ce.Message + ": " + ce.Cause.Error()
}
