// Package session defines the per-user state the interaction controller
// works on. State is owned by the caller and passed in and out of every
// transition; nothing here is global.
package session

import (
	"time"

	"github.com/jbctechsolutions/tokencalc/internal/domain/encoding"
	"github.com/jbctechsolutions/tokencalc/internal/domain/tokencount"
)

// Phase is the controller's position in one request/response cycle.
type Phase string

const (
	PhaseAwaitingInput   Phase = "awaiting_input"
	PhaseInputCollected  Phase = "input_collected"
	PhaseComputing       Phase = "computing"
	PhaseResultDisplayed Phase = "result_displayed"
)

// IsValid returns true if the phase is a recognized value.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseAwaitingInput, PhaseInputCollected, PhaseComputing, PhaseResultDisplayed:
		return true
	default:
		return false
	}
}

// InputMode selects where the text to count comes from.
type InputMode string

const (
	ModeText InputMode = "text"
	ModePDF  InputMode = "pdf"
)

// IsValid returns true if the mode is a recognized value.
func (m InputMode) IsValid() bool {
	return m == ModeText || m == ModePDF
}

// Label returns the user-facing name of the mode.
func (m InputMode) Label() string {
	if m == ModePDF {
		return "PDF Upload"
	}
	return "Text"
}

// PageWarning records a PDF page whose text could not be extracted.
type PageWarning struct {
	Page    int    `json:"page"`
	Message string `json:"message"`
}

// State is everything a host must keep between render passes.
type State struct {
	// LastResult is the most recent successful count, shown before the input
	// form until a later successful submission replaces it.
	LastResult *tokencount.Result `json:"last_result,omitempty"`
	// PendingClear asks the next render pass to present an empty input field.
	PendingClear bool `json:"pending_clear"`

	Phase        Phase         `json:"phase"`
	Mode         InputMode     `json:"mode"`
	Encoding     encoding.ID   `json:"encoding"`
	Text         string        `json:"text,omitempty"`
	FileName     string        `json:"file_name,omitempty"`
	PageWarnings []PageWarning `json:"page_warnings,omitempty"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// NewState returns the state of a freshly started session.
func NewState() *State {
	return &State{
		Phase:     PhaseAwaitingInput,
		Mode:      ModeText,
		Encoding:  encoding.Default,
		UpdatedAt: time.Now().UTC(),
	}
}

// Clone returns a deep copy so transitions never alias the caller's state.
func (s *State) Clone() *State {
	if s == nil {
		return NewState()
	}
	c := *s
	if s.LastResult != nil {
		r := *s.LastResult
		c.LastResult = &r
	}
	if s.PageWarnings != nil {
		c.PageWarnings = append([]PageWarning(nil), s.PageWarnings...)
	}
	return &c
}

// HasResult reports whether a result is available for display.
func (s *State) HasResult() bool {
	return s != nil && s.LastResult != nil
}

// HasInput reports whether the draft holds text to submit.
func (s *State) HasInput() bool {
	return s != nil && s.Text != ""
}

// Normalize repairs zero values left by older or hand-edited stored states.
// An unrecognized encoding is replaced by the default and returned so the
// caller can tell the user; an empty one is filled in silently.
func (s *State) Normalize() (replaced encoding.ID) {
	if !s.Phase.IsValid() {
		s.Phase = PhaseAwaitingInput
	}
	if !s.Mode.IsValid() {
		s.Mode = ModeText
	}
	if !s.Encoding.IsValid() {
		replaced = s.Encoding
		s.Encoding = encoding.Default
	}
	return replaced
}
