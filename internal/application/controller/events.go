package controller

import "github.com/jbctechsolutions/tokencalc/internal/domain/session"

// Event is one user interaction delivered to the controller.
type Event interface {
	// Kind identifies the event in logs and traces.
	Kind() string
}

// ModeSelected switches between direct text entry and PDF upload.
type ModeSelected struct {
	Mode session.InputMode
}

// TextEntered replaces the draft text. Only valid in text mode.
type TextEntered struct {
	Text string
}

// FileSelected provides an uploaded PDF. Only valid in PDF mode.
// An empty Name and Data clears the current selection.
type FileSelected struct {
	Name string
	Data []byte
}

// EncodingSelected picks the encoding by its user-supplied name.
type EncodingSelected struct {
	Encoding string
}

// Submitted asks for the draft to be counted.
type Submitted struct{}

// Rendered is a plain re-render with no user input, such as a page refresh.
type Rendered struct{}

func (ModeSelected) Kind() string     { return "mode_selected" }
func (TextEntered) Kind() string      { return "text_entered" }
func (FileSelected) Kind() string     { return "file_selected" }
func (EncodingSelected) Kind() string { return "encoding_selected" }
func (Submitted) Kind() string        { return "submitted" }
func (Rendered) Kind() string         { return "rendered" }
