package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jbctechsolutions/tokencalc/internal/application/controller"
	"github.com/jbctechsolutions/tokencalc/internal/domain/encoding"
	"github.com/jbctechsolutions/tokencalc/internal/domain/session"
)

// statusCompleted is appended to the redirect after a successful count so
// the following page render can repeat the completion message.
const statusCompleted = "completed"

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// handleIndex renders the form. ?mode= switches the input mode.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var ev controller.Event = controller.Rendered{}
	if m := r.URL.Query().Get("mode"); m != "" {
		ev = controller.ModeSelected{Mode: session.InputMode(m)}
	}

	id := s.sessionID(w, r)
	st, render, err := s.transition(r.Context(), id, ev)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	if r.URL.Query().Get("status") == statusCompleted && render.HasResult() {
		done := controller.Notice{Kind: controller.NoticeInfo, Message: controller.MessageCompleted}
		render.Notices = append([]controller.Notice{done}, render.Notices...)
	}
	s.renderPage(w, r, http.StatusOK, st, render)
}

// handlePreview extracts an uploaded PDF so its text can be reviewed
// before counting.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	up, err := readUpload(r)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	events := []controller.Event{controller.ModeSelected{Mode: session.ModePDF}}
	if enc := r.FormValue("encoding"); enc != "" {
		events = append(events, controller.EncodingSelected{Encoding: enc})
	}
	if up != nil {
		events = append(events, controller.FileSelected{Name: up.name, Data: up.data})
	}

	id := s.sessionID(w, r)
	st, render, err := s.transition(r.Context(), id, events...)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	status := http.StatusOK
	if render.HasProblems() {
		status = http.StatusUnprocessableEntity
	}
	s.renderPage(w, r, status, st, render)
}

// handleCount submits the form. A clean success redirects to the form,
// which then shows the new result ahead of an empty input.
func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	up, err := readUpload(r)
	if err != nil {
		s.badRequest(w, r, err)
		return
	}

	var events []controller.Event
	mode := session.InputMode(r.FormValue("mode"))
	if mode != "" {
		events = append(events, controller.ModeSelected{Mode: mode})
	}
	if enc := r.FormValue("encoding"); enc != "" {
		events = append(events, controller.EncodingSelected{Encoding: enc})
	}
	if text, ok := r.Form["text"]; ok && mode != session.ModePDF {
		events = append(events, controller.TextEntered{Text: normalizeNewlines(strings.Join(text, ""))})
	}
	if up != nil {
		events = append(events, controller.FileSelected{Name: up.name, Data: up.data})
	}
	events = append(events, controller.Submitted{})

	id := s.sessionID(w, r)
	st, render, err := s.transition(r.Context(), id, events...)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	if render.Phase == session.PhaseResultDisplayed && !render.HasProblems() {
		http.Redirect(w, r, "/?status="+statusCompleted, http.StatusSeeOther)
		return
	}
	s.renderPage(w, r, http.StatusUnprocessableEntity, st, render)
}

// parseForm reads a urlencoded or multipart body within the upload limit.
// It writes the error response itself and reports whether to continue.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)

	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(multipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		msg := fmt.Sprintf("upload exceeds the %d MB limit", s.config.MaxUploadBytes>>20)
		http.Error(w, msg, http.StatusRequestEntityTooLarge)
		return false
	}
	s.badRequest(w, r, err)
	return false
}

type upload struct {
	name string
	data []byte
}

// readUpload returns the "file" part of a parsed multipart form, or nil
// when no file was chosen.
func readUpload(r *http.Request) (*upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	f, hdr, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	defer f.Close()

	if hdr.Filename == "" && hdr.Size == 0 {
		return nil, nil
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &upload{name: hdr.Filename, data: data}, nil
}

// normalizeNewlines converts the CRLF line endings browsers submit for
// textareas back to the LF the user typed.
func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

type encodingOption struct {
	ID          encoding.ID
	Description string
	Selected    bool
}

type modeOption struct {
	Mode   session.InputMode
	Label  string
	Active bool
}

type pageData struct {
	controller.Render
	Draft       string
	FileName    string
	Encodings   []encodingOption
	Modes       []modeOption
	MaxUploadMB int64
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, st *session.State, render controller.Render) {
	data := pageData{
		Render:      render,
		FileName:    st.FileName,
		MaxUploadMB: s.config.MaxUploadBytes >> 20,
	}
	if st.Mode == session.ModeText && !render.ClearInput {
		data.Draft = st.Text
	}
	for _, id := range encoding.Supported() {
		data.Encodings = append(data.Encodings, encodingOption{
			ID:          id,
			Description: id.Description(),
			Selected:    id == render.Encoding,
		})
	}
	for _, m := range []session.InputMode{session.ModeText, session.ModePDF} {
		data.Modes = append(data.Modes, modeOption{Mode: m, Label: m.Label(), Active: m == render.Mode})
	}

	var buf bytes.Buffer
	if err := s.page.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.serverError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.WarnContext(r.Context(), "bad request", "path", r.URL.Path, "error", err.Error())
	http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
}
