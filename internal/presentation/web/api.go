package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jbctechsolutions/tokencalc/internal/domain/encoding"
	domainErrors "github.com/jbctechsolutions/tokencalc/internal/domain/errors"
)

// CountRequest is the body of POST /api/count.
type CountRequest struct {
	Text     string `json:"text"`
	Encoding string `json:"encoding,omitempty"` // empty uses the server default
	All      bool   `json:"all,omitempty"`      // count under every encoding
}

// CountResponse is the result of a single count.
type CountResponse struct {
	Tokens   int         `json:"tokens"`
	Encoding encoding.ID `json:"encoding"`
}

// CountAllResponse is returned when CountRequest.All is set.
type CountAllResponse struct {
	Results []CountResponse `json:"results"`
}

// EncodingInfo describes one supported encoding.
type EncodingInfo struct {
	Name        encoding.ID `json:"name"`
	Description string      `json:"description"`
	Default     bool        `json:"default"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string                 `json:"error"`
	Code  domainErrors.ErrorCode `json:"code,omitempty"`
}

func (s *Server) handleEncodings(w http.ResponseWriter, _ *http.Request) {
	var out []EncodingInfo
	for _, id := range encoding.Supported() {
		out = append(out, EncodingInfo{
			Name:        id,
			Description: id.Description(),
			Default:     id == s.config.DefaultEncoding,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAPICount(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)

	var req CountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON: " + err.Error(), Code: domainErrors.CodeValidation})
		return
	}

	ctx := r.Context()
	if req.All {
		results, err := s.counter.CountAll(ctx, req.Text)
		if err != nil {
			writeCountError(w, err)
			return
		}
		resp := CountAllResponse{Results: make([]CountResponse, 0, len(results))}
		for _, res := range results {
			resp.Results = append(resp.Results, CountResponse{Tokens: res.Count, Encoding: res.Encoding})
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	enc := s.config.DefaultEncoding
	if req.Encoding != "" {
		id, err := encoding.Parse(req.Encoding)
		if err != nil {
			writeCountError(w, err)
			return
		}
		enc = id
	}

	n, err := s.counter.CountTokens(ctx, req.Text, enc)
	if err != nil {
		writeCountError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Tokens: n, Encoding: enc})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeCountError(w http.ResponseWriter, err error) {
	code := domainErrors.CodeOf(err)
	status := http.StatusInternalServerError
	if code == domainErrors.CodeTokenization {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
