package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/alnah/md2pdf-web"
)

// envelopeAllowance is the JSON overhead tolerated on top of the HTML limit
// when the body arrives without a Content-Length.
const envelopeAllowance = 64 << 10

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type renderRequest struct {
	HTML     any `json:"html"`
	Filename any `json:"filename"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		s.setCORS(w)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method Not Allowed", Details: "Use POST for this endpoint"})
		return
	}

	if r.ContentLength > md2pdf.MaxHTMLBytes {
		s.writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
			Error:   "Payload too large",
			Details: fmt.Sprintf("Request body must be <= %d bytes", md2pdf.MaxHTMLBytes),
		})
		return
	}

	var req renderRequest
	body := http.MaxBytesReader(w, r.Body, md2pdf.MaxHTMLBytes+envelopeAllowance)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
				Error:   "Payload too large",
				Details: fmt.Sprintf("Request body must be <= %d bytes", md2pdf.MaxHTMLBytes),
			})
			return
		}
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid JSON body"})
		return
	}

	html, ok := req.HTML.(string)
	if !ok || html == "" {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "`html` field is required and must be a non-empty string"})
		return
	}

	job := md2pdf.RenderJob{HTML: html, Filename: requestFilename(req.Filename)}
	if job.Size() > md2pdf.MaxHTMLBytes {
		s.writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{
			Error:   "HTML too large",
			Details: fmt.Sprintf("Rendered HTML must be <= %d bytes", md2pdf.MaxHTMLBytes),
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.Timeout)
	defer cancel()

	pdf, err := s.printer.PrintHTML(ctx, job.HTML)
	if err != nil {
		s.opts.Logger.Error("render failed",
			"request_id", requestID(r),
			"filename", job.Filename,
			"bytes", job.Size(),
			"error", err,
		)
		s.writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Failed to render PDF"})
		return
	}

	s.setCORS(w)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+dispositionFilename(job.Filename)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// requestFilename returns the trimmed filename, or the default when the
// field is missing, blank or not a string.
func requestFilename(v any) string {
	name, ok := v.(string)
	if !ok {
		return md2pdf.DefaultFilename
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return md2pdf.DefaultFilename
	}
	return name
}

// dispositionFilename strips characters that would break out of the quoted
// header parameter.
func dispositionFilename(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if strings.TrimSpace(cleaned) == "" {
		return md2pdf.DefaultFilename
	}
	return cleaned
}

func (s *Server) setCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", s.opts.AllowedOrigin)
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body errorBody) {
	s.setCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
