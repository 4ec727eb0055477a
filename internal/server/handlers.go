package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"quotecard/internal/card"
	"quotecard/internal/relay"
	"quotecard/internal/summarizer"
	"quotecard/internal/templates"
	"strings"
	"unicode/utf8"
)

type errorResp struct {
	Error string `json:"error"`
}

type healthResp struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type summarizeReq struct {
	Text string `json:"text"`
}

type cardReq struct {
	Text     string `json:"text"`
	Template string `json:"template"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResp{Status: "ok", Message: "Quote card server is running"})
}

func (s *Server) handleTemplates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, templates.All())
}

// handleSummarize streams summary deltas as plain text. Errors are reported
// as JSON only while nothing has been written yet.
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	if !s.checkLength(w, text) {
		return
	}

	if s.summarizer == nil {
		writeError(w, http.StatusServiceUnavailable, "summarizer is not configured")
		return
	}

	rc := http.NewResponseController(w)
	wrote := false

	progress := func(delta string, _ string) {
		if delta == "" {
			return
		}

		if !wrote {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)
			wrote = true
		}

		if _, err := io.WriteString(w, delta); err != nil {
			return
		}

		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			s.log.DebugContext(r.Context(), "Failed to flush summary delta",
				"error", err)
		}
	}

	summary, err := s.summarizer.Summarize(r.Context(), summarizer.Input{Text: text}, progress)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Failed to summarize",
			"error", err,
			"requestID", RequestID(r.Context()),
			"textLen", len(text),
			"streamed", wrote)

		if wrote {
			return
		}

		var transportErr *relay.TransportError

		switch {
		case errors.Is(err, summarizer.ErrEmptyInput):
			writeError(w, http.StatusBadRequest, "text is required")
		case errors.Is(err, relay.ErrEmptyResult):
			writeError(w, http.StatusBadGateway, "summary is empty")
		case errors.As(err, &transportErr):
			writeError(w, http.StatusBadGateway, "upstream request failed")
		default:
			writeError(w, http.StatusInternalServerError, "summary failed")
		}

		return
	}

	if !wrote {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, summary)
	}
}

// checkLength writes a 400 and returns false when text is over the input limit.
func (s *Server) checkLength(w http.ResponseWriter, text string) bool {
	if n := utf8.RuneCountInString(text); n > s.maxInputChars {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("text is too long (%d/%d)", n, s.maxInputChars))
		return false
	}

	return true
}

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	s.serveCard(w, r, card.ModeFull)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	s.serveCard(w, r, card.ModePreview)
}

func (s *Server) serveCard(w http.ResponseWriter, r *http.Request, mode card.Mode) {
	var req cardReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.checkLength(w, strings.TrimSpace(req.Text)) {
		return
	}

	key := req.Template
	if strings.TrimSpace(key) == "" {
		key = templates.Default
	}

	tmpl, err := templates.Get(key)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	surface, err := s.composer.Compose(req.Text, tmpl, mode)
	if errors.Is(err, card.ErrEmptyInput) {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if err != nil {
		s.log.ErrorContext(r.Context(), "Failed to compose card",
			"error", err,
			"requestID", RequestID(r.Context()),
			"templateKey", tmpl.Key,
			"mode", mode.String())

		writeError(w, http.StatusInternalServerError, "compose failed")
		return
	}
	defer func() {
		if err = surface.Close(); err != nil {
			s.log.WarnContext(r.Context(), "Failed to close surface",
				"error", err,
				"requestID", RequestID(r.Context()))
		}
	}()

	export, err := card.ExportPNG(surface, s.now())
	if err != nil {
		s.log.ErrorContext(r.Context(), "Failed to export card",
			"error", err,
			"requestID", RequestID(r.Context()),
			"templateKey", tmpl.Key)

		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	disposition := "attachment"
	if mode == card.ModePreview {
		disposition = "inline"
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, export.Filename))
	w.Header().Set("X-Card-Lines", fmt.Sprint(surface.Lines.LineCount()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(export.Data)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResp{Error: msg})
}
