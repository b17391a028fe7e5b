package ui

import (
	"bytes"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	child, err := renderPartial("index.html", s.config.Layout.Metadata)
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := s.config.Layout.Render(&buf, child); err != nil {
		s.renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("render page failed", zap.Error(err), zap.String("request_id", RequestID(r.Context())))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
