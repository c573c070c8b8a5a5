package server

import (
	"net/http"
	"strconv"

	"github.com/4rankng/paper-trading-sub001/internal/viz"
)

// handleVizExtract handles POST /api/viz/extract.
// Runs the full extraction pipeline over one piece of message text.
func (s *Server) handleVizExtract(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Text  string `json:"text"`
		Final *bool  `json:"final,omitempty"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Text == "" {
		WriteError(w, http.StatusBadRequest, "text is required")
		return
	}

	final := true
	if req.Final != nil {
		final = *req.Final
	}

	result := viz.ExtractCommands(req.Text, final)
	WriteJSON(w, http.StatusOK, result)
}

// handleVizFix handles POST /api/viz/fix.
// Runs just the repair pipeline over one raw payload.
func (s *Server) handleVizFix(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Raw      string `json:"raw"`
		TypeHint string `json:"type_hint"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Raw == "" {
		WriteError(w, http.StatusBadRequest, "raw is required")
		return
	}

	WriteJSON(w, http.StatusOK, viz.AutoFix(req.Raw, req.TypeHint))
}

// handleVizRecords handles GET /api/viz/records?session=&limit=.
func (s *Server) handleVizRecords(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if s.app.VizLog == nil {
		WriteError(w, http.StatusServiceUnavailable, "record store not configured")
		return
	}

	if sessionID := r.URL.Query().Get("session"); sessionID != "" {
		records, err := s.app.VizLog.ListBySession(r.Context(), sessionID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		WriteJSON(w, http.StatusOK, records)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	records, err := s.app.VizLog.ListRecent(r.Context(), limit)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, records)
}
