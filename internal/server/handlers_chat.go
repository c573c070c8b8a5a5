package server

import (
	"net/http"
	"strings"
)

// handleSessionCreate handles POST /api/chat/sessions.
func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	sessionID, err := s.app.ChatService.CreateSession(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]string{"session_id": sessionID})
}

// routeSessions dispatches /api/chat/sessions/{id}[/chunks|/close].
func (s *Server) routeSessions(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/chat/sessions/")

	switch {
	case strings.HasSuffix(rest, "/chunks"):
		s.handleSessionChunk(w, r, PathParam(r, "/api/chat/sessions/", "/chunks"))
	case strings.HasSuffix(rest, "/close"):
		s.handleSessionClose(w, r, PathParam(r, "/api/chat/sessions/", "/close"))
	default:
		s.handleSessionGet(w, r, PathParam(r, "/api/chat/sessions/", ""))
	}
}

// handleSessionChunk handles POST /api/chat/sessions/{id}/chunks.
func (s *Server) handleSessionChunk(w http.ResponseWriter, r *http.Request, sessionID string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if sessionID == "" {
		WriteError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	result, err := s.app.ChatService.AppendChunk(r.Context(), sessionID, req.Text)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		} else if strings.Contains(err.Error(), "closed") || strings.Contains(err.Error(), "buffer limit") {
			status = http.StatusConflict
		}
		WriteError(w, status, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// handleSessionClose handles POST /api/chat/sessions/{id}/close.
func (s *Server) handleSessionClose(w http.ResponseWriter, r *http.Request, sessionID string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if sessionID == "" {
		WriteError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	result, err := s.app.ChatService.CloseSession(r.Context(), sessionID)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "not found") {
			status = http.StatusNotFound
		}
		WriteError(w, status, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// handleSessionGet handles GET /api/chat/sessions/{id}.
func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request, sessionID string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	if sessionID == "" {
		WriteError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	snapshot, err := s.app.ChatService.GetSession(r.Context(), sessionID)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, snapshot)
}

// handleAdvise handles POST /api/chat/advise.
// Streams a Gemini response through the extraction engine server-side and
// returns the final result.
func (s *Server) handleAdvise(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Prompt string `json:"prompt"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Prompt == "" {
		WriteError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	result, err := s.app.ChatService.StreamAdvice(r.Context(), req.Prompt)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "not configured") {
			status = http.StatusServiceUnavailable
		}
		WriteError(w, status, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
