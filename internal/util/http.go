package util

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// =============================================================================
// HTTP Response Helpers
// =============================================================================

// SetHTMLHeaders sets standard headers for HTML responses.
// maxAge is the Cache-Control max-age value in seconds (as string).
func SetHTMLHeaders(w http.ResponseWriter, maxAge string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "max-age="+maxAge)
}

// WriteJSONBytes writes an already-encoded JSON body with the given status.
func WriteJSONBytes(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Debug("failed to write response", "error", err)
	}
}

// WriteJSON encodes v and writes it with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
		RespondJSONError(w, http.StatusInternalServerError, "An error occurred: "+err.Error())
		return
	}
	WriteJSONBytes(w, status, body)
}

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// HTTP Error Helpers
// =============================================================================

// RespondJSONError sends {"error": message} with the given status.
func RespondJSONError(w http.ResponseWriter, status int, message string) {
	body, _ := json.Marshal(ErrorResponse{Error: message})
	WriteJSONBytes(w, status, body)
}

// RespondBadRequest sends a 400 Bad Request error response.
func RespondBadRequest(w http.ResponseWriter, message string) {
	RespondJSONError(w, http.StatusBadRequest, message)
}

// RespondMethodNotAllowed sends a 405 Method Not Allowed error response.
func RespondMethodNotAllowed(w http.ResponseWriter, message string) {
	RespondJSONError(w, http.StatusMethodNotAllowed, message)
}

// RespondTooManyRequests sends a 429 Too Many Requests error response.
func RespondTooManyRequests(w http.ResponseWriter, message string) {
	RespondJSONError(w, http.StatusTooManyRequests, message)
}

// RespondInternalError sends a 500 Internal Server Error response.
func RespondInternalError(w http.ResponseWriter, message string) {
	RespondJSONError(w, http.StatusInternalServerError, message)
}
