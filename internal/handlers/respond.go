package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"prompthive/internal/ai"
	"prompthive/internal/prompts"
	"prompthive/internal/session"
	"prompthive/internal/store"
)

const (
	// maxBodyBytes caps JSON request bodies.
	maxBodyBytes = 1 << 20
	// maxPromptBodyBytes caps bodies that carry prompt content. Content
	// itself has no length limit; this only bounds a single request.
	maxPromptBodyBytes = 64 << 20
)

// writeJSON serializes data as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write json response failed", "error", err)
	}
}

// writeError sends {"error": msg} with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON reads the request body into dst. It answers 400 itself and
// returns false when the body is not valid JSON.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeJSONLimit(w, r, dst, maxBodyBytes)
}

// decodeJSONLimit is decodeJSON with an explicit body cap. An oversized
// body is answered with 413.
func decodeJSONLimit(w http.ResponseWriter, r *http.Request, dst any, limit int64) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit)).Decode(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return false
	}
	writeError(w, http.StatusBadRequest, "invalid JSON body")
	return false
}

// statusFor maps a domain error to its HTTP status. Storage failures and
// anything unrecognised are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, prompts.ErrValidation),
		errors.Is(err, ai.ErrEmptyInput),
		errors.Is(err, session.ErrInvalidInput),
		errors.Is(err, session.ErrNoPendingSignIn):
		return http.StatusBadRequest
	case errors.Is(err, prompts.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, prompts.ErrNoIdentity),
		errors.Is(err, session.ErrInvalidCredentials),
		errors.Is(err, session.ErrInvalidCode):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrEmailTaken), errors.Is(err, prompts.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ai.ErrEnhancement), errors.Is(err, ai.ErrAnalysis):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError answers with the status statusFor picks. Server-side
// failures are logged and their details withheld from the client.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, "internal server error")
		return
	}
	if status == http.StatusBadGateway {
		writeError(w, status, "AI service unavailable, please try again")
		return
	}
	writeError(w, status, err.Error())
}
