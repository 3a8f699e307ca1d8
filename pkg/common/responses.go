package common

import (
	"encoding/json"
	"net/http"

	apperrors "opino-backend/pkg/errors"
)

// ErrorBody is the JSON error payload used by the dashboard API.
type ErrorBody struct {
	Error string `json:"error"`
}

// RespondJSON sends a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// RespondError sends a JSON error response for dashboard routes.
func RespondError(w http.ResponseWriter, status int, message string) {
	RespondJSON(w, status, ErrorBody{Error: message})
}

// RespondText sends a plain-text response. The public widget endpoints use
// text bodies ("invalid origin", "no siteName") that the embed script shows
// verbatim.
func RespondText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if body != "" {
		w.Write([]byte(body))
	}
}

// RespondAppErrorText maps an error onto a plain-text widget response.
// Unknown errors collapse to a generic 500 so no internal detail leaks.
func RespondAppErrorText(w http.ResponseWriter, err error) {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		RespondText(w, appErr.HTTPStatus, appErr.Message)
		return
	}
	RespondText(w, http.StatusInternalServerError, "Internal Server Error")
}

// RespondAppErrorJSON maps an error onto a JSON dashboard response.
func RespondAppErrorJSON(w http.ResponseWriter, err error) {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		RespondError(w, appErr.HTTPStatus, appErr.Message)
		return
	}
	RespondError(w, http.StatusInternalServerError, "Internal server error")
}

// ParseJSONBody parses a JSON request body with a size limit.
func ParseJSONBody(w http.ResponseWriter, r *http.Request, v interface{}, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	return json.NewDecoder(r.Body).Decode(v)
}
