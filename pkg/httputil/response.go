package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/platinummonkey/accountgate/pkg/auth"
)

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// MessageResponse is the body of successful mutating endpoints
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every failed JSON endpoint
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteMessage writes {"message": message}
func WriteMessage(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, MessageResponse{Message: message})
}

// WriteErrorMessage writes {"error": message}
func WriteErrorMessage(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, ErrorResponse{Error: message})
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorMessage(w, http.StatusBadRequest, message)
}

// WriteInternalError writes a generic 500 without leaking err
func WriteInternalError(w http.ResponseWriter) {
	WriteErrorMessage(w, http.StatusInternalServerError, "Internal server error")
}

// WriteAuthError maps an *auth.Error to its status code and user-visible message.
// Errors without a message use fallback, or the status text when fallback is empty.
func WriteAuthError(w http.ResponseWriter, err error, fallback string) {
	status := auth.StatusCode(auth.KindOf(err))
	if fallback == "" {
		fallback = http.StatusText(status)
	}
	WriteErrorMessage(w, status, auth.MessageOf(err, fallback))
}
