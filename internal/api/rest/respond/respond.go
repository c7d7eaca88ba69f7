package respond

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the wire shape of every error response. Code is a stable
// machine-readable identifier; Message is for humans.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Error writes the standard error body with the given status.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, ErrorBody{Message: message, Code: code})
}
