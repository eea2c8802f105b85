// Package errors defines the HTTP error envelope shared by all API
// endpoints.
package errors

import (
	"encoding/json"
	"net/http"
)

// Stable error codes returned in the HTTP error envelope.
const (
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeInternal         = "INTERNAL_ERROR"
)

// HTTPErrorResponse is the JSON envelope for all API error responses.
type HTTPErrorResponse struct {
	Error HTTPError `json:"error"`
}

// HTTPError carries a stable machine-readable code plus a human message.
type HTTPError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RespondWithError writes the standard error envelope.
func RespondWithError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(HTTPErrorResponse{
		Error: HTTPError{Code: code, Message: message},
	})
}

// NotFoundHandler is the router-level 404 handler.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	RespondWithError(w, http.StatusNotFound, CodeNotFound, "resource not found")
}

// MethodNotAllowedHandler is the router-level 405 handler.
func MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	RespondWithError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
}
