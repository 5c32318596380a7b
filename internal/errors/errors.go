package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// AppError represents an application error with HTTP context
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// ErrorResponse is the JSON body written for every error
type ErrorResponse struct {
	Error *AppError `json:"error"`
}

// WriteJSON writes the error as JSON response
func (e *AppError) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: e})
}

func newError(status int, code, message, details string) *AppError {
	return &AppError{Code: code, Message: message, Details: details, StatusCode: status}
}

// 400

func BadRequest(message string) *AppError {
	return newError(http.StatusBadRequest, "BAD_REQUEST", message, "")
}

func InvalidURL(details string) *AppError {
	return newError(http.StatusBadRequest, "INVALID_URL", "The provided URL is invalid", details)
}

func InvalidJSON(details string) *AppError {
	return newError(http.StatusBadRequest, "INVALID_JSON", "Invalid JSON in request body", details)
}

func MissingField(field string) *AppError {
	return newError(http.StatusBadRequest, "MISSING_FIELD", fmt.Sprintf("Required field '%s' is missing", field), "")
}

func InvalidValidity(details string) *AppError {
	return newError(http.StatusBadRequest, "INVALID_VALIDITY",
		"validityMinutes must be a positive whole number of minutes", details)
}

// Lookup failures

func URLNotFound(code string) *AppError {
	return newError(http.StatusNotFound, "URL_NOT_FOUND", fmt.Sprintf("Short URL '%s' not found", code), "")
}

// URLExpired is 410 rather than 404 so clients can tell a dead link from a typo
func URLExpired(code string) *AppError {
	return newError(http.StatusGone, "URL_EXPIRED", fmt.Sprintf("Short URL '%s' has expired", code), "")
}

func ShortcodeExists(code string) *AppError {
	return newError(http.StatusConflict, "SHORTCODE_EXISTS", fmt.Sprintf("Short code '%s' already exists", code), "")
}

func MethodNotAllowed(method string) *AppError {
	return newError(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", fmt.Sprintf("Method %s is not allowed", method), "")
}

// 500

func Internal(details string) *AppError {
	return newError(http.StatusInternalServerError, "INTERNAL_ERROR", "An internal server error occurred", details)
}

func GenerationExhausted() *AppError {
	return newError(http.StatusInternalServerError, "GENERATION_EXHAUSTED",
		"Could not allocate a free short code, please retry", "")
}
