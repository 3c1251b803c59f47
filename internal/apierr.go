package internal

import (
	"encoding/json"
	"net/http"
)

// Error codes returned in the structured error envelope.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeReference  = "REFERENCE_ERROR"
	CodeConflict   = "CONFLICT"
	CodeInternal   = "INTERNAL_ERROR"
)

// APIError is the JSON error envelope shared by every handler.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	writeJSON(w, status, &APIError{Code: code, Message: message, Details: details})
}

func writeValidationError(w http.ResponseWriter, message string, details interface{}) {
	writeError(w, http.StatusBadRequest, CodeValidation, message, details)
}

func writeNotFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, CodeNotFound, "not found", nil)
}

func writeReferenceError(w http.ResponseWriter, message string, details interface{}) {
	writeError(w, http.StatusConflict, CodeReference, message, details)
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, CodeInternal, err.Error(), nil)
}

// deleteResponse is the body of every successful DELETE.
type deleteResponse struct {
	Success bool `json:"success"`
}

func writeDeleteSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, deleteResponse{Success: true})
}
