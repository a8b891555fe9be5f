// Package api provides the REST and WebSocket API for tasksync.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/randalmurphal/tasksync/internal/errors"
)

// APIError is the standard error response format.
type APIError struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Cause string `json:"cause,omitempty"`
}

// JSONResponse writes a successful JSON response.
func JSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

// JSONResponseStatus writes a JSON response with a specific status code.
func JSONResponseStatus(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// JSONError writes a simple error response.
func JSONError(w http.ResponseWriter, message string, status int) {
	JSONResponseStatus(w, APIError{Error: message}, status)
}

// HandleError maps SyncErrors to their HTTP status; anything else is a 500.
func HandleError(w http.ResponseWriter, err error) {
	if syncErr := errors.AsSyncError(err); syncErr != nil {
		apiErr := APIError{
			Error: syncErr.What,
			Code:  string(syncErr.Code),
		}
		if syncErr.Cause != nil {
			apiErr.Cause = syncErr.Cause.Error()
		}
		JSONResponseStatus(w, apiErr, syncErr.HTTPStatus())
		return
	}
	JSONError(w, err.Error(), http.StatusInternalServerError)
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
