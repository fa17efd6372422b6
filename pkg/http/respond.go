// Package http holds the small request/response helpers shared by the dev
// backend's handlers. Error bodies follow the production API's FastAPI
// convention: a single {"detail": ...} field.
package http

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes a JSON response body with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	// Log encoding errors but don't expose them to client
	_ = json.NewEncoder(w).Encode(v)
}

// WriteDetail writes a {"detail": "..."} error body.
func WriteDetail(w http.ResponseWriter, statusCode int, detail string) {
	WriteJSON(w, statusCode, map[string]string{"detail": detail})
}

// Common error writers for consistency
func WriteBadRequest(w http.ResponseWriter, detail string) {
	WriteDetail(w, http.StatusBadRequest, detail)
}

func WriteUnauthorized(w http.ResponseWriter, detail string) {
	WriteDetail(w, http.StatusUnauthorized, detail)
}

func WriteInternalError(w http.ResponseWriter, detail string) {
	WriteDetail(w, http.StatusInternalServerError, detail)
}
