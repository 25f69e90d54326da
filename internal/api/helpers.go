// Package api is the HTTP surface: thin handlers that decode a request,
// call into db/syncer/smtp, and map domain errors to status codes.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
)

// WriteJSONResponse marshals v and writes it with a JSON content type.
// Marshals up front so an encoding failure never produces a partial write.
// Returns false when the response could not be sent.
func WriteJSONResponse(w http.ResponseWriter, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("API: Failed to encode response: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return false
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		log.Printf("API: Failed to write response: %v", err)
		return false
	}
	return true
}

// WriteJSONResponseStatus is WriteJSONResponse with an explicit status code.
// The content type must be set before WriteHeader, which freezes the headers.
func WriteJSONResponseStatus(w http.ResponseWriter, status int, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("API: Failed to encode response: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return false
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		log.Printf("API: Failed to write response: %v", err)
		return false
	}
	return true
}

// DecodeJSONBody decodes the request body into dst, writing a 400 on
// malformed JSON. Returns false when the request was already answered.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return false
	}
	return true
}

// PathID parses the {id} path segment as an int64, writing a 400 when it is
// missing or not a number. Returns (id, true) on success.
func PathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// QueryLimit parses a limit query parameter, falling back to defaultLimit
// when absent or invalid.
func QueryLimit(r *http.Request, defaultLimit int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultLimit
}
