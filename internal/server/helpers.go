package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/services/snapshot"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// WriteServiceError maps a service error onto a status code. Configuration
// errors are reported with their message so operators can see which settings
// are missing.
func WriteServiceError(w http.ResponseWriter, err error) {
	var dup *common.DuplicateError
	switch {
	case errors.As(err, &dup):
		WriteJSON(w, http.StatusConflict, ErrorResponse{Error: "duplicate", Code: "duplicate", ExternalID: dup.ExternalID})
	case errors.Is(err, common.ErrInvalidInput):
		WriteErrorWithCode(w, http.StatusBadRequest, err.Error(), "invalid_input")
	case errors.Is(err, common.ErrNotFound), errors.Is(err, snapshot.ErrTooFewSnapshots):
		WriteErrorWithCode(w, http.StatusNotFound, err.Error(), "not_found")
	case errors.Is(err, common.ErrConfiguration):
		WriteErrorWithCode(w, http.StatusInternalServerError, err.Error(), "configuration")
	case errors.Is(err, common.ErrRateUnavailable):
		WriteErrorWithCode(w, http.StatusBadGateway, err.Error(), "rate_unavailable")
	case errors.Is(err, common.ErrUpstream):
		WriteErrorWithCode(w, http.StatusBadGateway, err.Error(), "upstream")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// decodeOptionalJSON decodes a body when one was sent. An empty or malformed
// body leaves v untouched.
func decodeOptionalJSON(r *http.Request, v interface{}) {
	if r.Body == nil || r.ContentLength == 0 {
		return
	}
	json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(v)
}

// queryLimit parses the limit query parameter. Missing or invalid values
// fall back to def; values above max are capped.
func queryLimit(r *http.Request, def, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
