package util

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"attendtrack/backend/internal/shared"
)

// JSONResponse structure for successful responses.
type JSONResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// JSONError structure for error responses.
type JSONError struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// WriteJSON is a helper to write JSON responses.
func WriteJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := JSONResponse{Success: true, Data: payload}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error writing JSON response: %v", err)
	}
}

// WriteJSONError is a helper to write standardized error JSON responses.
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	log.Printf("HTTP Error %d: %s", status, message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(JSONError{Success: false, Message: message}); err != nil {
		log.Printf("Error writing JSON error response: %v", err)
	}
}

// HandleServiceError translates the domain error taxonomy to HTTP responses.
// This is the single place failure conditions are mapped for the REST surface.
func HandleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrInvalidPhoneNumber):
		WriteJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrTokenExpired),
		errors.Is(err, shared.ErrInvalidToken),
		errors.Is(err, shared.ErrUnauthorized):
		WriteJSONError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, shared.ErrQueueItemNotFound),
		errors.Is(err, shared.ErrNotFound):
		WriteJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrDuplicateQueueItem):
		WriteJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, shared.ErrExternalService):
		WriteJSONError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, shared.ErrUnavailable):
		WriteJSONError(w, http.StatusServiceUnavailable, err.Error())
	default:
		WriteJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

// ExtractToken extracts the token from the Authorization header (Bearer <token>).
func ExtractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header missing")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}
