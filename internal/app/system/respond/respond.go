// Package respond writes JSON responses for the API features.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/projecthub/internal/app/system/apperr"
	"go.uber.org/zap"
)

// WriteJSON writes data as JSON with the given status.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// ErrorResponse writes the {error, message} envelope.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// JSON writes data and logs encoding failures.
func JSON(w http.ResponseWriter, log *zap.Logger, statusCode int, data any) {
	if err := WriteJSON(w, statusCode, data); err != nil {
		log.Error("failed to write response", zap.Error(err))
	}
}

// Error classifies err with apperr and writes the matching envelope.
// Downstream and unclassified failures are logged and their detail hidden.
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	status := apperr.StatusOf(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		msg = http.StatusText(status)
	}
	if werr := ErrorResponse(w, status, apperr.Code(err), msg); werr != nil {
		log.Error("failed to write error response", zap.Error(werr))
	}
}

// BadRequest writes a 400 with code and message.
func BadRequest(w http.ResponseWriter, log *zap.Logger, code, message string) {
	if err := ErrorResponse(w, http.StatusBadRequest, code, message); err != nil {
		log.Error("failed to write error response", zap.Error(err))
	}
}
