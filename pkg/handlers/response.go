// Package handlers exposes the landscape graph over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/landscape-engine/pkg/apperrors"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// writeServiceError maps a service error to a status code and error code.
// Unrecognised errors become 500 with fallbackCode.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error, fallbackCode string) {
	status, code := http.StatusInternalServerError, fallbackCode
	switch {
	case errors.Is(err, apperrors.ErrGraphNotInitialized):
		status, code = http.StatusConflict, "graph_not_initialized"
	case errors.Is(err, apperrors.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, apperrors.ErrInvalidRequest), errors.Is(err, apperrors.ErrInvalidLandscape):
		status, code = http.StatusBadRequest, "invalid_request"
	}

	if status == http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("error_code", code), zap.Error(err))
	} else {
		logger.Debug("Request rejected", zap.String("error_code", code), zap.Error(err))
	}

	if err := ErrorResponse(w, status, code, err.Error()); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
