package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// maxRequestBodyBytes bounds request bodies; landscapes can be large.
const maxRequestBodyBytes = 32 << 20

// decodeRequest decodes and validates a JSON request body.
// On failure it writes a 400 response and returns false.
func decodeRequest[T any](w http.ResponseWriter, r *http.Request, logger *zap.Logger) (T, bool) {
	var req T
	body := http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return req, false
	}

	if err := validate.Struct(req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "validation_error", validationMessage(err)); err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
		return req, false
	}
	return req, true
}

// validationMessage renders validator errors as "field: rule" pairs.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Namespace(), rule))
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}

// boolQuery parses a boolean query parameter, returning def when it is absent or malformed.
func boolQuery(r *http.Request, name string, def bool) bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}
