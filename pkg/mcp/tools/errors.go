package tools

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/landscape-engine/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// It is returned as a tool result rather than a protocol error so the
// client sees the error code and message.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for errors the caller can act on (graph not populated, unknown
// landscape, bad parameter). System failures should still return Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	jsonBytes, _ := json.Marshal(ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	})
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// errorResult converts a service error to a structured error result.
// Returns nil for errors that are not actionable by the caller.
func errorResult(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperrors.ErrGraphNotInitialized):
		return NewErrorResult("graph_not_initialized", err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		return NewErrorResult("not_found", err.Error())
	case errors.Is(err, apperrors.ErrInvalidRequest):
		return NewErrorResult("invalid_parameters", err.Error())
	}
	return nil
}
