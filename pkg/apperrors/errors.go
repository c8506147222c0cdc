// Package apperrors holds sentinel errors shared by services and transports.
package apperrors

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrGraphNotInitialized = errors.New("graph not initialized: populate the graph first")
	ErrInvalidLandscape    = errors.New("invalid landscape document")
)
