package letters

import (
	"errors"
	"net/http"
)

// Domain errors for letter operations. Every failure except ErrAssembly is
// final for the current letter state; retrying without a change fails again.
var (
	ErrNotFound     = errors.New("letter not found")
	ErrDuplicate    = errors.New("letter already exists")
	ErrInvalidState = errors.New("invalid workflow state")
	ErrUnauthorized = errors.New("user may not act on this letter")
	ErrValidation   = errors.New("validation failed")
	ErrAssembly     = errors.New("document assembly failed")
)

// MapHTTPStatus maps letter domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrAssembly):
		return http.StatusFailedDependency
	default:
		return http.StatusInternalServerError
	}
}
