package storage

import "errors"

// Storage errors shared by every provider.
var (
	ErrNotFound   = errors.New("blob not found")
	ErrEmptyKey   = errors.New("storage key must not be empty")
	ErrInvalidKey = errors.New("storage key contains invalid path segment")
)

// IsKeyError reports whether err rejects the key itself rather than the
// blob it names. Retrying with the same key cannot succeed.
func IsKeyError(err error) bool {
	return errors.Is(err, ErrEmptyKey) || errors.Is(err, ErrInvalidKey)
}
