package assembler

import "errors"

// Assembly errors. Individual placement problems are not errors; they are
// logged and the placement is skipped.
var (
	ErrInvalidPDF = errors.New("unreadable pdf")
	ErrNoPages    = errors.New("pdf has no pages")
	ErrEmptyURL   = errors.New("public url is required")

	errUnsupportedFormat = errors.New("unsupported image format")
	errImageTooLarge     = errors.New("image exceeds maximum size")
)
