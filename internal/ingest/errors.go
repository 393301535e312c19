package ingest

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedExtension      = errors.New("unsupported file extension")
	ErrInvalidModality           = errors.New("media_type must be audio or video")
	ErrModalityExtensionMismatch = errors.New("file extension does not match media_type")
)

// ValidationError is a client-caused ingestion failure. It wraps one of the
// sentinels above, or a storage error such as an oversized upload.
type ValidationError struct {
	Filename  string
	MediaType string
	Err       error
}

func (e *ValidationError) Error() string {
	if e.MediaType != "" {
		return fmt.Sprintf("invalid upload %q (media_type %q): %v", e.Filename, e.MediaType, e.Err)
	}
	return fmt.Sprintf("invalid upload %q: %v", e.Filename, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is, or wraps, a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
