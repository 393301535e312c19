package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/panjf2000/ants/v2"
)

var (
	ErrEmptyQuestion       = errors.New("question must not be empty")
	ErrUnsupportedArtifact = errors.New("artifact category not supported by this route")

	// ErrBackendUnavailable is transient and may be retried with backoff.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrBackendProcessing means the backend rejected the input.
	ErrBackendProcessing = errors.New("backend processing failed")

	// ErrInternal wraps capability failures the router cannot classify.
	ErrInternal = errors.New("internal routing error")
)

// classify maps a capability failure onto the router taxonomy. Caller
// cancellation is returned unchanged.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrBackendUnavailable), errors.Is(err, ErrBackendProcessing):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ants.ErrPoolOverload):
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrInternal, err)
	}
}

// Retryable reports whether a caller may retry the same request unchanged.
func Retryable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}
