package gemini

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"

	"modelgate/internal/backend"
)

// classify maps Gemini failures onto the backend taxonomy. Context errors
// pass through so the router can tell timeouts from cancellation.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		return backend.Rejected(err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError {
			return backend.Unavailable(err)
		}
		return backend.Rejected(err)
	}

	return backend.Unavailable(err)
}
