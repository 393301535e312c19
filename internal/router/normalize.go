package router

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// normalize builds the envelope from a capability result. Router metadata
// overrides backend keys of the same name, and only scalar backend values
// survive.
func normalize(mt ModelType, out *Output, routerMeta map[string]any) (*ModelResponse, error) {
	if out == nil || strings.TrimSpace(out.Text) == "" {
		return nil, fmt.Errorf("%w: %s backend returned an empty response", ErrBackendProcessing, mt)
	}

	resp := &ModelResponse{
		Response:  out.Text,
		ModelType: mt,
	}

	if out.Confidence != nil && !math.IsNaN(*out.Confidence) {
		c := math.Min(1, math.Max(0, *out.Confidence))
		resp.Confidence = &c
	}

	meta := make(map[string]any, len(out.Metadata)+len(routerMeta))
	for k, v := range out.Metadata {
		if isScalar(v) {
			meta[k] = v
		}
	}
	for k, v := range routerMeta {
		meta[k] = v
	}
	if len(meta) > 0 {
		resp.Metadata = meta
	}
	return resp, nil
}

func isScalar(v any) bool {
	switch x := v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return !math.IsNaN(x) && !math.IsInf(x, 0)
	case float32:
		f := float64(x)
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return false
}

// RouteRecord summarizes one completed route for audit logging.
type RouteRecord struct {
	Route     string
	ModelType ModelType
	Rule      string
	Latency   time.Duration
	Err       error
}

type Recorder interface {
	Record(ctx context.Context, rec RouteRecord)
}
