package router

import "context"

// ModelType names the backend capability that served a request.
type ModelType string

const (
	ModelQA       ModelType = "QA"
	ModelRAG      ModelType = "RAG"
	ModelDocument ModelType = "DOCUMENT"
	ModelVision   ModelType = "VISION"
	ModelAudio    ModelType = "AUDIO"
	ModelVideo    ModelType = "VIDEO"
)

// Input is the one shape every capability accepts. Fields a variant does
// not use are left empty.
type Input struct {
	Text        string
	Context     string
	StoragePath string
	Query       string
	MIMEType    string
}

// Output is what a capability returns before normalization.
type Output struct {
	Text       string
	Confidence *float64
	Metadata   map[string]any
}

type Capability interface {
	Invoke(ctx context.Context, in Input) (*Output, error)
}

type CapabilityFunc func(ctx context.Context, in Input) (*Output, error)

func (f CapabilityFunc) Invoke(ctx context.Context, in Input) (*Output, error) {
	return f(ctx, in)
}

// ModelResponse is the envelope returned for every successful route.
type ModelResponse struct {
	Response   string         `json:"response"`
	ModelType  ModelType      `json:"model_type"`
	Confidence *float64       `json:"confidence,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
