// Package backend implements the router capabilities on top of the model
// provider adapters.
package backend

import (
	"context"
	"errors"
	"fmt"

	"modelgate/internal/docreader"
	"modelgate/internal/router"
)

type GenerateRequest struct {
	System string
	Prompt string
}

// Generation is a provider-neutral model answer.
type Generation struct {
	Text         string
	Model        string
	FinishReason string
	PromptTokens int
	OutputTokens int
}

func (g *Generation) metadata() map[string]any {
	meta := map[string]any{}
	if g.Model != "" {
		meta["model"] = g.Model
	}
	if g.FinishReason != "" {
		meta["finish_reason"] = g.FinishReason
	}
	if g.PromptTokens > 0 {
		meta["prompt_tokens"] = g.PromptTokens
	}
	if g.OutputTokens > 0 {
		meta["output_tokens"] = g.OutputTokens
	}
	return meta
}

type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Generation, error)
}

// Ranked is one passage index with its relevance score, best first.
type Ranked struct {
	Index int
	Score float64
}

// ErrRankingDisabled is returned by a Ranker with no provider configured.
// Callers keep the original passage order.
var ErrRankingDisabled = errors.New("ranking disabled")

type Ranker interface {
	Rank(ctx context.Context, query string, passages []string) ([]Ranked, error)
}

type MediaRequest struct {
	Path     string
	MIMEType string
	System   string
	Prompt   string
}

// MediaAnalyzer runs a multimodal prompt over a stored file.
type MediaAnalyzer interface {
	Analyze(ctx context.Context, req MediaRequest) (*Generation, error)
}

type Transcript struct {
	Text     string
	Model    string
	Language string
	Duration float64
}

type Transcriber interface {
	Transcribe(ctx context.Context, path, mimeType string) (*Transcript, error)
}

type DocumentReader interface {
	Read(ctx context.Context, path string) (*docreader.Document, error)
}

// Unavailable marks err as transient for the router.
func Unavailable(err error) error {
	return fmt.Errorf("%w: %w", router.ErrBackendUnavailable, err)
}

// Rejected marks err as the backend refusing the input.
func Rejected(err error) error {
	return fmt.Errorf("%w: %w", router.ErrBackendProcessing, err)
}
