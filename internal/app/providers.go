package app

import (
	"context"
	"errors"
	"fmt"

	"modelgate/internal/adapter/gemini"
	"modelgate/internal/backend"
	"modelgate/internal/config"
	"modelgate/internal/settings"
)

// llmGenerator dispatches to the provider named by the current settings.
type llmGenerator struct {
	settings *settings.Service
	gemini   backend.Generator
	openai   backend.Generator
}

func (g *llmGenerator) Generate(ctx context.Context, req backend.GenerateRequest) (*backend.Generation, error) {
	s, err := g.settings.Get(ctx)
	if err != nil {
		return nil, backend.Unavailable(fmt.Errorf("load settings: %w", err))
	}
	if s.LLMProvider == config.ProviderOpenAI {
		return g.openai.Generate(ctx, req)
	}
	return g.gemini.Generate(ctx, req)
}

// audioTranscriber prefers the dedicated transcription model when an OpenAI
// key is set and falls back to Gemini's multimodal prompt otherwise.
type audioTranscriber struct {
	settings *settings.Service
	openai   backend.Transcriber
	gemini   backend.Transcriber
}

func (t *audioTranscriber) Transcribe(ctx context.Context, path, mimeType string) (*backend.Transcript, error) {
	s, err := t.settings.Get(ctx)
	if err != nil {
		return nil, backend.Unavailable(fmt.Errorf("load settings: %w", err))
	}
	if s.OpenAIAPIKey != "" {
		return t.openai.Transcribe(ctx, path, mimeType)
	}
	return t.gemini.Transcribe(ctx, path, mimeType)
}

// optionalRanker turns a missing Gemini key into disabled ranking so RAG
// still answers in passage order.
type optionalRanker struct {
	backend.Ranker
}

func (r optionalRanker) Rank(ctx context.Context, query string, passages []string) ([]backend.Ranked, error) {
	ranked, err := r.Ranker.Rank(ctx, query, passages)
	if errors.Is(err, gemini.ErrNotConfigured) {
		return nil, backend.ErrRankingDisabled
	}
	return ranked, err
}

func topKFromSettings(svc *settings.Service) func(context.Context) int {
	return func(ctx context.Context) int {
		s, err := svc.Get(ctx)
		if err != nil {
			return 0
		}
		return s.RAGTopK
	}
}
