package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelgate/internal/adapter/gemini"
	"modelgate/internal/backend"
	"modelgate/internal/config"
	"modelgate/internal/router"
	"modelgate/internal/settings"
)

type namedGenerator string

func (n namedGenerator) Generate(context.Context, backend.GenerateRequest) (*backend.Generation, error) {
	return &backend.Generation{Text: string(n)}, nil
}

type namedTranscriber string

func (n namedTranscriber) Transcribe(context.Context, string, string) (*backend.Transcript, error) {
	return &backend.Transcript{Text: string(n)}, nil
}

type errRanker struct{ err error }

func (r errRanker) Rank(context.Context, string, []string) ([]backend.Ranked, error) {
	return nil, r.err
}

type failingRepo struct{}

func (failingRepo) Get(context.Context) (*settings.Settings, error) { return nil, errors.New("db down") }
func (failingRepo) Update(context.Context, *settings.Settings) error { return errors.New("db down") }

func newSettings(s settings.Settings) *settings.Service {
	return settings.NewService(settings.NewMemoryRepo(&s))
}

func TestLLMGenerator_FollowsSettings(t *testing.T) {
	svc := newSettings(settings.Settings{LLMProvider: config.ProviderGemini})
	g := &llmGenerator{settings: svc, gemini: namedGenerator("gemini"), openai: namedGenerator("openai")}

	out, err := g.Generate(context.Background(), backend.GenerateRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", out.Text)

	require.NoError(t, svc.Update(context.Background(), &settings.Settings{LLMProvider: config.ProviderOpenAI}))
	out, err = g.Generate(context.Background(), backend.GenerateRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "openai", out.Text)
}

func TestLLMGenerator_SettingsError(t *testing.T) {
	g := &llmGenerator{settings: settings.NewService(failingRepo{}), gemini: namedGenerator("gemini"), openai: namedGenerator("openai")}

	_, err := g.Generate(context.Background(), backend.GenerateRequest{})
	assert.ErrorIs(t, err, router.ErrBackendUnavailable)
}

func TestAudioTranscriber_PrefersOpenAI(t *testing.T) {
	svc := newSettings(settings.Settings{LLMProvider: config.ProviderGemini})
	tr := &audioTranscriber{settings: svc, openai: namedTranscriber("whisper"), gemini: namedTranscriber("gemini")}

	out, err := tr.Transcribe(context.Background(), "/tmp/a.mp3", "audio/mpeg")
	require.NoError(t, err)
	assert.Equal(t, "gemini", out.Text)

	require.NoError(t, svc.Update(context.Background(), &settings.Settings{LLMProvider: config.ProviderGemini, OpenAIAPIKey: "sk-test"}))
	out, err = tr.Transcribe(context.Background(), "/tmp/a.mp3", "audio/mpeg")
	require.NoError(t, err)
	assert.Equal(t, "whisper", out.Text)
}

func TestOptionalRanker(t *testing.T) {
	_, err := optionalRanker{errRanker{backend.Unavailable(gemini.ErrNotConfigured)}}.Rank(context.Background(), "q", []string{"a", "b"})
	assert.ErrorIs(t, err, backend.ErrRankingDisabled)

	boom := backend.Unavailable(errors.New("429"))
	_, err = optionalRanker{errRanker{boom}}.Rank(context.Background(), "q", []string{"a", "b"})
	assert.ErrorIs(t, err, router.ErrBackendUnavailable)
	assert.NotErrorIs(t, err, backend.ErrRankingDisabled)
}

func TestTopKFromSettings(t *testing.T) {
	f := topKFromSettings(newSettings(settings.Settings{LLMProvider: config.ProviderGemini, RAGTopK: 7}))
	assert.Equal(t, 7, f(context.Background()))

	f = topKFromSettings(settings.NewService(failingRepo{}))
	assert.Equal(t, 0, f(context.Background()))
}
