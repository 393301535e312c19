package gemini

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"modelgate/internal/backend"
)

type generateFunc func(ctx context.Context, model *genai.GenerativeModel, parts ...genai.Part) (*genai.GenerateContentResponse, error)

func generateContent(ctx context.Context, model *genai.GenerativeModel, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	return model.GenerateContent(ctx, parts...)
}

type Generator struct {
	p        *Provider
	generate generateFunc
}

func NewGenerator(p *Provider) *Generator {
	return &Generator{p: p, generate: generateContent}
}

func (g *Generator) Generate(ctx context.Context, req backend.GenerateRequest) (*backend.Generation, error) {
	client, name, err := g.p.session(ctx)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "generating content", "model", name, "prompt_length", len(req.Prompt))
	return g.run(ctx, client.GenerativeModel(name), name, req.System, genai.Text(req.Prompt))
}

func (g *Generator) run(ctx context.Context, model *genai.GenerativeModel, name, system string, parts ...genai.Part) (*backend.Generation, error) {
	if system != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(system))
	}

	resp, err := g.generate(ctx, model, parts...)
	if err != nil {
		slog.WarnContext(ctx, "gemini generation failed", "model", name, "error", err)
		return nil, classify(err)
	}
	return toGeneration(resp, name)
}

func toGeneration(resp *genai.GenerateContentResponse, model string) (*backend.Generation, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, backend.Rejected(errors.New("gemini returned no candidates"))
	}

	cand := resp.Candidates[0]
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}

	g := &backend.Generation{
		Text:         strings.TrimSpace(b.String()),
		Model:        model,
		FinishReason: cand.FinishReason.String(),
	}
	if u := resp.UsageMetadata; u != nil {
		g.PromptTokens = int(u.PromptTokenCount)
		g.OutputTokens = int(u.CandidatesTokenCount)
	}
	return g, nil
}
