package openai

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"

	"modelgate/internal/backend"
)

type Generator struct {
	p *Provider
}

func NewGenerator(p *Provider) *Generator {
	return &Generator{p: p}
}

func (g *Generator) Generate(ctx context.Context, req backend.GenerateRequest) (*backend.Generation, error) {
	client, model, err := g.p.session(ctx)
	if err != nil {
		return nil, err
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	slog.DebugContext(ctx, "creating chat completion", "model", model, "prompt_length", len(req.Prompt))
	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	})
	if err != nil {
		slog.WarnContext(ctx, "openai completion failed", "model", model, "error", err)
		return nil, classify(err)
	}

	if len(completion.Choices) == 0 {
		return nil, backend.Rejected(errors.New("openai returned no choices"))
	}
	choice := completion.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, backend.Rejected(errors.New("openai refused: " + choice.Message.Refusal))
	}

	name := completion.Model
	if name == "" {
		name = model
	}
	return &backend.Generation{
		Text:         strings.TrimSpace(choice.Message.Content),
		Model:        name,
		FinishReason: choice.FinishReason,
		PromptTokens: int(completion.Usage.PromptTokens),
		OutputTokens: int(completion.Usage.CompletionTokens),
	}, nil
}
