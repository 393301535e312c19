package openai

import (
	"context"
	"os"
	"strings"

	"github.com/openai/openai-go"

	"modelgate/internal/backend"
)

type Transcriber struct {
	p     *Provider
	model string
}

func NewTranscriber(p *Provider, model string) *Transcriber {
	if model == "" {
		model = DefaultTranscribeModel
	}
	return &Transcriber{p: p, model: model}
}

// Transcribe uploads the recording at path to the transcription endpoint.
// The file name carries the format, so mimeType is not sent.
func (t *Transcriber) Transcribe(ctx context.Context, path, mimeType string) (*backend.Transcript, error) {
	client, _, err := t.p.session(ctx)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tr, err := client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  f,
		Model: openai.AudioModel(t.model),
	})
	if err != nil {
		return nil, classify(err)
	}

	return &backend.Transcript{Text: strings.TrimSpace(tr.Text), Model: t.model}, nil
}
