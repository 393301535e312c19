package backend

import (
	"context"
	"fmt"

	"modelgate/internal/router"
)

const (
	visionPrompt = "Describe the contents of this document, including text, tables and figures. " +
		"Summarize its key points."
	videoPrompt = "Describe what happens in this video. Summarize the key events and any speech."
)

// Media runs a fixed multimodal prompt over the stored file. It serves both
// the VISION and VIDEO capabilities.
type Media struct {
	analyzer MediaAnalyzer
	prompt   string
}

func NewVision(analyzer MediaAnalyzer) *Media {
	return &Media{analyzer: analyzer, prompt: visionPrompt}
}

func NewVideo(analyzer MediaAnalyzer) *Media {
	return &Media{analyzer: analyzer, prompt: videoPrompt}
}

func (m *Media) Invoke(ctx context.Context, in router.Input) (*router.Output, error) {
	prompt := m.prompt
	if in.Query != "" {
		prompt = fmt.Sprintf("%s\n\nFocus on this request: %s", prompt, in.Query)
	}

	g, err := m.analyzer.Analyze(ctx, MediaRequest{
		Path:     in.StoragePath,
		MIMEType: in.MIMEType,
		Prompt:   prompt,
	})
	if err != nil {
		return nil, err
	}
	return &router.Output{Text: g.Text, Metadata: g.metadata()}, nil
}

type Audio struct {
	transcriber Transcriber
}

func NewAudio(t Transcriber) *Audio {
	return &Audio{transcriber: t}
}

// Invoke returns the transcript of the stored recording.
func (a *Audio) Invoke(ctx context.Context, in router.Input) (*router.Output, error) {
	tr, err := a.transcriber.Transcribe(ctx, in.StoragePath, in.MIMEType)
	if err != nil {
		return nil, err
	}

	meta := map[string]any{"transcript_length": len([]rune(tr.Text))}
	if tr.Model != "" {
		meta["model"] = tr.Model
	}
	if tr.Language != "" {
		meta["language"] = tr.Language
	}
	if tr.Duration > 0 {
		meta["duration_seconds"] = tr.Duration
	}
	return &router.Output{Text: tr.Text, Metadata: meta}, nil
}
