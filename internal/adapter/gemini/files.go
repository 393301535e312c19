package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/generative-ai-go/genai"

	"modelgate/internal/backend"
)

const transcribePrompt = "Transcribe the speech in this recording verbatim. Return only the transcript."

// fileStore is the subset of the File API used here.
type fileStore interface {
	UploadFileFromPath(ctx context.Context, path string, opts *genai.UploadFileOptions) (*genai.File, error)
	GetFile(ctx context.Context, name string) (*genai.File, error)
	DeleteFile(ctx context.Context, name string) error
}

// FileAnalyzer uploads a stored artifact through the File API, waits for it
// to become ACTIVE and runs a multimodal prompt over it. The remote copy is
// deleted afterwards.
type FileAnalyzer struct {
	gen          *Generator
	pollInterval time.Duration
	files        func(*genai.Client) fileStore
}

func NewFileAnalyzer(p *Provider) *FileAnalyzer {
	return &FileAnalyzer{
		gen:          NewGenerator(p),
		pollInterval: 2 * time.Second,
		files:        func(c *genai.Client) fileStore { return c },
	}
}

func (a *FileAnalyzer) Analyze(ctx context.Context, req backend.MediaRequest) (*backend.Generation, error) {
	client, name, err := a.gen.p.session(ctx)
	if err != nil {
		return nil, err
	}
	return a.analyze(ctx, a.files(client), client.GenerativeModel(name), name, req)
}

func (a *FileAnalyzer) analyze(ctx context.Context, files fileStore, model *genai.GenerativeModel, name string, req backend.MediaRequest) (*backend.Generation, error) {
	f, err := files.UploadFileFromPath(ctx, req.Path, &genai.UploadFileOptions{
		DisplayName: filepath.Base(req.Path),
		MIMEType:    req.MIMEType,
	})
	if err != nil {
		return nil, classify(err)
	}
	defer func() {
		// The request context may already be done.
		if err := files.DeleteFile(context.WithoutCancel(ctx), f.Name); err != nil {
			slog.WarnContext(ctx, "failed to delete uploaded file", "file", f.Name, "error", err)
		}
	}()

	f, err = waitActive(ctx, files, f, a.pollInterval)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "analyzing file", "model", name, "file", f.Name, "mime_type", f.MIMEType)
	return a.gen.run(ctx, model, name, req.System, genai.FileData{MIMEType: f.MIMEType, URI: f.URI}, genai.Text(req.Prompt))
}

func waitActive(ctx context.Context, files fileStore, f *genai.File, interval time.Duration) (*genai.File, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for f.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		var err error
		f, err = files.GetFile(ctx, f.Name)
		if err != nil {
			return nil, classify(err)
		}
	}

	if f.State != genai.FileStateActive {
		return nil, backend.Rejected(fmt.Errorf("file %s ended in state %s", f.Name, f.State))
	}
	return f, nil
}

// Transcriber produces transcripts with a Gemini multimodal prompt.
type Transcriber struct {
	analyzer backend.MediaAnalyzer
}

func NewTranscriber(analyzer backend.MediaAnalyzer) *Transcriber {
	return &Transcriber{analyzer: analyzer}
}

func (t *Transcriber) Transcribe(ctx context.Context, path, mimeType string) (*backend.Transcript, error) {
	g, err := t.analyzer.Analyze(ctx, backend.MediaRequest{Path: path, MIMEType: mimeType, Prompt: transcribePrompt})
	if err != nil {
		return nil, err
	}
	return &backend.Transcript{Text: g.Text, Model: g.Model}, nil
}
