package backend

import (
	"context"
	"errors"

	"modelgate/internal/docreader"
	"modelgate/internal/router"
)

const documentSystemPrompt = "You process documents. Base every statement on the document text you are given."

type Document struct {
	reader DocumentReader
	gen    Generator
}

func NewDocument(reader DocumentReader, gen Generator) *Document {
	return &Document{reader: reader, gen: gen}
}

func (d *Document) Invoke(ctx context.Context, in router.Input) (*router.Output, error) {
	doc, err := d.reader.Read(ctx, in.StoragePath)
	if err != nil {
		if errors.Is(err, docreader.ErrUnsupportedFormat) || errors.Is(err, docreader.ErrEmptyDocument) {
			return nil, Rejected(err)
		}
		return nil, err
	}

	g, err := d.gen.Generate(ctx, GenerateRequest{
		System: documentSystemPrompt,
		Prompt: documentPrompt(doc.Text, in.Query),
	})
	if err != nil {
		return nil, err
	}

	meta := g.metadata()
	meta["characters"] = len([]rune(doc.Text))
	meta["pages"] = doc.Pages
	meta["format"] = doc.Format
	meta["truncated"] = doc.Truncated
	return &router.Output{Text: g.Text, Metadata: meta}, nil
}

func documentPrompt(body, query string) string {
	if query == "" {
		return "Summarize the key points of the following document.\n\nDocument:\n" + body
	}
	return "Using the following document, respond to the request.\n\nRequest: " + query + "\n\nDocument:\n" + body
}
