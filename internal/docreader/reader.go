// Package docreader extracts plain text from stored documents so text-only
// models can process them.
package docreader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrEmptyDocument     = errors.New("document contains no extractable text")
)

type Document struct {
	Text      string
	Pages     int
	Format    string
	Truncated bool
}

type Reader struct {
	maxChars int
}

// NewReader returns a Reader that keeps at most maxChars characters of
// extracted text. Zero keeps everything.
func NewReader(maxChars int) *Reader {
	return &Reader{maxChars: maxChars}
}

func (r *Reader) Read(ctx context.Context, path string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	var (
		doc *Document
		err error
	)
	switch ext {
	case ".pdf":
		doc, err = readPDF(ctx, path)
	case ".docx":
		doc, err = readDOCX(path)
	case ".md":
		doc, err = readMarkdown(path)
	case ".txt":
		doc, err = readText(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}

	doc.Format = strings.TrimPrefix(ext, ".")
	doc.Text = strings.TrimSpace(doc.Text)
	if doc.Text == "" {
		return nil, ErrEmptyDocument
	}
	if r.maxChars > 0 && utf8.RuneCountInString(doc.Text) > r.maxChars {
		doc.Text = string([]rune(doc.Text)[:r.maxChars])
		doc.Truncated = true
	}
	return doc, nil
}

func readText(path string) (*Document, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the storage allocator
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: text file is not valid UTF-8", ErrUnsupportedFormat)
	}
	return &Document{Text: string(data), Pages: 1}, nil
}
