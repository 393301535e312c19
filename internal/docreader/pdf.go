package docreader

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

func readPDF(ctx context.Context, path string) (doc *Document, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if p := recover(); p != nil {
			doc, err = nil, fmt.Errorf("%w: malformed pdf: %v", ErrUnsupportedFormat, p)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf: %v", ErrUnsupportedFormat, err)
	}
	defer f.Close()

	var b strings.Builder
	total := r.NumPage()
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	return &Document{Text: b.String(), Pages: total}, nil
}
