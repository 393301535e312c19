package docreader

import (
	"fmt"
	"os"
	"strings"

	"github.com/gonfva/docxlib"
)

// readDOCX keeps run and hyperlink text, one line per non-empty paragraph.
// Pagination is decided at layout time, so a docx counts as one page.
func readDOCX(path string) (*Document, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from the storage allocator
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	doc, err := docxlib.Parse(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: parse docx: %v", ErrUnsupportedFormat, err)
	}

	paras := doc.Paragraphs()
	if len(paras) == 0 {
		return nil, fmt.Errorf("%w: docx has no body paragraphs", ErrUnsupportedFormat)
	}

	lines := make([]string, 0, len(paras))
	for _, p := range paras {
		var b strings.Builder
		for _, child := range p.Children() {
			switch {
			case child.Run != nil && child.Run.Text != nil:
				b.WriteString(child.Run.Text.Text)
			case child.Link != nil && child.Link.Run.Text != nil:
				b.WriteString(child.Link.Run.Text.Text)
			}
		}
		if line := strings.TrimRight(b.String(), " \t"); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	return &Document{Text: strings.Join(lines, "\n"), Pages: 1}, nil
}
