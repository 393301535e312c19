package text

import (
	"regexp"
	"strings"
)

// CharsPerToken approximates tokens for English prose.
const CharsPerToken = 4

var (
	headerRe = regexp.MustCompile(`(?m)^#{1,6}\s`)
	fenceRe  = regexp.MustCompile("(?s)```[a-zA-Z0-9_+-]*[[:space:]]*\\n.*?\\n[[:space:]]*```")
)

// Split breaks caller-supplied context into passages of at most maxTokens
// (estimated). Structure is respected in order: headers, paragraphs, lines,
// then words. Fenced code blocks are kept whole when they fit. overlap
// carries the trailing words of each passage into the next one.
func Split(text string, maxTokens, overlap int) []string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	if text == "" {
		return nil
	}
	if maxTokens < 1 {
		maxTokens = 1
	}
	maxChars := maxTokens * CharsPerToken

	var chunks []string
	last := 0
	for _, loc := range fenceRe.FindAllStringIndex(text, -1) {
		chunks = append(chunks, splitProse(text[last:loc[0]], maxChars)...)
		block := text[loc[0]:loc[1]]
		if len(block) <= maxChars {
			chunks = append(chunks, block)
		} else {
			chunks = append(chunks, splitLines(block, maxChars)...)
		}
		last = loc[1]
	}
	chunks = append(chunks, splitProse(text[last:], maxChars)...)

	return withOverlap(chunks, overlap)
}

func splitProse(text string, maxChars int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sections []string
	last := 0
	for _, loc := range headerRe.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			sections = append(sections, text[last:loc[0]])
		}
		last = loc[0]
	}
	sections = append(sections, text[last:])

	var chunks []string
	for _, section := range sections {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		if len(section) <= maxChars {
			chunks = append(chunks, section)
			continue
		}
		chunks = append(chunks, splitParagraphs(section, maxChars)...)
	}
	return chunks
}

func splitParagraphs(section string, maxChars int) []string {
	b := &builder{max: maxChars}
	for _, para := range strings.Split(section, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if b.fits(para, 2) {
			b.add(para, "\n\n")
			continue
		}
		b.flush()
		if len(para) <= maxChars {
			b.add(para, "")
			continue
		}
		b.chunks = append(b.chunks, splitLines(para, maxChars)...)
	}
	b.flush()
	return b.chunks
}

func splitLines(para string, maxChars int) []string {
	b := &builder{max: maxChars}
	for _, line := range strings.Split(para, "\n") {
		if b.fits(line, 1) {
			b.add(line, "\n")
			continue
		}
		b.flush()
		if len(line) <= maxChars {
			b.add(line, "")
			continue
		}
		for _, word := range strings.Fields(line) {
			if !b.fits(word, 1) {
				b.flush()
			}
			b.add(word, " ")
		}
		b.flush()
	}
	b.flush()
	return b.chunks
}

type builder struct {
	max    int
	cur    strings.Builder
	chunks []string
}

func (b *builder) fits(s string, sep int) bool {
	if b.cur.Len() == 0 {
		return len(s) <= b.max
	}
	return b.cur.Len()+sep+len(s) <= b.max
}

func (b *builder) add(s, sep string) {
	if b.cur.Len() > 0 {
		b.cur.WriteString(sep)
	}
	b.cur.WriteString(s)
}

func (b *builder) flush() {
	if s := strings.TrimSpace(b.cur.String()); s != "" {
		b.chunks = append(b.chunks, s)
	}
	b.cur.Reset()
}

func withOverlap(chunks []string, overlap int) []string {
	if overlap <= 0 || len(chunks) < 2 {
		return chunks
	}
	out := make([]string, len(chunks))
	out[0] = chunks[0]
	for i := 1; i < len(chunks); i++ {
		words := strings.Fields(chunks[i-1])
		if len(words) > overlap {
			words = words[len(words)-overlap:]
		}
		out[i] = strings.Join(words, " ") + "\n" + chunks[i]
	}
	return out
}
