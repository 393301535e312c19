package router

import (
	"strings"

	"modelgate/internal/artifact"
)

// Request is the normalized input rules are evaluated against.
type Request struct {
	Question string
	Context  string
	Query    string
	Artifact *artifact.Artifact
}

// Rule selects Target when Match reports true. Rules are evaluated in order
// and the first match wins.
type Rule struct {
	Name   string
	Match  func(Request) bool
	Target ModelType
}

func HasContext() Rule {
	return Rule{
		Name:   "has_context",
		Match:  func(r Request) bool { return strings.TrimSpace(r.Context) != "" },
		Target: ModelRAG,
	}
}

func Default(target ModelType) Rule {
	return Rule{
		Name:   "default",
		Match:  func(Request) bool { return true },
		Target: target,
	}
}

// VisionPDF sends PDF documents to the multimodal capability instead of
// local text extraction.
func VisionPDF() Rule {
	return Rule{
		Name: "vision_pdf",
		Match: func(r Request) bool {
			return r.Artifact != nil && r.Artifact.Extension == ".pdf"
		},
		Target: ModelVision,
	}
}

func CategoryIs(c artifact.Category, target ModelType) Rule {
	return Rule{
		Name: "category_" + string(c),
		Match: func(r Request) bool {
			return r.Artifact != nil && r.Artifact.Category == c
		},
		Target: target,
	}
}

func Select(rules []Rule, req Request) (Rule, bool) {
	for _, r := range rules {
		if r.Match(req) {
			return r, true
		}
	}
	return Rule{}, false
}
