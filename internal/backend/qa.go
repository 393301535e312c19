package backend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"modelgate/internal/router"
	"modelgate/internal/text"
)

const (
	qaSystemPrompt = "You are a helpful assistant. Answer the question accurately and concisely. " +
		"If you do not know the answer, say so."
	ragSystemPrompt = "Answer the question using only the numbered context passages. " +
		"If the passages do not contain the answer, say that the context is insufficient."
)

type QA struct {
	gen Generator
}

func NewQA(gen Generator) *QA {
	return &QA{gen: gen}
}

func (q *QA) Invoke(ctx context.Context, in router.Input) (*router.Output, error) {
	g, err := q.gen.Generate(ctx, GenerateRequest{System: qaSystemPrompt, Prompt: in.Text})
	if err != nil {
		return nil, err
	}
	return &router.Output{Text: g.Text, Metadata: g.metadata()}, nil
}

// RAG answers a question from caller-supplied context: the context is split
// into passages, ranked against the question when a ranker is configured,
// and the best passages are handed to the generator.
type RAG struct {
	gen         Generator
	ranker      Ranker
	topK        int
	topKFunc    func(context.Context) int
	chunkTokens int
	overlap     int
}

type RAGOption func(*RAG)

func WithRanker(r Ranker) RAGOption {
	return func(g *RAG) { g.ranker = r }
}

func WithTopK(k int) RAGOption {
	return func(g *RAG) {
		if k > 0 {
			g.topK = k
		}
	}
}

// WithTopKFunc reads the passage limit per call. Non-positive results fall
// back to the static limit.
func WithTopKFunc(f func(context.Context) int) RAGOption {
	return func(g *RAG) { g.topKFunc = f }
}

func WithChunkTokens(n int) RAGOption {
	return func(g *RAG) {
		if n > 0 {
			g.chunkTokens = n
		}
	}
}

// WithOverlap sets how many trailing words of a passage are repeated at the
// start of the next one.
func WithOverlap(words int) RAGOption {
	return func(g *RAG) {
		if words >= 0 {
			g.overlap = words
		}
	}
}

func NewRAG(gen Generator, opts ...RAGOption) *RAG {
	r := &RAG{gen: gen, topK: 5, chunkTokens: 512, overlap: 16}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RAG) Invoke(ctx context.Context, in router.Input) (*router.Output, error) {
	passages := text.Split(in.Context, r.chunkTokens, r.overlap)
	if len(passages) == 0 {
		return nil, Rejected(fmt.Errorf("context is empty"))
	}

	selected, confidence, ranked, err := r.selectPassages(ctx, in.Text, passages)
	if err != nil {
		return nil, err
	}

	g, err := r.gen.Generate(ctx, GenerateRequest{
		System: ragSystemPrompt,
		Prompt: ragPrompt(in.Text, selected),
	})
	if err != nil {
		return nil, err
	}

	meta := g.metadata()
	meta["passages_total"] = len(passages)
	meta["passages_used"] = len(selected)
	meta["ranked"] = ranked

	return &router.Output{Text: g.Text, Confidence: confidence, Metadata: meta}, nil
}

func (r *RAG) limit(ctx context.Context) int {
	if r.topKFunc != nil {
		if k := r.topKFunc(ctx); k > 0 {
			return k
		}
	}
	return r.topK
}

func (r *RAG) selectPassages(ctx context.Context, question string, passages []string) ([]string, *float64, bool, error) {
	topK := r.limit(ctx)
	inOrder := func() ([]string, *float64, bool, error) {
		if len(passages) > topK {
			return passages[:topK], nil, false, nil
		}
		return passages, nil, false, nil
	}
	if r.ranker == nil || len(passages) == 1 {
		return inOrder()
	}

	ranked, err := r.ranker.Rank(ctx, question, passages)
	if errors.Is(err, ErrRankingDisabled) {
		return inOrder()
	}
	if err != nil {
		return nil, nil, false, err
	}
	if len(ranked) == 0 {
		return nil, nil, false, Rejected(fmt.Errorf("ranker returned no passages"))
	}

	selected := make([]string, 0, topK)
	for _, rk := range ranked {
		if rk.Index < 0 || rk.Index >= len(passages) {
			continue
		}
		selected = append(selected, passages[rk.Index])
		if len(selected) == topK {
			break
		}
	}
	if len(selected) == 0 {
		return nil, nil, false, Rejected(fmt.Errorf("ranker returned out-of-range indices"))
	}

	var confidence *float64
	if top := ranked[0].Score; !math.IsNaN(top) {
		confidence = &top
	}
	return selected, confidence, true, nil
}

func ragPrompt(question string, passages []string) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, p)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}
