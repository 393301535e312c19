package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/google/generative-ai-go/genai"

	"modelgate/internal/backend"
)

const DefaultEmbeddingModel = "gemini-embedding-001"

// EmbeddingRanker orders passages by cosine similarity between their
// embeddings and the query embedding. All texts go out in one batch call.
type EmbeddingRanker struct {
	p     *Provider
	model string
}

func NewEmbeddingRanker(p *Provider, model string) *EmbeddingRanker {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &EmbeddingRanker{p: p, model: model}
}

func (r *EmbeddingRanker) Rank(ctx context.Context, query string, passages []string) ([]backend.Ranked, error) {
	client, _, err := r.p.session(ctx)
	if err != nil {
		return nil, err
	}

	slog.DebugContext(ctx, "embedding passages", "model", r.model, "passages", len(passages))
	em := client.EmbeddingModel(r.model)
	batch := em.NewBatch().AddContent(genai.Text(query))
	for _, p := range passages {
		batch.AddContent(genai.Text(p))
	}

	res, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, classify(err)
	}
	if len(res.Embeddings) != len(passages)+1 {
		return nil, backend.Rejected(fmt.Errorf("expected %d embeddings, got %d", len(passages)+1, len(res.Embeddings)))
	}

	q := res.Embeddings[0].Values
	ranked := make([]backend.Ranked, len(passages))
	for i, e := range res.Embeddings[1:] {
		ranked[i] = backend.Ranked{Index: i, Score: cosine(q, e.Values)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked, nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
