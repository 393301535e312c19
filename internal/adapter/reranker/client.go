package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"modelgate/internal/backend"
)

const (
	ProviderJina   = "jina"
	ProviderCohere = "cohere"

	jinaURL   = "https://api.jina.ai/v1/rerank"
	cohereURL = "https://api.cohere.ai/v1/rerank"
)

type Client struct {
	apiKey   string
	provider string
	client   *http.Client
	baseURL  string
}

func NewClient(provider, apiKey string) *Client {
	return &Client{
		provider: provider,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// Rank scores passages against query, best first. Unknown providers return
// backend.ErrRankingDisabled.
func (c *Client) Rank(ctx context.Context, query string, passages []string) ([]backend.Ranked, error) {
	switch c.provider {
	case ProviderJina:
		return c.rank(ctx, c.endpoint(jinaURL), map[string]interface{}{
			"model":     "jina-reranker-v1-base-en",
			"query":     query,
			"documents": passages,
		}, len(passages))
	case ProviderCohere:
		return c.rank(ctx, c.endpoint(cohereURL), map[string]interface{}{
			"model":            "rerank-english-v3.0",
			"query":            query,
			"documents":        passages,
			"top_n":            len(passages),
			"return_documents": false,
		}, len(passages))
	default:
		return nil, backend.ErrRankingDisabled
	}
}

func (c *Client) endpoint(def string) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return def
}

func (c *Client) rank(ctx context.Context, url string, reqBody map[string]interface{}, n int) ([]backend.Ranked, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, backend.Unavailable(fmt.Errorf("%s rerank request: %w", c.provider, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		apiErr := fmt.Errorf("%s api error: %d %s", c.provider, resp.StatusCode, bytes.TrimSpace(body))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return nil, backend.Unavailable(apiErr)
		}
		return nil, backend.Rejected(apiErr)
	}

	var result struct {
		Results []struct {
			Index int     `json:"index"`
			Score float64 `json:"relevance_score"`
		} `json:"results"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, backend.Rejected(fmt.Errorf("%s rerank response: %w", c.provider, err))
	}

	ranked := make([]backend.Ranked, 0, len(result.Results))
	for _, r := range result.Results {
		if r.Index >= 0 && r.Index < n {
			ranked = append(ranked, backend.Ranked{Index: r.Index, Score: r.Score})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	return ranked, nil
}
