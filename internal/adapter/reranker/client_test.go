package reranker_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelgate/internal/adapter/reranker"
	"modelgate/internal/backend"
	"modelgate/internal/router"
)

func rerankServer(t *testing.T, wantAuth string, body map[string]interface{}) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/rerank", r.URL.Path)
		assert.Equal(t, "Bearer "+wantAuth, r.Header.Get("Authorization"))

		var req map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "q", req["query"])

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestClient_Rank_Jina(t *testing.T) {
	ts := rerankServer(t, "k1", map[string]interface{}{
		"results": []map[string]interface{}{
			{"index": 1, "relevance_score": 0.9},
			{"index": 0, "relevance_score": 0.8},
		},
	})

	client := reranker.NewClient("jina", "k1")
	client.SetBaseURL(ts.URL + "/v1/rerank")

	ranked, err := client.Rank(context.Background(), "q", []string{"d1", "d2"})
	require.NoError(t, err)
	assert.Equal(t, []backend.Ranked{{Index: 1, Score: 0.9}, {Index: 0, Score: 0.8}}, ranked)
}

func TestClient_Rank_CohereSortsAndDropsOutOfRange(t *testing.T) {
	ts := rerankServer(t, "k2", map[string]interface{}{
		"results": []map[string]interface{}{
			{"index": 0, "relevance_score": 0.2},
			{"index": 5, "relevance_score": 0.99},
			{"index": 1, "relevance_score": 0.7},
		},
	})

	client := reranker.NewClient("cohere", "k2")
	client.SetBaseURL(ts.URL + "/v1/rerank")

	ranked, err := client.Rank(context.Background(), "q", []string{"d1", "d2"})
	require.NoError(t, err)
	assert.Equal(t, []backend.Ranked{{Index: 1, Score: 0.7}, {Index: 0, Score: 0.2}}, ranked)
}

func TestClient_Rank_None(t *testing.T) {
	client := reranker.NewClient("none", "")
	_, err := client.Rank(context.Background(), "q", []string{"d1", "d2"})
	assert.ErrorIs(t, err, backend.ErrRankingDisabled)
}

func TestClient_Rank_ErrorHandling(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"bad request", http.StatusBadRequest, router.ErrBackendProcessing},
		{"rate limited", http.StatusTooManyRequests, router.ErrBackendUnavailable},
		{"server error", http.StatusBadGateway, router.ErrBackendUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"detail":"invalid query"}`))
			}))
			defer ts.Close()

			client := reranker.NewClient("jina", "k1")
			client.SetBaseURL(ts.URL)

			_, err := client.Rank(context.Background(), "q", []string{"d1"})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), "jina api error")
			assert.Contains(t, err.Error(), `{"detail":"invalid query"}`)
		})
	}
}

func TestClient_Rank_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client := reranker.NewClient("cohere", "k")
	client.SetBaseURL(url)

	_, err := client.Rank(context.Background(), "q", []string{"d1"})
	assert.ErrorIs(t, err, router.ErrBackendUnavailable)
}
