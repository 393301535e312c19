package reranker

import (
	"context"
	"testing"

	"modelgate/internal/backend"
	"modelgate/internal/router"
	"modelgate/internal/settings"

	"github.com/stretchr/testify/assert"
)

type MockSettingsRepo struct {
	Settings *settings.Settings
	Err      error
}

func (m *MockSettingsRepo) Get(ctx context.Context) (*settings.Settings, error) {
	return m.Settings, m.Err
}

func (m *MockSettingsRepo) Update(ctx context.Context, s *settings.Settings) error {
	return nil
}

type staticRanker []backend.Ranked

func (s staticRanker) Rank(context.Context, string, []string) ([]backend.Ranked, error) {
	return s, nil
}

func TestDynamicClient_Rank_Disabled(t *testing.T) {
	for _, provider := range []string{"none", ""} {
		repo := &MockSettingsRepo{Settings: &settings.Settings{RerankProvider: provider}}
		client := NewDynamicClient(settings.NewService(repo))

		_, err := client.Rank(context.Background(), "query", []string{"doc1", "doc2"})
		assert.ErrorIs(t, err, backend.ErrRankingDisabled, "provider %q", provider)
	}
}

func TestDynamicClient_Rank_Fallback(t *testing.T) {
	repo := &MockSettingsRepo{Settings: &settings.Settings{RerankProvider: "none"}}
	want := staticRanker{{Index: 1, Score: 0.5}}
	client := NewDynamicClient(settings.NewService(repo)).WithFallback(want)

	got, err := client.Rank(context.Background(), "query", []string{"doc1", "doc2"})
	assert.NoError(t, err)
	assert.Equal(t, []backend.Ranked(want), got)
}

func TestDynamicClient_Rank_SettingsError(t *testing.T) {
	repo := &MockSettingsRepo{Err: assert.AnError}
	client := NewDynamicClient(settings.NewService(repo))

	_, err := client.Rank(context.Background(), "query", []string{"doc1"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get settings")
	assert.ErrorIs(t, err, router.ErrBackendUnavailable)
}

func TestDynamicClient_GetClient_Caching(t *testing.T) {
	dc := NewDynamicClient(nil)

	c1 := dc.getClient("jina", "key-1")
	assert.NotNil(t, c1)

	c2 := dc.getClient("jina", "key-1")
	assert.Same(t, c1, c2, "should return same cached client")

	c3 := dc.getClient("jina", "key-2")
	assert.NotSame(t, c1, c3, "should create new client for different key")

	c4 := dc.getClient("cohere", "key-2")
	assert.NotSame(t, c3, c4, "should create new client for different provider")
}
