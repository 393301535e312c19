package reranker

import (
	"context"
	"fmt"
	"sync"

	"modelgate/internal/backend"
	"modelgate/internal/settings"
)

// DynamicClient picks the rerank provider from the current settings on every
// call, caching one Client per provider and key.
type DynamicClient struct {
	settingsSvc *settings.Service
	fallback    backend.Ranker
	client      *Client
	provider    string
	key         string
	mu          sync.RWMutex
}

func NewDynamicClient(svc *settings.Service) *DynamicClient {
	return &DynamicClient{settingsSvc: svc}
}

// WithFallback sets the ranker used when no rerank provider is configured.
func (d *DynamicClient) WithFallback(r backend.Ranker) *DynamicClient {
	d.fallback = r
	return d
}

func (d *DynamicClient) Rank(ctx context.Context, query string, passages []string) ([]backend.Ranked, error) {
	s, err := d.settingsSvc.Get(ctx)
	if err != nil {
		return nil, backend.Unavailable(fmt.Errorf("failed to get settings: %w", err))
	}

	switch s.RerankProvider {
	case ProviderJina, ProviderCohere:
		return d.getClient(s.RerankProvider, s.RerankAPIKey).Rank(ctx, query, passages)
	}

	if d.fallback != nil {
		return d.fallback.Rank(ctx, query, passages)
	}
	return nil, backend.ErrRankingDisabled
}

func (d *DynamicClient) getClient(provider, key string) *Client {
	d.mu.RLock()
	if d.client != nil && d.provider == provider && d.key == key {
		defer d.mu.RUnlock()
		return d.client
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client != nil && d.provider == provider && d.key == key {
		return d.client
	}

	d.client = NewClient(provider, key)
	d.provider = provider
	d.key = key
	return d.client
}
