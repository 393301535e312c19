// Package gemini adapts the Gemini API to the backend capability interfaces.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"modelgate/internal/backend"
	"modelgate/internal/settings"
)

var ErrNotConfigured = errors.New("gemini api key not configured")

const DefaultModel = "gemini-1.5-flash"

// Provider hands out a genai client for the API key in the current settings.
// The client is rebuilt when the key changes.
type Provider struct {
	settingsSvc *settings.Service
	client      *genai.Client
	currentKey  string
	mu          sync.RWMutex
	clientOpts  []option.ClientOption
}

func NewProvider(svc *settings.Service, opts ...option.ClientOption) *Provider {
	return &Provider{
		settingsSvc: svc,
		clientOpts:  opts,
	}
}

// session returns the client and the model name to use for this call.
func (p *Provider) session(ctx context.Context) (*genai.Client, string, error) {
	s, err := p.settingsSvc.Get(ctx)
	if err != nil {
		return nil, "", backend.Unavailable(fmt.Errorf("failed to get settings: %w", err))
	}

	if s.GeminiAPIKey == "" {
		return nil, "", backend.Unavailable(ErrNotConfigured)
	}

	client, err := p.getClient(ctx, s.GeminiAPIKey)
	if err != nil {
		return nil, "", backend.Unavailable(err)
	}

	model := s.GeminiModel
	if model == "" {
		model = DefaultModel
	}
	return client, model, nil
}

func (p *Provider) getClient(ctx context.Context, key string) (*genai.Client, error) {
	p.mu.RLock()
	if p.client != nil && p.currentKey == key {
		defer p.mu.RUnlock()
		return p.client, nil
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double check
	if p.client != nil && p.currentKey == key {
		return p.client, nil
	}

	if p.client != nil {
		if err := p.client.Close(); err != nil {
			slog.Warn("failed to close previous genai client", "error", err)
		}
	}

	opts := append(append([]option.ClientOption{}, p.clientOpts...), option.WithAPIKey(key))
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	p.client = client
	p.currentKey = key
	return client, nil
}

func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	p.currentKey = ""
	return err
}
