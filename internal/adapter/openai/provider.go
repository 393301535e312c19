// Package openai adapts OpenAI chat completions and Whisper transcription to
// the backend capability interfaces.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"modelgate/internal/backend"
	"modelgate/internal/settings"
)

var ErrNotConfigured = errors.New("openai api key not configured")

const (
	DefaultModel           = "gpt-4o-mini"
	DefaultTranscribeModel = "whisper-1"
)

// Provider hands out an OpenAI client for the API key in the current
// settings. Static request options such as the base URL apply to every client.
type Provider struct {
	settingsSvc *settings.Service
	opts        []option.RequestOption
	client      *openai.Client
	currentKey  string
	mu          sync.RWMutex
}

func NewProvider(svc *settings.Service, opts ...option.RequestOption) *Provider {
	return &Provider{settingsSvc: svc, opts: opts}
}

func (p *Provider) session(ctx context.Context) (*openai.Client, string, error) {
	s, err := p.settingsSvc.Get(ctx)
	if err != nil {
		return nil, "", backend.Unavailable(fmt.Errorf("failed to get settings: %w", err))
	}
	if s.OpenAIAPIKey == "" {
		return nil, "", backend.Unavailable(ErrNotConfigured)
	}

	model := s.OpenAIModel
	if model == "" {
		model = DefaultModel
	}
	return p.getClient(s.OpenAIAPIKey), model, nil
}

func (p *Provider) getClient(key string) *openai.Client {
	p.mu.RLock()
	if p.client != nil && p.currentKey == key {
		defer p.mu.RUnlock()
		return p.client
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil && p.currentKey == key {
		return p.client
	}

	opts := append(append([]option.RequestOption{}, p.opts...), option.WithAPIKey(key))
	client := openai.NewClient(opts...)
	p.client = &client
	p.currentKey = key
	return p.client
}

// classify maps OpenAI failures onto the backend taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= http.StatusInternalServerError {
			return backend.Unavailable(err)
		}
		return backend.Rejected(err)
	}
	return backend.Unavailable(err)
}
