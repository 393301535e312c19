package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"modelgate/internal/config"
)

var ErrInvalid = errors.New("invalid settings")

const (
	RerankNone   = "none"
	RerankJina   = "jina"
	RerankCohere = "cohere"
)

// Settings are the runtime-tunable provider choices. They can change without a
// restart; adapters read them per call.
type Settings struct {
	ID             int    `json:"-"`
	LLMProvider    string `json:"llm_provider"`
	GeminiAPIKey   string `json:"gemini_api_key"`
	GeminiModel    string `json:"gemini_model"`
	OpenAIAPIKey   string `json:"openai_api_key"`
	OpenAIModel    string `json:"openai_model"`
	RerankProvider string `json:"rerank_provider"`
	RerankAPIKey   string `json:"rerank_api_key"`
	RAGTopK        int    `json:"rag_top_k"`
}

// View is what GET /settings returns: API keys are reported as configured,
// never echoed.
type View struct {
	LLMProvider            string `json:"llm_provider"`
	GeminiModel            string `json:"gemini_model"`
	GeminiAPIKeyConfigured bool   `json:"gemini_api_key_configured"`
	OpenAIModel            string `json:"openai_model"`
	OpenAIAPIKeyConfigured bool   `json:"openai_api_key_configured"`
	RerankProvider         string `json:"rerank_provider"`
	RerankAPIKeyConfigured bool   `json:"rerank_api_key_configured"`
	RAGTopK                int    `json:"rag_top_k"`
}

func (s *Settings) View() *View {
	return &View{
		LLMProvider:            s.LLMProvider,
		GeminiModel:            s.GeminiModel,
		GeminiAPIKeyConfigured: s.GeminiAPIKey != "",
		OpenAIModel:            s.OpenAIModel,
		OpenAIAPIKeyConfigured: s.OpenAIAPIKey != "",
		RerankProvider:         s.RerankProvider,
		RerankAPIKeyConfigured: s.RerankAPIKey != "",
		RAGTopK:                s.RAGTopK,
	}
}

// keepKeys fills API keys left empty in s from current.
func (s *Settings) keepKeys(current *Settings) {
	if s.GeminiAPIKey == "" {
		s.GeminiAPIKey = current.GeminiAPIKey
	}
	if s.OpenAIAPIKey == "" {
		s.OpenAIAPIKey = current.OpenAIAPIKey
	}
	if s.RerankAPIKey == "" {
		s.RerankAPIKey = current.RerankAPIKey
	}
}

func (s *Settings) Validate() error {
	switch s.LLMProvider {
	case config.ProviderGemini, config.ProviderOpenAI:
	default:
		return fmt.Errorf("%w: llm_provider %q", ErrInvalid, s.LLMProvider)
	}
	switch s.RerankProvider {
	case "", RerankNone, RerankJina, RerankCohere:
	default:
		return fmt.Errorf("%w: rerank_provider %q", ErrInvalid, s.RerankProvider)
	}
	if s.RAGTopK < 0 {
		return fmt.Errorf("%w: rag_top_k %d", ErrInvalid, s.RAGTopK)
	}
	return nil
}

// FromConfig builds the startup settings from the environment.
func FromConfig(cfg *config.Config) *Settings {
	return &Settings{
		ID:             1,
		LLMProvider:    cfg.LLMProvider,
		GeminiAPIKey:   cfg.GeminiAPIKey,
		GeminiModel:    cfg.GeminiModel,
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		OpenAIModel:    cfg.OpenAIModel,
		RerankProvider: cfg.RerankProvider,
		RerankAPIKey:   cfg.RerankAPIKey,
		RAGTopK:        cfg.RAGTopK,
	}
}

type Repository interface {
	Get(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, s *Settings) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context) (*Settings, error) {
	return s.repo.Get(ctx)
}

func (s *Service) Update(ctx context.Context, set *Settings) error {
	if err := set.Validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, set)
}

// MemoryRepo keeps settings in process memory, seeded from config.
type MemoryRepo struct {
	mu  sync.RWMutex
	cur Settings
}

func NewMemoryRepo(initial *Settings) *MemoryRepo {
	return &MemoryRepo{cur: *initial}
}

func (r *MemoryRepo) Get(ctx context.Context) (*Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.cur
	return &s, nil
}

func (r *MemoryRepo) Update(ctx context.Context, s *Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cur = *s
	return nil
}
