package settings

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Get(ctx context.Context) (*Settings, error) {
	s := &Settings{}
	query := `SELECT id, llm_provider, gemini_api_key, gemini_model, openai_api_key, openai_model, rerank_provider, rerank_api_key, rag_top_k FROM settings WHERE id = 1`
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.ID, &s.LLMProvider, &s.GeminiAPIKey, &s.GeminiModel,
		&s.OpenAIAPIKey, &s.OpenAIModel, &s.RerankProvider, &s.RerankAPIKey, &s.RAGTopK,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepo) Update(ctx context.Context, s *Settings) error {
	query := `
		UPDATE settings
		SET llm_provider = $1, gemini_api_key = $2, gemini_model = $3, openai_api_key = $4, openai_model = $5,
			rerank_provider = $6, rerank_api_key = $7, rag_top_k = $8, updated_at = NOW()
		WHERE id = 1
	`
	_, err := r.db.ExecContext(ctx, query,
		s.LLMProvider, s.GeminiAPIKey, s.GeminiModel, s.OpenAIAPIKey, s.OpenAIModel,
		s.RerankProvider, s.RerankAPIKey, s.RAGTopK,
	)
	return err
}

// Seed inserts the startup settings row unless one already exists.
func (r *PostgresRepo) Seed(ctx context.Context, s *Settings) error {
	query := `
		INSERT INTO settings (id, llm_provider, gemini_api_key, gemini_model, openai_api_key, openai_model, rerank_provider, rerank_api_key, rag_top_k)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		s.LLMProvider, s.GeminiAPIKey, s.GeminiModel, s.OpenAIAPIKey, s.OpenAIModel,
		s.RerankProvider, s.RerankAPIKey, s.RAGTopK,
	)
	return err
}
