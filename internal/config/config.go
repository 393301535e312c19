package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalid         = errors.New("invalid configuration")
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	SettingsEnv      = "env"
	SettingsPostgres = "postgres"
)

type Config struct {
	// Server
	ServerPort               int   `envconfig:"SERVER_PORT" default:"8000"`
	MaxUploadSizeMB          int64 `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`
	RouteTimeoutSeconds      int   `envconfig:"ROUTE_TIMEOUT_SECONDS" default:"120"`
	MaxConcurrentInvocations int   `envconfig:"MAX_CONCURRENT_INVOCATIONS" default:"32"`

	StorageRoot string `envconfig:"STORAGE_ROOT" default:"./uploads"`

	// Model providers
	LLMProvider           string `envconfig:"LLM_PROVIDER" default:"gemini"`
	GeminiAPIKey          string `envconfig:"GEMINI_API_KEY"`
	GeminiModel           string `envconfig:"GEMINI_MODEL" default:"gemini-1.5-flash"`
	GeminiEmbeddingModel  string `envconfig:"GEMINI_EMBEDDING_MODEL" default:"gemini-embedding-001"`
	OpenAIAPIKey          string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL         string `envconfig:"OPENAI_BASE_URL"`
	OpenAIModel           string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	OpenAITranscribeModel string `envconfig:"OPENAI_TRANSCRIBE_MODEL" default:"whisper-1"`
	RerankProvider        string `envconfig:"RERANK_PROVIDER"`
	RerankAPIKey          string `envconfig:"RERANK_API_KEY"`

	RAGTopK           int  `envconfig:"RAG_TOP_K" default:"5"`
	RAGChunkTokens    int  `envconfig:"RAG_CHUNK_TOKENS" default:"512"`
	DocumentMaxChars  int  `envconfig:"DOCUMENT_MAX_CHARS" default:"100000"`
	DocumentPDFVision bool `envconfig:"DOCUMENT_PDF_VISION" default:"false"`

	// Settings persistence
	SettingsBackend string `envconfig:"SETTINGS_BACKEND" default:"env"`
	DBHost          string `envconfig:"DB_HOST" default:"postgres"`
	DBPort          int    `envconfig:"DB_PORT" default:"5432"`
	DBUser          string `envconfig:"DB_USER" default:"modelgate"`
	DBPass          string `envconfig:"DB_PASS" default:"password"`
	DBName          string `envconfig:"DB_NAME" default:"modelgate"`
	MigrationPath   string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Events. An empty host disables the producer.
	NSQDHost string `envconfig:"NSQD_HOST"`

	// Observability
	LogLevel          string `envconfig:"LOG_LEVEL" default:"info"`
	RouteLogPath      string `envconfig:"ROUTE_LOG_PATH" default:"data/logs/routes.log"`
	RouteLogMaxSizeMB int    `envconfig:"ROUTE_LOG_MAX_SIZE_MB" default:"100"`
	OTelEnabled       bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTelEndpoint      string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4318"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars set in the shell win; a missing .env is fine.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	_ = godotenv.Load(filepath.Join(cwd, "../../.env"))

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.StorageRoot) == "" {
		return fmt.Errorf("%w: STORAGE_ROOT", ErrMissingRequired)
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("%w: SERVER_PORT=%d", ErrInvalid, c.ServerPort)
	}
	if c.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("%w: MAX_UPLOAD_SIZE_MB=%d", ErrInvalid, c.MaxUploadSizeMB)
	}
	if c.RouteTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: ROUTE_TIMEOUT_SECONDS=%d", ErrInvalid, c.RouteTimeoutSeconds)
	}
	if c.MaxConcurrentInvocations <= 0 {
		return fmt.Errorf("%w: MAX_CONCURRENT_INVOCATIONS=%d", ErrInvalid, c.MaxConcurrentInvocations)
	}

	switch c.LLMProvider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: LLM_PROVIDER=%q", ErrInvalid, c.LLMProvider)
	}

	switch c.SettingsBackend {
	case SettingsEnv:
	case SettingsPostgres:
		if c.DBHost == "" {
			return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
		}
		if c.DBUser == "" {
			return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
		}
		if c.DBName == "" {
			return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
		}
	default:
		return fmt.Errorf("%w: SETTINGS_BACKEND=%q", ErrInvalid, c.SettingsBackend)
	}
	return nil
}

// MaxUploadBytes is the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadSizeMB << 20
}
