package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	openaiopt "github.com/openai/openai-go/option"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel"
	"google.golang.org/api/option"

	"modelgate/features/question"
	"modelgate/features/stats"
	"modelgate/features/upload"
	"modelgate/internal/adapter/gemini"
	"modelgate/internal/adapter/openai"
	"modelgate/internal/adapter/reranker"
	"modelgate/internal/backend"
	"modelgate/internal/config"
	"modelgate/internal/docreader"
	"modelgate/internal/ingest"
	"modelgate/internal/middleware"
	"modelgate/internal/routelog"
	"modelgate/internal/router"
	"modelgate/internal/settings"
	"modelgate/internal/storage"
	"modelgate/internal/tracing"
)

const welcome = "Welcome to the modelgate routing API"

// Options overrides parts of the wiring, mainly for tests.
type Options struct {
	// Capabilities replaces the provider-backed capability of each listed
	// model type.
	Capabilities map[router.ModelType]router.Capability

	GeminiOptions []option.ClientOption
	OpenAIOptions []openaiopt.RequestOption

	// RouteLogEcho receives a copy of the route log. Defaults to stdout.
	RouteLogEcho io.Writer
}

type App struct {
	Handler  http.Handler
	Router   *router.Router
	Pipeline *ingest.Pipeline
	Store    *storage.Writer
	Settings *settings.Service

	port    int
	closers []io.Closer
}

func New(ctx context.Context, cfg *config.Config, deps *Dependencies, logger *slog.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}
	if deps == nil {
		deps = &Dependencies{}
	}
	a := &App{port: cfg.ServerPort}

	// Feature: Settings
	settingsService, err := newSettingsService(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}
	a.Settings = settingsService

	// Adapters: Dynamic
	geminiOpts := opts.GeminiOptions
	geminiProvider := gemini.NewProvider(settingsService, geminiOpts...)
	a.closers = append(a.closers, geminiProvider)

	openaiOpts := append([]openaiopt.RequestOption{}, opts.OpenAIOptions...)
	if cfg.OpenAIBaseURL != "" {
		openaiOpts = append(openaiOpts, openaiopt.WithBaseURL(cfg.OpenAIBaseURL))
	}
	openaiProvider := openai.NewProvider(settingsService, openaiOpts...)

	generator := &llmGenerator{
		settings: settingsService,
		gemini:   gemini.NewGenerator(geminiProvider),
		openai:   openai.NewGenerator(openaiProvider),
	}
	analyzer := gemini.NewFileAnalyzer(geminiProvider)
	transcriber := &audioTranscriber{
		settings: settingsService,
		openai:   openai.NewTranscriber(openaiProvider, cfg.OpenAITranscribeModel),
		gemini:   gemini.NewTranscriber(analyzer),
	}
	ranker := reranker.NewDynamicClient(settingsService).
		WithFallback(optionalRanker{gemini.NewEmbeddingRanker(geminiProvider, cfg.GeminiEmbeddingModel)})

	caps := map[router.ModelType]router.Capability{
		router.ModelQA: backend.NewQA(generator),
		router.ModelRAG: backend.NewRAG(generator,
			backend.WithRanker(ranker),
			backend.WithTopK(cfg.RAGTopK),
			backend.WithTopKFunc(topKFromSettings(settingsService)),
			backend.WithChunkTokens(cfg.RAGChunkTokens),
		),
		router.ModelDocument: backend.NewDocument(docreader.NewReader(cfg.DocumentMaxChars), generator),
		router.ModelVision:   backend.NewVision(analyzer),
		router.ModelAudio:    backend.NewAudio(transcriber),
		router.ModelVideo:    backend.NewVideo(analyzer),
	}
	for t, c := range opts.Capabilities {
		caps[t] = c
	}

	// Route audit log
	echo := opts.RouteLogEcho
	if echo == nil {
		echo = os.Stdout
	}
	routeLog, closer, err := routelog.NewFile(cfg.RouteLogPath, cfg.RouteLogMaxSizeMB, echo)
	if err != nil {
		slog.Warn("failed to create route log, falling back to echo only", "error", err)
		routeLog = routelog.New(echo)
	} else {
		a.closers = append(a.closers, closer)
	}

	rt, err := router.New(caps,
		router.WithTimeout(time.Duration(cfg.RouteTimeoutSeconds)*time.Second),
		router.WithPoolSize(cfg.MaxConcurrentInvocations),
		router.WithDocumentVision(cfg.DocumentPDFVision),
		router.WithRecorder(routeLog),
		router.WithTracer(otel.Tracer(tracing.ServiceName)),
		router.WithLogger(logger),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("router: %w", err)
	}
	a.Router = rt

	// Storage & ingestion
	a.Store = storage.NewWriter(storage.NewAllocator(cfg.StorageRoot), storage.WithMaxBytes(cfg.MaxUploadBytes()))
	var pipelineOpts []ingest.Option
	if deps.NSQProducer != nil {
		pipelineOpts = append(pipelineOpts, ingest.WithPublisher(deps.NSQProducer))
	}
	a.Pipeline = ingest.NewPipeline(a.Store, pipelineOpts...)

	// Handlers
	settingsHandler := settings.NewHandler(settingsService)
	questionHandler := question.NewHandler(rt)
	uploadHandler := upload.NewHandler(a.Pipeline, rt, cfg.MaxUploadBytes())
	statsHandler := stats.NewHandler(a.Store, a.Store.Root())

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /question", middleware.CorrelationID(http.HandlerFunc(questionHandler.Ask)))
	mux.Handle("POST /upload/document", middleware.CorrelationID(http.HandlerFunc(uploadHandler.Document)))
	mux.Handle("POST /upload/media", middleware.CorrelationID(http.HandlerFunc(uploadHandler.Media)))

	mux.Handle("GET /settings", middleware.CorrelationID(http.HandlerFunc(settingsHandler.GetSettings)))
	mux.Handle("PUT /settings", middleware.CorrelationID(http.HandlerFunc(settingsHandler.UpdateSettings)))

	mux.Handle("GET /stats", middleware.CorrelationID(http.HandlerFunc(statsHandler.GetStats)))

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message":"` + welcome + `"}`))
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	a.Handler = cors.AllowAll().Handler(mux)
	return a, nil
}

// newSettingsService seeds the settings store from the environment. With a
// database the stored row wins, except that an empty Gemini key is filled in.
func newSettingsService(ctx context.Context, cfg *config.Config, deps *Dependencies) (*settings.Service, error) {
	initial := settings.FromConfig(cfg)
	if deps.DB == nil {
		return settings.NewService(settings.NewMemoryRepo(initial)), nil
	}

	repo := settings.NewPostgresRepo(deps.DB)
	if err := repo.Seed(ctx, initial); err != nil {
		return nil, fmt.Errorf("seed settings: %w", err)
	}
	svc := settings.NewService(repo)

	if cfg.GeminiAPIKey != "" {
		set, err := svc.Get(ctx)
		if err != nil {
			slog.Warn("failed to fetch settings for seeding", "error", err)
		} else if set.GeminiAPIKey == "" {
			set.GeminiAPIKey = cfg.GeminiAPIKey
			if err := svc.Update(ctx, set); err != nil {
				slog.Warn("failed to seed gemini api key", "error", err)
			} else {
				slog.Info("seeded gemini api key from environment")
			}
		}
	}
	return svc, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.port),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the invocation pool, provider clients and the route log.
func (a *App) Close() {
	if a.Router != nil {
		a.Router.Close()
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			slog.Warn("failed to close resource", "error", err)
		}
	}
}
