package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"modelgate/internal/artifact"
)

const (
	defaultTimeout  = 120 * time.Second
	defaultPoolSize = 32
	tracerName      = "modelgate/router"
)

// Router selects a backend capability for each request and normalizes its
// result into a ModelResponse. It holds no per-request state.
type Router struct {
	caps          map[ModelType]Capability
	questionRules []Rule
	documentRules []Rule
	mediaRules    []Rule
	pool          *ants.Pool
	poolSize      int
	timeout       time.Duration
	recorder      Recorder
	tracer        trace.Tracer
	logger        *slog.Logger
	now           func() time.Time
}

type Option func(*Router) error

// WithTimeout bounds each capability invocation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Router) error {
		if d < 0 {
			return fmt.Errorf("router timeout must not be negative: %s", d)
		}
		r.timeout = d
		return nil
	}
}

// WithPoolSize sets how many capability invocations may run at once.
// Submissions beyond that fail fast as unavailable.
func WithPoolSize(size int) Option {
	return func(r *Router) error {
		if size < 1 {
			size = 1
		}
		r.poolSize = size
		return nil
	}
}

// WithQuestionRules prepends rules ahead of the built-in question policy.
func WithQuestionRules(rules ...Rule) Option {
	return func(r *Router) error {
		r.questionRules = append(append([]Rule{}, rules...), r.questionRules...)
		return nil
	}
}

// WithDocumentVision routes PDF documents to the VISION capability.
func WithDocumentVision(enabled bool) Option {
	return func(r *Router) error {
		if enabled {
			r.documentRules = []Rule{VisionPDF(), Default(ModelDocument)}
		}
		return nil
	}
}

func WithRecorder(rec Recorder) Option {
	return func(r *Router) error {
		r.recorder = rec
		return nil
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(r *Router) error {
		r.tracer = t
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Router) error {
		r.now = now
		return nil
	}
}

func New(caps map[ModelType]Capability, opts ...Option) (*Router, error) {
	r := &Router{
		caps:          make(map[ModelType]Capability, len(caps)),
		questionRules: []Rule{HasContext(), Default(ModelQA)},
		documentRules: []Rule{Default(ModelDocument)},
		mediaRules: []Rule{
			CategoryIs(artifact.CategoryAudio, ModelAudio),
			CategoryIs(artifact.CategoryVideo, ModelVideo),
		},
		poolSize: defaultPoolSize,
		timeout:  defaultTimeout,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for mt, c := range caps {
		if c != nil {
			r.caps[mt] = c
		}
	}

	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracerName)
	}

	pool, err := ants.NewPool(r.poolSize, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("create invocation pool: %w", err)
	}
	r.pool = pool
	return r, nil
}

// Close releases the invocation pool.
func (r *Router) Close() {
	r.pool.Release()
}

// RouteQuestion answers a question, with retrieval over contextText when
// one is supplied.
func (r *Router) RouteQuestion(ctx context.Context, question, contextText string) (*ModelResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	req := Request{Question: question, Context: contextText}
	meta := map[string]any{"question_length": len([]rune(question))}
	if strings.TrimSpace(contextText) != "" {
		meta["context_length"] = len([]rune(contextText))
	}

	return r.route(ctx, "router.RouteQuestion", r.questionRules, req,
		Input{Text: question, Context: contextText}, meta)
}

// RouteDocument sends a persisted document to document processing. The
// optional query asks for targeted extraction instead of a summary.
func (r *Router) RouteDocument(ctx context.Context, a *artifact.Artifact, query string) (*ModelResponse, error) {
	if a == nil || a.Category != artifact.CategoryDocument {
		return nil, fmt.Errorf("%w: RouteDocument requires a document, got %s", ErrUnsupportedArtifact, categoryOf(a))
	}

	query = strings.TrimSpace(query)
	meta := artifactMeta(a)
	if query != "" {
		meta["query_length"] = len([]rune(query))
	}

	return r.route(ctx, "router.RouteDocument", r.documentRules,
		Request{Artifact: a, Query: query},
		Input{StoragePath: a.Path, Query: query, MIMEType: a.MIMEType}, meta)
}

func (r *Router) RouteMedia(ctx context.Context, a *artifact.Artifact) (*ModelResponse, error) {
	if a == nil || !a.Category.IsMedia() {
		return nil, fmt.Errorf("%w: RouteMedia requires audio or video, got %s", ErrUnsupportedArtifact, categoryOf(a))
	}

	return r.route(ctx, "router.RouteMedia", r.mediaRules,
		Request{Artifact: a},
		Input{StoragePath: a.Path, MIMEType: a.MIMEType}, artifactMeta(a))
}

func (r *Router) route(ctx context.Context, name string, rules []Rule, req Request, in Input, meta map[string]any) (*ModelResponse, error) {
	ctx, span := r.tracer.Start(ctx, name)
	defer span.End()

	start := r.now()
	rule, ok := Select(rules, req)
	if !ok {
		err := fmt.Errorf("%w: no rule matched %s", ErrUnsupportedArtifact, categoryOf(req.Artifact))
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("model_type", string(rule.Target)),
		attribute.String("rule", rule.Name),
	)

	resp, err := r.dispatch(ctx, rule, in, meta, start)
	latency := r.now().Sub(start)

	r.record(ctx, RouteRecord{
		Route:     name,
		ModelType: rule.Target,
		Rule:      rule.Name,
		Latency:   latency,
		Err:       err,
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.WarnContext(ctx, "route failed", "route", name, "model_type", rule.Target, "rule", rule.Name, "error", err)
		return nil, err
	}
	r.logger.DebugContext(ctx, "route completed", "route", name, "model_type", rule.Target, "rule", rule.Name, "latency_ms", latency.Milliseconds())
	return resp, nil
}

func (r *Router) dispatch(ctx context.Context, rule Rule, in Input, meta map[string]any, start time.Time) (*ModelResponse, error) {
	capability, ok := r.caps[rule.Target]
	if !ok {
		return nil, fmt.Errorf("%w: no capability registered for %s", ErrBackendUnavailable, rule.Target)
	}

	out, err := r.invoke(ctx, capability, in)
	if err != nil {
		return nil, classify(err)
	}

	meta["rule"] = rule.Name
	meta["latency_ms"] = r.now().Sub(start).Milliseconds()
	return normalize(rule.Target, out, meta)
}

type invocation struct {
	out *Output
	err error
}

// invoke runs the capability on the pool and waits for it or for ctx.
// A late result after cancellation is discarded.
func (r *Router) invoke(ctx context.Context, c Capability, in Input) (*Output, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	done := make(chan invocation, 1)
	err := r.pool.Submit(func() {
		defer func() {
			if p := recover(); p != nil {
				done <- invocation{err: fmt.Errorf("capability panic: %v", p)}
			}
		}()
		out, err := c.Invoke(ctx, in)
		done <- invocation{out: out, err: err}
	})
	if err != nil {
		if errors.Is(err, ants.ErrPoolOverload) {
			return nil, err
		}
		return nil, fmt.Errorf("submit invocation: %w", err)
	}

	select {
	case res := <-done:
		if res.err == nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return res.out, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Router) record(ctx context.Context, rec RouteRecord) {
	if r.recorder != nil {
		r.recorder.Record(ctx, rec)
	}
}

func artifactMeta(a *artifact.Artifact) map[string]any {
	return map[string]any{
		"artifact_id": a.ID,
		"category":    string(a.Category),
		"extension":   a.Extension,
		"size_bytes":  a.Size,
	}
}

func categoryOf(a *artifact.Artifact) string {
	if a == nil {
		return "no artifact"
	}
	return fmt.Sprintf("category %q", a.Category)
}
