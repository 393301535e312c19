package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"modelgate/internal/artifact"
	"modelgate/internal/config"
	"modelgate/internal/middleware"
	"modelgate/internal/storage"
)

type Store interface {
	Write(ctx context.Context, r io.Reader, category artifact.Category, ext string) (*storage.Result, error)
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// IngestedEvent is published after an artifact is durably stored, for the
// retention and catalog collaborators.
type IngestedEvent struct {
	ArtifactID    string            `json:"ingestion_id"`
	Category      artifact.Category `json:"category"`
	StoragePath   string            `json:"storage_path"`
	Extension     string            `json:"original_extension"`
	MIMEType      string            `json:"mime_type"`
	Size          int64             `json:"size_bytes"`
	SHA256        string            `json:"sha256"`
	CreatedAt     time.Time         `json:"created_at"`
	CorrelationID string            `json:"correlation_id"`
}

type Pipeline struct {
	store Store
	pub   EventPublisher
}

type Option func(*Pipeline)

func WithPublisher(pub EventPublisher) Option {
	return func(p *Pipeline) { p.pub = pub }
}

func NewPipeline(store Store, opts ...Option) *Pipeline {
	p := &Pipeline{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest validates, persists and hands off a single upload. A missing
// modality means a document upload.
func (p *Pipeline) Ingest(ctx context.Context, r io.Reader, filename string, declared artifact.MediaType) (*artifact.Artifact, error) {
	return p.ingest(ctx, r, filename, declared, Validate)
}

// IngestMedia is Ingest for the media route, where a modality is required.
func (p *Pipeline) IngestMedia(ctx context.Context, r io.Reader, filename string, declared artifact.MediaType) (*artifact.Artifact, error) {
	return p.ingest(ctx, r, filename, declared, ValidateMedia)
}

type validateFunc func(string, artifact.MediaType) (artifact.Category, string, error)

func (p *Pipeline) ingest(ctx context.Context, r io.Reader, filename string, declared artifact.MediaType, validate validateFunc) (*artifact.Artifact, error) {
	p.transition(ctx, artifact.StateReceived, "filename", filepath.Base(filename))

	category, ext, err := validate(filename, declared)
	if err != nil {
		slog.InfoContext(ctx, "upload rejected", "error", err)
		return nil, err
	}
	p.transition(ctx, artifact.StateValidated, "category", category, "extension", ext)

	res, err := p.store.Write(ctx, r, category, ext)
	if err != nil {
		if errors.Is(err, storage.ErrUploadTooLarge) || errors.Is(err, storage.ErrPathEscape) {
			return nil, &ValidationError{Filename: filename, MediaType: string(declared), Err: err}
		}
		slog.ErrorContext(ctx, "failed to persist upload", "error", err, "category", category)
		return nil, err
	}
	p.transition(ctx, artifact.StatePersisted, "path", res.Path, "size", res.Size)

	a := &artifact.Artifact{
		ID:           res.Token,
		Category:     category,
		Path:         res.Path,
		Extension:    ext,
		OriginalName: filepath.Base(filename),
		MIMEType:     MIMEType(ext),
		Size:         res.Size,
		SHA256:       res.SHA256,
		CreatedAt:    res.CreatedAt,
		State:        artifact.StateHandedOff,
	}

	p.announce(ctx, a)
	p.transition(ctx, artifact.StateHandedOff, "ingestion_id", a.ID)
	return a, nil
}

// announce is best effort: the artifact is already durable, so a broker
// outage is logged and the ingestion still succeeds.
func (p *Pipeline) announce(ctx context.Context, a *artifact.Artifact) {
	if p.pub == nil {
		return
	}

	body, err := json.Marshal(IngestedEvent{
		ArtifactID:    a.ID,
		Category:      a.Category,
		StoragePath:   a.Path,
		Extension:     a.Extension,
		MIMEType:      a.MIMEType,
		Size:          a.Size,
		SHA256:        a.SHA256,
		CreatedAt:     a.CreatedAt,
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to encode ingestion event", "error", err)
		return
	}
	if err := p.pub.Publish(config.TopicArtifactIngested, body); err != nil {
		slog.WarnContext(ctx, "failed to publish ingestion event", "error", err, "ingestion_id", a.ID)
	}
}

func (p *Pipeline) transition(ctx context.Context, state artifact.State, attrs ...any) {
	slog.DebugContext(ctx, "artifact state", append([]any{"state", state}, attrs...)...)
}
