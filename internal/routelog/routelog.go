// Package routelog writes one JSON line per routed request.
package routelog

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"modelgate/internal/apierr"
	"modelgate/internal/middleware"
	"modelgate/internal/router"
)

type Entry struct {
	Timestamp     time.Time     `json:"timestamp"`
	Route         string        `json:"route"`
	ModelType     string        `json:"model_type,omitempty"`
	Rule          string        `json:"rule,omitempty"`
	Duration      time.Duration `json:"duration_ns"`
	LatencyMs     int64         `json:"latency_ms"`
	Outcome       string        `json:"outcome"`
	Error         string        `json:"error,omitempty"`
	CorrelationID string        `json:"correlation_id"`
}

// Logger implements router.Recorder.
type Logger struct {
	writer io.Writer
	mu     sync.Mutex
	now    func() time.Time
}

func New(w io.Writer) *Logger {
	return &Logger{writer: w, now: time.Now}
}

// NewFile logs to a size-rotated file at path, and to echo when it is not nil.
func NewFile(path string, maxSizeMB int, echo io.Writer) (*Logger, io.Closer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, nil, err
	}

	rotator := &lumberjack.Logger{
		Filename:   filepath.Clean(path),
		MaxSize:    maxSizeMB,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}
	if echo == nil {
		return New(rotator), rotator, nil
	}
	return New(io.MultiWriter(echo, rotator)), rotator, nil
}

func (l *Logger) Record(ctx context.Context, rec router.RouteRecord) {
	entry := Entry{
		Timestamp:     l.now().UTC(),
		Route:         rec.Route,
		ModelType:     string(rec.ModelType),
		Rule:          rec.Rule,
		Duration:      rec.Latency,
		LatencyMs:     rec.Latency.Milliseconds(),
		Outcome:       "ok",
		CorrelationID: middleware.GetCorrelationID(ctx),
	}
	if rec.Err != nil {
		_, entry.Outcome = apierr.Classify(rec.Err)
		entry.Error = rec.Err.Error()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := json.NewEncoder(l.writer).Encode(entry); err != nil {
		slog.ErrorContext(ctx, "failed to write route log entry", "error", err)
	}
}
