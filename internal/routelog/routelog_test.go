package routelog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelgate/internal/middleware"
	"modelgate/internal/router"
)

func TestLogger_Record(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	ctx := middleware.WithCorrelationID(context.Background(), "corr-7")
	l.Record(ctx, router.RouteRecord{
		Route:     "question",
		ModelType: router.ModelRAG,
		Rule:      "has_context",
		Latency:   1500 * time.Millisecond,
	})
	l.Record(ctx, router.RouteRecord{
		Route:     "media",
		ModelType: router.ModelVideo,
		Rule:      "category_video",
		Latency:   time.Second,
		Err:       fmt.Errorf("%w: quota", router.ErrBackendUnavailable),
	})

	dec := json.NewDecoder(&buf)

	var ok Entry
	require.NoError(t, dec.Decode(&ok))
	assert.Equal(t, "question", ok.Route)
	assert.Equal(t, "RAG", ok.ModelType)
	assert.Equal(t, "has_context", ok.Rule)
	assert.Equal(t, int64(1500), ok.LatencyMs)
	assert.Equal(t, "ok", ok.Outcome)
	assert.Empty(t, ok.Error)
	assert.Equal(t, "corr-7", ok.CorrelationID)
	assert.True(t, ok.Timestamp.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))

	var failed Entry
	require.NoError(t, dec.Decode(&failed))
	assert.Equal(t, "BACKEND_UNAVAILABLE", failed.Outcome)
	assert.Contains(t, failed.Error, "quota")
}

func TestLogger_ThreadSafety(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf)

	concurrency := 50
	iterations := 100
	var wg sync.WaitGroup

	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				logger.Record(context.Background(), router.RouteRecord{
					Route:   "question",
					Latency: time.Millisecond,
				})
			}
		}()
	}
	wg.Wait()

	// Verify output is valid JSON stream
	decoder := json.NewDecoder(&buf)
	count := 0
	for decoder.More() {
		var entry Entry
		if err := decoder.Decode(&entry); err != nil {
			t.Fatalf("Failed to decode entry %d: %v", count, err)
		}
		count++
	}

	assert.Equal(t, concurrency*iterations, count)
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "routes.log")

	var echo bytes.Buffer
	l, closer, err := NewFile(path, 1, &echo)
	require.NoError(t, err)

	l.Record(context.Background(), router.RouteRecord{Route: "document", ModelType: router.ModelDocument})
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"route":"document"`)
	assert.Equal(t, string(data), echo.String())
}
