package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"modelgate/internal/app"
	"modelgate/internal/config"
	"modelgate/internal/router"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		MaxUploadSizeMB:          1,
		RouteTimeoutSeconds:      5,
		MaxConcurrentInvocations: 2,
		StorageRoot:              filepath.Join(dir, "uploads"),
		LLMProvider:              config.ProviderGemini,
		RAGTopK:                  5,
		RAGChunkTokens:           512,
		DocumentMaxChars:         1000,
		SettingsBackend:          config.SettingsEnv,
		RouteLogPath:             filepath.Join(dir, "routes.log"),
		RouteLogMaxSizeMB:        1,
	}
}

func echoCapability(model string) router.Capability {
	return router.CapabilityFunc(func(_ context.Context, in router.Input) (*router.Output, error) {
		return &router.Output{Text: model, Metadata: map[string]any{"query": in.Query, "context": in.Context}}, nil
	})
}

func newTestCLI(t *testing.T, cfg *config.Config) (*cli.App, *bytes.Buffer) {
	t.Helper()
	opts := &app.Options{
		Capabilities: map[router.ModelType]router.Capability{
			router.ModelQA:       echoCapability("qa"),
			router.ModelRAG:      echoCapability("rag"),
			router.ModelDocument: echoCapability("document"),
			router.ModelAudio:    echoCapability("audio"),
			router.ModelVideo:    echoCapability("video"),
		},
		RouteLogEcho: io.Discard,
	}
	c := newCLI(func() (*config.Config, error) { return cfg, nil }, opts)
	var out bytes.Buffer
	c.Writer = &out
	c.ErrWriter = io.Discard
	return c, &out
}

func decodeResponse(t *testing.T, out *bytes.Buffer) router.ModelResponse {
	t.Helper()
	var resp router.ModelResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	return resp
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestAsk(t *testing.T) {
	c, out := newTestCLI(t, testConfig(t))

	require.NoError(t, c.Run([]string{"gatewayctl", "ask", "what", "is", "go?"}))
	assert.Equal(t, router.ModelQA, decodeResponse(t, out).ModelType)

	out.Reset()
	require.NoError(t, c.Run([]string{"gatewayctl", "ask", "--context", "Go is a language.", "what is go?"}))
	resp := decodeResponse(t, out)
	assert.Equal(t, router.ModelRAG, resp.ModelType)
	assert.Equal(t, "Go is a language.", resp.Metadata["context"])
}

func TestAsk_ContextFile(t *testing.T) {
	c, out := newTestCLI(t, testConfig(t))
	path := writeFile(t, "ctx.txt", "from a file")

	require.NoError(t, c.Run([]string{"gatewayctl", "ask", "--context-file", path, "q?"}))
	resp := decodeResponse(t, out)
	assert.Equal(t, router.ModelRAG, resp.ModelType)
	assert.Equal(t, "from a file", resp.Metadata["context"])
}

func TestAsk_RequiresQuestion(t *testing.T) {
	c, _ := newTestCLI(t, testConfig(t))
	assert.Error(t, c.Run([]string{"gatewayctl", "ask"}))
}

func TestUploadDocument(t *testing.T) {
	cfg := testConfig(t)
	c, out := newTestCLI(t, cfg)
	path := writeFile(t, "report.pdf", "%PDF-1.4")

	require.NoError(t, c.Run([]string{"gatewayctl", "upload-document", "--query", "totals", path}))
	resp := decodeResponse(t, out)
	assert.Equal(t, router.ModelDocument, resp.ModelType)
	assert.Equal(t, "totals", resp.Metadata["query"])

	entries, err := os.ReadDir(cfg.StorageRoot)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUploadMedia(t *testing.T) {
	cfg := testConfig(t)
	c, out := newTestCLI(t, cfg)
	path := writeFile(t, "clip.mp4", "ftyp")

	require.NoError(t, c.Run([]string{"gatewayctl", "upload-media", "--type", "video", path}))
	assert.Equal(t, router.ModelVideo, decodeResponse(t, out).ModelType)

	err := c.Run([]string{"gatewayctl", "upload-media", "--type", "audio", path})
	assert.Error(t, err)

	entries, err := os.ReadDir(cfg.StorageRoot)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUploadMedia_TypeRequired(t *testing.T) {
	c, _ := newTestCLI(t, testConfig(t))
	err := c.Run([]string{"gatewayctl", "upload-media", "clip.mp4"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantErr  bool
		category string
	}{
		{"document", []string{"report.PDF"}, false, "document"},
		{"audio", []string{"--type", "audio", "voice.mp3"}, false, "audio"},
		{"mismatch", []string{"--type", "audio", "clip.mp4"}, true, ""},
		{"unsupported", []string{"tool.exe"}, true, ""},
		{"bad modality", []string{"--type", "image", "a.png"}, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, out := newTestCLI(t, testConfig(t))
			err := c.Run(append([]string{"gatewayctl", "validate"}, tt.args...))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			var got map[string]string
			require.NoError(t, json.Unmarshal(out.Bytes(), &got))
			assert.Equal(t, tt.category, got["category"])
		})
	}
}

func TestStats(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.MkdirAll(cfg.StorageRoot, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.StorageRoot, "audio_x.mp3"), []byte("ID3"), 0o600))

	c, out := newTestCLI(t, cfg)
	require.NoError(t, c.Run([]string{"gatewayctl", "stats"}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.EqualValues(t, 1, got["audio"])
	assert.EqualValues(t, 1, got["total"])
}
