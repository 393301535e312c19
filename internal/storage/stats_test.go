package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelgate/internal/storage"
)

func TestScan(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"document_20240309_140507_aaaaaaaaaaaa.pdf": "pdf",
		"document_20240309_140508_bbbbbbbbbbbb.md":  "md",
		"audio_20240309_140509_cccccccccccc.mp3":    "mp3!",
		"video_20240309_140510_dddddddddddd.mp4":    "mp4",
		".tmp-123456":                               "partial",
		"README":                                    "ignored",
		"misc_20240309_140510_eeeeeeeeeeee.bin":     "ignored",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(content), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(root, "document_dir"), 0o750))

	stats, err := storage.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 1, stats.Audio)
	assert.Equal(t, 1, stats.Video)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, int64(3+2+4+3), stats.Bytes)
}

func TestScan_MissingRoot(t *testing.T) {
	stats, err := storage.Scan(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Equal(t, &storage.Stats{}, stats)
}
