package storage

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"

	"modelgate/internal/artifact"
)

type Stats struct {
	Documents int   `json:"documents"`
	Audio     int   `json:"audio"`
	Video     int   `json:"video"`
	Total     int   `json:"total"`
	Bytes     int64 `json:"bytes"`
}

// Scan counts published artifacts in the flat storage root. Temp files and
// names without a known category prefix are ignored. A missing root counts
// as empty.
func Scan(ctx context.Context, root string) (*Stats, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Stats{}, nil
		}
		return nil, err
	}

	stats := &Stats{}
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}

		prefix, _, ok := strings.Cut(e.Name(), "_")
		if !ok {
			continue
		}
		switch artifact.Category(prefix) {
		case artifact.CategoryDocument:
			stats.Documents++
		case artifact.CategoryAudio:
			stats.Audio++
		case artifact.CategoryVideo:
			stats.Video++
		default:
			continue
		}
		stats.Total++
		if info, err := e.Info(); err == nil {
			stats.Bytes += info.Size()
		}
	}
	return stats, nil
}

func (w *Writer) Scan(ctx context.Context) (*Stats, error) {
	return Scan(ctx, w.alloc.Root())
}
