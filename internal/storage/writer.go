package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"syscall"

	"modelgate/internal/artifact"
)

const tempPattern = ".tmp-*"

// Result describes an artifact file that has been durably published.
type Result struct {
	Allocation
	Size   int64
	SHA256 string
}

// Writer streams uploads into the storage root. Bytes land in a temporary
// file first and are published under the allocated name only once the full
// stream has been consumed and synced.
type Writer struct {
	alloc    *Allocator
	maxBytes int64
	link     func(oldname, newname string) error
}

type WriterOption func(*Writer)

// WithMaxBytes bounds the size of a single upload. Zero disables the bound.
func WithMaxBytes(n int64) WriterOption {
	return func(w *Writer) { w.maxBytes = n }
}

func NewWriter(alloc *Allocator, opts ...WriterOption) *Writer {
	w := &Writer{alloc: alloc, link: os.Link}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Writer) Root() string {
	return w.alloc.Root()
}

func (w *Writer) Write(ctx context.Context, r io.Reader, category artifact.Category, ext string) (*Result, error) {
	// Reject bad categories before touching the filesystem.
	if err := Check(category, ext); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(w.alloc.Root(), 0o750); err != nil {
		return nil, fmt.Errorf("%w: create root: %w", ErrStorageWrite, err)
	}

	tmp, err := os.CreateTemp(w.alloc.Root(), tempPattern)
	if err != nil {
		return nil, fmt.Errorf("%w: create temp file: %w", ErrStorageWrite, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if rmErr := os.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			slog.WarnContext(ctx, "failed to remove temp upload", "error", rmErr, "path", tmpName)
		}
	}()

	size, sum, err := w.copy(ctx, tmp, r)
	if err != nil {
		_ = tmp.Close()
		return nil, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("%w: sync: %w", ErrStorageWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("%w: close: %w", ErrStorageWrite, err)
	}

	alloc, err := w.publish(ctx, tmpName, category, ext)
	if err != nil {
		return nil, err
	}

	return &Result{Allocation: alloc, Size: size, SHA256: sum}, nil
}

func (w *Writer) copy(ctx context.Context, dst io.Writer, src io.Reader) (int64, string, error) {
	hash := sha256.New()
	in := &contextReader{ctx: ctx, r: src}
	var limited io.Reader = in
	if w.maxBytes > 0 {
		limited = io.LimitReader(in, w.maxBytes+1)
	}

	n, err := io.Copy(io.MultiWriter(dst, hash), limited)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	if w.maxBytes > 0 && n > w.maxBytes {
		return 0, "", fmt.Errorf("%w: limit is %d bytes", ErrUploadTooLarge, w.maxBytes)
	}
	return n, hex.EncodeToString(hash.Sum(nil)), nil
}

// publish hard-links the temp file to a freshly allocated name. Link fails
// with EEXIST instead of replacing an existing artifact; the first collision
// is retried with a new allocation, the second is fatal. Filesystems without
// hard links fall back to claimAndRename.
func (w *Writer) publish(ctx context.Context, tmpName string, category artifact.Category, ext string) (Allocation, error) {
	for attempt := 0; attempt < 2; attempt++ {
		alloc, err := w.alloc.Allocate(category, ext)
		if err != nil {
			return Allocation{}, err
		}

		err = w.link(tmpName, alloc.Path)
		if linkUnsupported(err) {
			slog.DebugContext(ctx, "hard links unsupported, publishing by rename", "error", err)
			err = claimAndRename(tmpName, alloc.Path)
		}
		if err == nil {
			return alloc, nil
		}
		if errors.Is(err, fs.ErrExist) {
			slog.WarnContext(ctx, "storage path collision", "path", alloc.Path, "attempt", attempt+1)
			continue
		}
		return Allocation{}, fmt.Errorf("%w: publish: %w", ErrStorageWrite, err)
	}
	return Allocation{}, ErrStorageCollision
}

// claimAndRename reserves final with an exclusive create, so an existing
// artifact still reports fs.ErrExist, then renames the temp file over the
// placeholder it owns.
func claimAndRename(tmpName, final string) error {
	f, err := os.OpenFile(final, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600) // #nosec G304 -- final comes from the allocator
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(final)
		return err
	}
	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(final)
		return err
	}
	return nil
}

func linkUnsupported(err error) bool {
	return err != nil && !errors.Is(err, fs.ErrExist) &&
		(errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.ENOTSUP) ||
			errors.Is(err, syscall.EOPNOTSUPP) || errors.Is(err, errors.ErrUnsupported))
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
