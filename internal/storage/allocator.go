package storage

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"

	"modelgate/internal/artifact"
)

const timestampLayout = "20060102_150405"

var (
	extensionRe = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)
	tokenRe     = regexp.MustCompile(`^[a-z0-9]{8,32}$`)
)

// Allocation is a reserved, not yet written, artifact location.
type Allocation struct {
	Path      string
	Token     string
	CreatedAt time.Time
}

type Allocator struct {
	root  string
	now   func() time.Time
	token func() string
}

type Option func(*Allocator)

func WithClock(now func() time.Time) Option {
	return func(a *Allocator) { a.now = now }
}

func WithTokenSource(token func() string) Option {
	return func(a *Allocator) { a.token = token }
}

func NewAllocator(root string, opts ...Option) *Allocator {
	a := &Allocator{
		root:  filepath.Clean(root),
		now:   time.Now,
		token: NewToken,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Allocator) Root() string {
	return a.root
}

// Allocate computes {root}/{category}_{YYYYMMDD_HHMMSS}_{token}{ext}.
// It performs no I/O; uniqueness on disk is enforced when the writer publishes.
func (a *Allocator) Allocate(category artifact.Category, ext string) (Allocation, error) {
	if err := Check(category, ext); err != nil {
		return Allocation{}, err
	}

	token := a.token()
	if !tokenRe.MatchString(token) {
		return Allocation{}, fmt.Errorf("%w: invalid token %q", ErrPathEscape, token)
	}

	created := a.now().UTC()
	name := fmt.Sprintf("%s_%s_%s%s", category, created.Format(timestampLayout), token, ext)
	path := filepath.Join(a.root, name)
	if filepath.Dir(path) != a.root {
		return Allocation{}, fmt.Errorf("%w: %q", ErrPathEscape, name)
	}

	return Allocation{Path: path, Token: token, CreatedAt: created}, nil
}

// Check reports whether category and ext can form a name inside the root.
func Check(category artifact.Category, ext string) error {
	if !category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrPathEscape, category)
	}
	if !extensionRe.MatchString(ext) {
		return fmt.Errorf("%w: invalid extension %q", ErrPathEscape, ext)
	}
	return nil
}

// NewToken returns 12 lowercase hex characters drawn from the random bytes
// of a version 4 UUID (48 bits).
func NewToken() string {
	id := uuid.New()
	return hex.EncodeToString(id[:6])
}
