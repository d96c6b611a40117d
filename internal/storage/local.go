package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var _ Store = (*LocalStore)(nil)

// LocalStore persists uploads on the local filesystem, sharded by year/month.
type LocalStore struct {
	root    string
	baseURL string
	now     func() time.Time
}

// LocalOption customises the LocalStore.
type LocalOption func(*LocalStore)

// WithClock overrides the clock used for directory sharding, primarily for tests.
func WithClock(now func() time.Time) LocalOption {
	return func(s *LocalStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewLocalStore initialises a filesystem-backed store rooted at dir. Stored
// paths resolve to URLs under baseURL.
func NewLocalStore(dir, baseURL string, opts ...LocalOption) (*LocalStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("storage: root directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure root directory: %w", err)
	}

	store := &LocalStore{
		root:    dir,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// Save writes the stream under a generated name, keeping only the original extension.
func (s *LocalStore) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if s == nil {
		return "", errors.New("storage: store not initialised")
	}
	if r == nil {
		return "", errors.New("storage: reader is required")
	}

	now := s.now().UTC()
	dir := filepath.Join(s.root, fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", int(now.Month())))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: mkdir %s: %w", dir, err)
	}

	filename := uuid.NewString() + sanitizeExtension(name)
	full := filepath.Join(dir, filename)

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("storage: create %s: %w", full, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return "", fmt.Errorf("storage: write %s: %w", full, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("storage: close %s: %w", full, err)
	}

	rel, err := filepath.Rel(s.root, full)
	if err != nil {
		return "", fmt.Errorf("storage: relativise %s: %w", full, err)
	}
	return filepath.ToSlash(rel), nil
}

// Delete removes a stored object. Deleting a path that is already gone succeeds.
func (s *LocalStore) Delete(_ context.Context, storedPath string) error {
	if s == nil {
		return errors.New("storage: store not initialised")
	}

	full, err := s.resolve(storedPath)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: remove %s: %w", full, err)
	}
	return nil
}

// URL maps a stored path onto the configured public base URL.
func (s *LocalStore) URL(storedPath string) string {
	storedPath = strings.TrimSpace(storedPath)
	if storedPath == "" {
		return ""
	}
	if s.baseURL == "" {
		return "/" + path.Clean(storedPath)
	}
	return s.baseURL + "/" + path.Clean(storedPath)
}

// Root exposes the storage root for static file serving.
func (s *LocalStore) Root() string {
	return s.root
}

// resolve joins the stored path under root and rejects traversal outside it.
func (s *LocalStore) resolve(storedPath string) (string, error) {
	storedPath = strings.TrimSpace(storedPath)
	if storedPath == "" {
		return "", errors.New("storage: path is required")
	}

	full := filepath.Join(s.root, filepath.FromSlash(storedPath))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("storage: path %q escapes storage root", storedPath)
	}
	return full, nil
}

func sanitizeExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || len(ext) > 8 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
