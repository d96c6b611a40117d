package storage

import (
	"context"
	"io"
)

// Store abstracts where uploaded recipe images live.
type Store interface {
	// Save persists the stream and returns the storage-relative path.
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	// Delete removes the stored object at path. Missing objects are not an error.
	Delete(ctx context.Context, path string) error
	// URL resolves a stored path to a client-reachable URL.
	URL(path string) string
}
