package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes a stored document.
type ObjectInfo struct {
	Key         string
	Size        int64
	ModTime     time.Time
	ContentType string
}

// Storage is a keyed sink for exported documents. Keys are slash-separated
// and relative to the backend root.
type Storage interface {
	// Put stores r under key, replacing any existing document.
	Put(ctx context.Context, key string, r io.Reader) error

	// Get opens the document under key. The caller closes it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes key. A missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether key is stored.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns the documents whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}
