package assetsync

import (
	"context"
	"io"
)

// Store is the remote asset store capability the sync engine reconciles
// against. Implementations own transport details; the engine only ever uses
// this surface.
type Store interface {
	// List returns the filenames directly under dir.
	List(ctx context.Context, dir string) ([]string, error)
	// Put writes the reader's bytes to the remote path, replacing any
	// existing file.
	Put(ctx context.Context, path string, r io.Reader) error
	// Remove deletes the remote path.
	Remove(ctx context.Context, path string) error
}
