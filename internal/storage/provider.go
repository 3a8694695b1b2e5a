// Package storage defines the post directory abstraction.
package storage

import "github.com/starford/yuhex/internal/models"

// Provider is the interface for post file operations. Paths are relative to
// the post root and use forward slashes.
type Provider interface {
	// Root returns the absolute directory backing the provider.
	Root() string
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.PostMetadata, error)
	// Exists reports whether path is present.
	Exists(path string) (bool, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
}

var _ Provider = (*FS)(nil)
