// Package storage defines the archive file-system abstraction and the
// atomic file helpers shared by the agents.
package storage

import (
	"io"

	"github.com/evmaki/pothos/internal/models"
)

// Provider is the interface for archive file operations. All paths are
// relative to the provider root.
type Provider interface {
	// List returns metadata for every file directly under dir whose name ends with ext.
	List(dir, ext string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// WriteFrom atomically streams r to path and returns the bytes written.
	WriteFrom(path string, r io.Reader) (int64, error)
	// Abs resolves path to an absolute location under the root.
	Abs(path string) (string, error)
}
